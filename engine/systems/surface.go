package systems

// ControlSurface is the operator UI the swap system drives: an asset
// selector, one slider per morph channel grouped in folders, and a place to
// show load failures. All calls are made from the engine loop. A batch of
// morph control changes always ends with SetMorphFolderVisible.
type ControlSurface interface {
	SetAssetOptions(names []string)
	SetCurrentAsset(name string, state SwapState)
	AddMorphControl(d *MorphDescriptor)
	RemoveMorphControl(d *MorphDescriptor)
	SetMorphFolderVisible(visible bool)
	ReportFailure(err error)
}

// NopSurface is used when no control surface is configured.
type NopSurface struct{}

var _ ControlSurface = NopSurface{}

func (NopSurface) SetAssetOptions([]string)            {}
func (NopSurface) SetCurrentAsset(string, SwapState)   {}
func (NopSurface) AddMorphControl(*MorphDescriptor)    {}
func (NopSurface) RemoveMorphControl(*MorphDescriptor) {}
func (NopSurface) SetMorphFolderVisible(bool)          {}
func (NopSurface) ReportFailure(error)                 {}
