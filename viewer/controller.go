package viewer

import (
	"context"

	"github.com/spaghettifunk/animaview/engine/control"
	"github.com/spaghettifunk/animaview/engine/core"
)

var _ control.Controller = &Viewer{}

// SelectAsset queues a load of name on the loop.
func (v *Viewer) SelectAsset(name string) error {
	return v.dispatch(func() {
		v.state().systems.Swap().LoadAsset(name)
	})
}

// PressKey delivers code as if it had been typed in the window.
func (v *Viewer) PressKey(code core.KeyCode) error {
	return v.dispatch(func() {
		e := v.state().engine
		e.Events().Fire(core.EventContext{
			Type: core.EVENT_CODE_KEY_PRESSED,
			Data: &core.KeyEvent{KeyCode: code},
		})
	})
}

// SetMorphWeight writes a morph influence on the loop and mirrors the stored
// value back to the surface. Controls of an asset swapped out in between are
// ignored.
func (v *Viewer) SetMorphWeight(id string, weight float32) error {
	return v.dispatch(func() {
		state := v.state()
		d, ok := state.systems.Swap().Morph(id)
		if !ok {
			core.LogDebug("morph control %s is gone", id)
			return
		}
		stored := d.SetWeight(weight)
		if state.surface != nil {
			state.surface.SetMorphWeight(id, stored)
		}
	})
}

type meshSummary struct {
	Label      string
	Kind       string
	Primitives int
	Morphs     map[string]float32
	Shadows    [2]bool
}

type assetSummary struct {
	Name    string
	Path    string
	State   string
	Clip    string
	Elapsed float64
	Meshes  []meshSummary
	Handles int
}

// DumpLive snapshots the live asset on the loop and renders it.
func (v *Viewer) DumpLive(ctx context.Context) (string, error) {
	result := make(chan assetSummary, 1)
	err := v.dispatch(func() {
		result <- v.summarize()
	})
	if err != nil {
		return "", err
	}
	select {
	case s := <-result:
		return control.Dump(s), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (v *Viewer) summarize() assetSummary {
	swap := v.state().systems.Swap()
	st, loading := swap.State()
	out := assetSummary{State: st.String()}
	if loading != "" {
		out.State += " " + loading
	}
	live := swap.Live()
	if live == nil {
		return out
	}
	out.Name = live.Name
	out.Path = live.Path
	out.Handles = len(live.Handles)
	if p := swap.Player(); p != nil {
		out.Clip = p.Clip().Name
		out.Elapsed = p.Elapsed()
	}
	for _, m := range live.Meshes() {
		s := meshSummary{
			Label:      m.Label(),
			Kind:       m.Kind.String(),
			Primitives: len(m.Mesh.Primitives),
			Shadows:    [2]bool{m.CastShadow, m.ReceiveShadow},
		}
		if morph := m.Mesh.Morph; morph.Len() > 0 {
			s.Morphs = make(map[string]float32, morph.Len())
			for i, name := range morph.Names {
				s.Morphs[name] = morph.Influences[i]
			}
		}
		out.Meshes = append(out.Meshes, s)
	}
	return out
}

func (v *Viewer) dispatch(fn func()) error {
	e := v.state().engine
	if e == nil {
		return core.ErrEngineStopped
	}
	return e.Dispatch(fn)
}
