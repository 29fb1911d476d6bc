package systems

import (
	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/resources"
)

/** @brief Everything the systems need from the rest of the engine. */
type SystemManagerConfig struct {
	/** @brief Number of load workers. */
	Workers int
	/** @brief Capacity of the job queue. */
	QueueSize int
	/** @brief Number of failures kept for the operator. */
	DiagnosticsSize int

	Loader     AssetLoader
	Allocator  resources.Allocator
	Scene      SceneGraph
	Dispatcher Dispatcher
	Surface    ControlSurface
}

type SystemManager struct {
	jobSystem   *JobSystem
	diagnostics *Diagnostics
	swapSystem  *AssetSwapSystem
}

func NewSystemManager(config SystemManagerConfig) (*SystemManager, error) {
	js, err := NewJobSystem(config.Workers, config.QueueSize)
	if err != nil {
		return nil, err
	}
	diag := NewDiagnostics(config.DiagnosticsSize)
	ss, err := NewAssetSwapSystem(AssetSwapSystemConfig{
		Loader:      config.Loader,
		Allocator:   config.Allocator,
		Scene:       config.Scene,
		Jobs:        js,
		Dispatcher:  config.Dispatcher,
		Surface:     config.Surface,
		Diagnostics: diag,
	})
	if err != nil {
		_ = js.Shutdown()
		return nil, err
	}
	core.LogInfo("systems initialized with %d load workers", config.Workers)
	return &SystemManager{
		jobSystem:   js,
		diagnostics: diag,
		swapSystem:  ss,
	}, nil
}

func (sm *SystemManager) Jobs() *JobSystem {
	return sm.jobSystem
}

func (sm *SystemManager) Diagnostics() *Diagnostics {
	return sm.diagnostics
}

func (sm *SystemManager) Swap() *AssetSwapSystem {
	return sm.swapSystem
}

// Shutdown stops the load workers, then releases the live asset.
func (sm *SystemManager) Shutdown() error {
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.swapSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
