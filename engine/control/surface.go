// Package control is the operator control surface: an HTTP API and a
// websocket feed mirroring the viewer state.
package control

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/math"
	"github.com/spaghettifunk/animaview/engine/systems"
)

type MorphControl struct {
	ID      string  `json:"id"`
	Folder  string  `json:"folder"`
	Channel string  `json:"channel"`
	Weight  float32 `json:"weight"`
}

type Stats struct {
	Frame         uint64  `json:"frame"`
	FPS           float64 `json:"fps"`
	FrameTimeMs   float64 `json:"frame_time_ms"`
	Roots         int     `json:"roots"`
	DrawCalls     int     `json:"draw_calls"`
	Meshes        int     `json:"meshes"`
	ShadowCasters int     `json:"shadow_casters"`
	MorphMeshes   int     `json:"morph_meshes"`
	LiveResources int     `json:"live_resources"`
	LiveBytes     uint64  `json:"live_bytes"`
	Clip          string  `json:"clip,omitempty"`
	Elapsed       float64 `json:"elapsed"`
}

// Snapshot is what clients see of the viewer.
type Snapshot struct {
	Options       []string       `json:"options"`
	Current       string         `json:"current"`
	State         string         `json:"state"`
	MorphsVisible bool           `json:"morphs_visible"`
	Morphs        []MorphControl `json:"morphs"`
	LastFailure   string         `json:"last_failure,omitempty"`
	Stats         Stats          `json:"stats"`
}

// Surface implements systems.ControlSurface. The loop writes through the
// interface methods; HTTP handlers and websocket clients read snapshots.
type Surface struct {
	mu       sync.RWMutex
	snapshot Snapshot
	hub      *hub

	published atomic.Uint64
}

var _ systems.ControlSurface = &Surface{}

func NewSurface() *Surface {
	return &Surface{
		snapshot: Snapshot{State: systems.SwapStateEmpty.String()},
		hub:      newHub(),
	}
}

func (s *Surface) SetAssetOptions(names []string) {
	s.update(func(snap *Snapshot) {
		snap.Options = append([]string(nil), names...)
	})
}

func (s *Surface) SetCurrentAsset(name string, state systems.SwapState) {
	s.update(func(snap *Snapshot) {
		snap.Current = name
		snap.State = state.String()
	})
}

// AddMorphControl and RemoveMorphControl are published with the folder
// visibility that ends the batch.
func (s *Surface) AddMorphControl(d *systems.MorphDescriptor) {
	s.mutate(func(snap *Snapshot) {
		snap.Morphs = append(snap.Morphs, MorphControl{
			ID:      d.ID,
			Folder:  d.Folder(),
			Channel: d.Channel,
			Weight:  d.Weight(),
		})
	})
}

func (s *Surface) RemoveMorphControl(d *systems.MorphDescriptor) {
	s.mutate(func(snap *Snapshot) {
		for i, m := range snap.Morphs {
			if m.ID == d.ID {
				snap.Morphs = append(snap.Morphs[:i], snap.Morphs[i+1:]...)
				return
			}
		}
	})
}

func (s *Surface) SetMorphFolderVisible(visible bool) {
	s.update(func(snap *Snapshot) {
		snap.MorphsVisible = visible
	})
}

func (s *Surface) ReportFailure(err error) {
	s.update(func(snap *Snapshot) {
		snap.LastFailure = err.Error()
	})
}

// SetMorphWeight mirrors a weight the loop has applied.
func (s *Surface) SetMorphWeight(id string, weight float32) {
	s.update(func(snap *Snapshot) {
		for i := range snap.Morphs {
			if snap.Morphs[i].ID == id {
				snap.Morphs[i].Weight = weight
			}
		}
	})
}

// SetStats records frame stats without notifying clients; Publish does.
func (s *Surface) SetStats(stats Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Stats = stats
}

// Publish pushes the current snapshot to every websocket client.
func (s *Surface) Publish() {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		core.LogError("control snapshot: %s", err)
		return
	}
	s.published.Add(1)
	s.hub.broadcast(data)
}

// Snapshot returns a copy of the current state.
func (s *Surface) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshot
	snap.Options = append([]string(nil), s.snapshot.Options...)
	snap.Morphs = append([]MorphControl(nil), s.snapshot.Morphs...)
	return snap
}

// Morph returns the control with the given id.
func (s *Surface) Morph(id string) (MorphControl, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.snapshot.Morphs {
		if m.ID == id {
			return m, true
		}
	}
	return MorphControl{}, false
}

// Close disconnects every websocket client.
func (s *Surface) Close() {
	s.hub.close()
}

func (s *Surface) update(fn func(*Snapshot)) {
	s.mutate(fn)
	s.Publish()
}

func (s *Surface) mutate(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snapshot)
}

func clampWeight(w float32) float32 {
	return math.Clamp(w, 0, 1)
}
