package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/scene"
	"github.com/spaghettifunk/animaview/engine/systems"
)

type fakeController struct {
	mu       sync.Mutex
	selected []string
	keys     []core.KeyCode
	weights  map[string]float32
	err      error
}

func (c *fakeController) SelectAsset(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.selected = append(c.selected, name)
	return nil
}

func (c *fakeController) PressKey(code core.KeyCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, code)
	return c.err
}

func (c *fakeController) SetMorphWeight(id string, weight float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.weights == nil {
		c.weights = make(map[string]float32)
	}
	c.weights[id] = weight
	return c.err
}

func (c *fakeController) DumpLive(ctx context.Context) (string, error) {
	return Dump(struct{ Name string }{"Samba Dancing"}), nil
}

func morphDescriptor(id, channel string) *systems.MorphDescriptor {
	mesh := scene.NewMesh("Body", &scene.MeshData{
		Morph: &scene.MorphTargets{Names: []string{channel}, Influences: []float32{0.25}},
	})
	return &systems.MorphDescriptor{ID: id, Mesh: mesh, Channel: channel, Index: 0}
}

func setup(t *testing.T) (*Surface, *fakeController, http.Handler) {
	t.Helper()
	surface := NewSurface()
	t.Cleanup(surface.Close)
	controller := &fakeController{}
	diagnostics := systems.NewDiagnostics(4)
	diagnostics.Report(errors.New("load Broken: corrupt"))
	server := NewServer("127.0.0.1:0", surface, controller, diagnostics)
	return surface, controller, server.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAssetsReflectSurface(t *testing.T) {
	surface, _, h := setup(t)
	surface.SetAssetOptions([]string{"Samba Dancing", "Walking"})
	surface.SetCurrentAsset("Walking", systems.SwapStateLoading)

	rec := do(t, h, http.MethodGet, "/api/assets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got assetsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %s", err)
	}
	if len(got.Options) != 2 || got.Current != "Walking" || got.State != systems.SwapStateLoading.String() {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestSelectAssetIsForwarded(t *testing.T) {
	_, controller, h := setup(t)
	rec := do(t, h, http.MethodPost, "/api/assets/Samba%20Dancing", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(controller.selected) != 1 || controller.selected[0] != "Samba Dancing" {
		t.Fatalf("selected = %v", controller.selected)
	}

	controller.err = errors.New("loop stopped")
	if rec := do(t, h, http.MethodPost, "/api/assets/Walking", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status after stop = %d", rec.Code)
	}
}

func TestKeys(t *testing.T) {
	_, controller, h := setup(t)
	for _, key := range []string{"1", "numpad2", "escape", "r"} {
		if rec := do(t, h, http.MethodPost, "/api/keys/"+key, ""); rec.Code != http.StatusAccepted {
			t.Fatalf("key %s status = %d", key, rec.Code)
		}
	}
	want := []core.KeyCode{core.KEY_1, core.KEY_NUMPAD0 + 2, core.KEY_ESCAPE, core.KEY_R}
	for i, k := range want {
		if controller.keys[i] != k {
			t.Fatalf("key %d = %#x, want %#x", i, controller.keys[i], k)
		}
	}
	if rec := do(t, h, http.MethodPost, "/api/keys/f13", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown key status = %d", rec.Code)
	}
}

func TestMorphControls(t *testing.T) {
	surface, controller, h := setup(t)
	smile := morphDescriptor("a1-0", "smile")
	blink := morphDescriptor("a1-1", "blink")
	surface.AddMorphControl(smile)
	surface.AddMorphControl(blink)
	surface.SetMorphFolderVisible(true)
	surface.RemoveMorphControl(blink)

	rec := do(t, h, http.MethodGet, "/api/morphs", "")
	var got morphsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %s", err)
	}
	if !got.Visible || len(got.Controls) != 1 {
		t.Fatalf("unexpected morphs %+v", got)
	}
	if c := got.Controls[0]; c.ID != "a1-0" || c.Folder != "Body" || c.Channel != "smile" || c.Weight != 0.25 {
		t.Fatalf("unexpected control %+v", c)
	}

	rec = do(t, h, http.MethodPut, "/api/morphs/a1-0", `{"weight": 3}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if controller.weights["a1-0"] != 1 {
		t.Fatalf("weight not clamped: %v", controller.weights["a1-0"])
	}

	if rec := do(t, h, http.MethodPut, "/api/morphs/a1-1", `{"weight": 0.5}`); rec.Code != http.StatusNotFound {
		t.Fatalf("removed control status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/api/morphs/a1-0", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing weight status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/api/morphs/a1-0", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d", rec.Code)
	}

	surface.SetMorphWeight("a1-0", 0.75)
	if m, _ := surface.Morph("a1-0"); m.Weight != 0.75 {
		t.Fatalf("mirrored weight = %v", m.Weight)
	}
}

func TestStatsAndDiagnostics(t *testing.T) {
	surface, _, h := setup(t)
	surface.SetStats(Stats{Frame: 42, DrawCalls: 3})

	var stats Stats
	rec := do(t, h, http.MethodGet, "/api/stats", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %s", err)
	}
	if stats.Frame != 42 || stats.DrawCalls != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	var entries []diagnosticEntry
	rec = do(t, h, http.MethodGet, "/api/diagnostics", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %s", err)
	}
	if len(entries) != 1 || !strings.Contains(entries[0].Message, "Broken") {
		t.Fatalf("unexpected diagnostics %+v", entries)
	}
}

func TestDebugAsset(t *testing.T) {
	_, _, h := setup(t)
	rec := do(t, h, http.MethodGet, "/debug/asset", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Samba Dancing") {
		t.Fatalf("unexpected dump %d %q", rec.Code, rec.Body.String())
	}
}

func TestWebsocketReceivesSnapshots(t *testing.T) {
	surface, _, h := setup(t)
	surface.SetAssetOptions([]string{"Walking"})
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %s", err)
	}
	defer conn.Close()

	read := func() Snapshot {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %s", err)
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			t.Fatalf("decode: %s", err)
		}
		return snap
	}

	if first := read(); len(first.Options) != 1 || first.State != systems.SwapStateEmpty.String() {
		t.Fatalf("unexpected first snapshot %+v", first)
	}

	// the first snapshot is only written once the client is registered
	surface.SetCurrentAsset("Walking", systems.SwapStateLive)
	if next := read(); next.Current != "Walking" || next.State != systems.SwapStateLive.String() {
		t.Fatalf("unexpected update %+v", next)
	}
}

func TestMorphRebuildPublishesOnce(t *testing.T) {
	surface := NewSurface()
	defer surface.Close()

	old := morphDescriptor("a1-0", "smile")
	surface.AddMorphControl(old)
	surface.SetMorphFolderVisible(true)

	before := surface.published.Load()
	surface.RemoveMorphControl(old)
	surface.AddMorphControl(morphDescriptor("b2-0", "blink"))
	surface.AddMorphControl(morphDescriptor("b2-1", "frown"))
	surface.SetMorphFolderVisible(true)
	if n := surface.published.Load() - before; n != 1 {
		t.Fatalf("expected one publish for the rebuild, got %d", n)
	}
	if snap := surface.Snapshot(); len(snap.Morphs) != 2 || snap.Morphs[0].ID != "b2-0" {
		t.Fatalf("unexpected morphs %+v", snap.Morphs)
	}
}
