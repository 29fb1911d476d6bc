package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/systems"
)

var ErrUnknownMorph = errors.New("unknown morph control")

// Controller applies operator requests. Implementations hand the work to
// the engine loop; none of these may touch scene state directly.
type Controller interface {
	SelectAsset(name string) error
	PressKey(code core.KeyCode) error
	SetMorphWeight(id string, weight float32) error
	// DumpLive returns a readable dump of the live asset.
	DumpLive(ctx context.Context) (string, error)
}

type Server struct {
	surface     *Surface
	controller  Controller
	diagnostics *systems.Diagnostics
	httpServer  *http.Server
	listener    net.Listener
	done        chan struct{}
}

func NewServer(addr string, surface *Surface, controller Controller, diagnostics *systems.Diagnostics) *Server {
	s := &Server{
		surface:     surface,
		controller:  controller,
		diagnostics: diagnostics,
		done:        make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router with recovery and access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/assets", s.handleAssets).Methods(http.MethodGet)
	api.HandleFunc("/assets/{name}", s.handleSelectAsset).Methods(http.MethodPost)
	api.HandleFunc("/keys/{key}", s.handleKey).Methods(http.MethodPost)
	api.HandleFunc("/morphs", s.handleMorphs).Methods(http.MethodGet)
	api.HandleFunc("/morphs/{id}", s.handleSetMorph).Methods(http.MethodPut)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebsocket)
	r.HandleFunc("/debug/asset", s.handleDebugAsset).Methods(http.MethodGet)

	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	return handlers.LoggingHandler(logWriter{}, h)
}

// Start binds the address and serves in the background.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("control listen: %w", err)
	}
	s.listener = l
	core.LogInfo("control surface listening on http://%s", l.Addr())
	go func() {
		defer close(s.done)
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			core.LogError("control server: %s", err)
		}
	}()
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.surface.Close()
	if s.listener == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	<-s.done
	return err
}

type assetsResponse struct {
	Options []string `json:"options"`
	Current string   `json:"current"`
	State   string   `json:"state"`
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	snap := s.surface.Snapshot()
	writeJSON(w, http.StatusOK, assetsResponse{Options: snap.Options, Current: snap.Current, State: snap.State})
}

func (s *Server) handleSelectAsset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.controller.SelectAsset(name); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"requested": name})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	code, ok := parseKey(key)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown key %q", key))
		return
	}
	if err := s.controller.PressKey(code); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"key": key, "code": code})
}

type morphsResponse struct {
	Visible  bool           `json:"visible"`
	Controls []MorphControl `json:"controls"`
}

func (s *Server) handleMorphs(w http.ResponseWriter, r *http.Request) {
	snap := s.surface.Snapshot()
	writeJSON(w, http.StatusOK, morphsResponse{Visible: snap.MorphsVisible, Controls: snap.Morphs})
}

type morphRequest struct {
	Weight *float32 `json:"weight"`
}

func (s *Server) handleSetMorph(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	control, ok := s.surface.Morph(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", ErrUnknownMorph, id))
		return
	}
	var req morphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if req.Weight == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing weight"))
		return
	}
	weight := clampWeight(*req.Weight)
	if err := s.controller.SetMorphWeight(id, weight); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	control.Weight = weight
	writeJSON(w, http.StatusAccepted, control)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.surface.Snapshot().Stats)
}

type diagnosticEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	out := []diagnosticEntry{}
	if s.diagnostics != nil {
		for _, d := range s.diagnostics.Entries() {
			out = append(out, diagnosticEntry{Time: d.Time, Message: d.Message})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDebugAsset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	dump, err := s.controller.DumpLive(ctx)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(dump))
}
