package control

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spaghettifunk/animaview/engine/core"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		core.LogError("control response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// logWriter routes gorilla access logs through the engine logger.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	core.LogDebug("%s", strings.TrimSpace(string(p)))
	return len(p), nil
}

// parseKey maps a path segment to a key code: single digits and letters,
// "numpad0".."numpad9", "space" and "escape".
func parseKey(s string) (core.KeyCode, bool) {
	s = strings.ToLower(s)
	switch s {
	case "escape", "esc":
		return core.KEY_ESCAPE, true
	case "space":
		return core.KEY_SPACE, true
	case "enter":
		return core.KEY_ENTER, true
	}
	if strings.HasPrefix(s, "numpad") && len(s) == len("numpad")+1 {
		c := s[len(s)-1]
		if c >= '0' && c <= '9' {
			return core.KEY_NUMPAD0 + core.KeyCode(c-'0'), true
		}
		return 0, false
	}
	if len(s) != 1 {
		return 0, false
	}
	c := s[0]
	switch {
	case c >= '0' && c <= '9':
		return core.KeyCode(c), true
	case c >= 'a' && c <= 'z':
		return core.KeyCode(c - 'a' + 'A'), true
	}
	return 0, false
}
