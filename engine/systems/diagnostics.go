package systems

import (
	"sync"
	"time"

	"github.com/spaghettifunk/animaview/engine/containers"
)

type Diagnostic struct {
	Time    time.Time
	Message string
	Err     error
}

// Diagnostics keeps the most recent operator visible failures.
type Diagnostics struct {
	mu      sync.Mutex
	entries *containers.RingQueue[Diagnostic]
}

func NewDiagnostics(capacity int) *Diagnostics {
	if capacity <= 0 {
		capacity = 1
	}
	return &Diagnostics{entries: containers.NewRingQueue[Diagnostic](capacity)}
}

func (d *Diagnostics) Report(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries.Push(Diagnostic{Time: time.Now(), Message: err.Error(), Err: err})
}

// Entries returns the retained diagnostics, oldest first.
func (d *Diagnostics) Entries() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries.Items()
}

func (d *Diagnostics) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries.Len()
}
