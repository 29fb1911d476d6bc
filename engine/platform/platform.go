package platform

import (
	"sync"
	"time"

	"github.com/spaghettifunk/animaview/engine/core"
)

// Platform is the OS layer the engine loop pumps once per frame.
type Platform interface {
	Startup(events *core.EventBus, applicationName string, x, y, width, height uint32) error
	// PumpMessages delivers pending OS events and returns false once the
	// platform wants the application to quit.
	PumpMessages() bool
	Shutdown() error
	GetAbsoluteTime() float64
	Sleep(ms float64)
}

// Headless has no window. Input reaches the engine through the control
// surface instead.
type Headless struct {
	mu     sync.Mutex
	start  time.Time
	closed bool
}

var _ Platform = &Headless{}

func NewHeadless() *Headless {
	return &Headless{start: time.Now()}
}

func (p *Headless) Startup(events *core.EventBus, applicationName string, x, y, width, height uint32) error {
	p.start = time.Now()
	core.LogInfo("'%s' running headless at %dx%d", applicationName, width, height)
	return nil
}

func (p *Headless) PumpMessages() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Close makes the next PumpMessages report quit. Safe from any goroutine.
func (p *Headless) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *Headless) Shutdown() error {
	p.Close()
	return nil
}

func (p *Headless) GetAbsoluteTime() float64 {
	return time.Since(p.start).Seconds()
}

func (p *Headless) Sleep(ms float64) {
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}
