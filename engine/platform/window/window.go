// Package window is the desktop platform: a glfw window whose keyboard,
// resize and close events are forwarded to the engine event bus.
package window

import (
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/platform"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Window struct {
	window *glfw.Window
	events *core.EventBus
}

var _ platform.Platform = &Window{}

func New() *Window {
	return &Window{}
}

func (p *Window) Startup(events *core.EventBus, applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	p.events = events

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.window = window

	p.window.SetKeyCallback(p.keyCallback)
	p.window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.window.SetCloseCallback(p.closeCallback)
	p.window.SetPos(int(x), int(y))
	p.window.Show()
	return nil
}

func (p *Window) PumpMessages() bool {
	glfw.PollEvents()
	return !p.window.ShouldClose()
}

func (p *Window) Shutdown() error {
	if p.window != nil {
		p.window.Destroy()
		p.window = nil
	}
	glfw.Terminate()
	return nil
}

func (p *Window) GetAbsoluteTime() float64 {
	return glfw.GetTime()
}

func (p *Window) Sleep(ms float64) {
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

func (p *Window) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	var code core.SystemEventCode
	switch action {
	case glfw.Press:
		code = core.EVENT_CODE_KEY_PRESSED
	case glfw.Release:
		code = core.EVENT_CODE_KEY_RELEASED
	default:
		return
	}
	p.events.Fire(core.EventContext{
		Type: code,
		Data: &core.KeyEvent{KeyCode: translateKey(key)},
	})
}

func (p *Window) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.events.Fire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: uint32(width), WindowHeight: uint32(height)},
	})
}

func (p *Window) closeCallback(w *glfw.Window) {
	p.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

// translateKey maps glfw key codes onto the engine's. Digits and letters
// share their ASCII values.
func translateKey(key glfw.Key) core.KeyCode {
	switch {
	case key >= glfw.Key0 && key <= glfw.Key9,
		key >= glfw.KeyA && key <= glfw.KeyZ,
		key == glfw.KeySpace:
		return core.KeyCode(key)
	case key >= glfw.KeyKP0 && key <= glfw.KeyKP9:
		return core.KEY_NUMPAD0 + core.KeyCode(key-glfw.KeyKP0)
	case key == glfw.KeyEscape:
		return core.KEY_ESCAPE
	case key == glfw.KeyEnter:
		return core.KEY_ENTER
	case key == glfw.KeyTab:
		return core.KEY_TAB
	case key == glfw.KeyBackspace:
		return core.KEY_BACKSPACE
	default:
		return core.KEY_UNKNOWN
	}
}
