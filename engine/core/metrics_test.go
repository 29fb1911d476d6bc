package core

import (
	"math"
	"testing"
	"time"
)

func TestMetricsAverageAndFPS(t *testing.T) {
	m := NewMetrics()
	// 60 frames of 20ms: 1.2s of frames.
	for i := 0; i < 60; i++ {
		m.Update(0.020)
	}
	if math.Abs(m.FrameTime()-20) > 1e-9 {
		t.Fatalf("expected 20ms average, got %f", m.FrameTime())
	}
	// The second boundary is crossed on the 51st frame, after 50 counted frames.
	if m.FPS() != 50 {
		t.Fatalf("expected 50 fps, got %f", m.FPS())
	}
}

func TestClockElapsedSeconds(t *testing.T) {
	now := time.Unix(100, 0)
	c := &Clock{now: func() time.Time { return now }}

	c.Update()
	if c.Elapsed() != 0 {
		t.Fatal("clock that was never started must not advance")
	}

	c.Start()
	now = now.Add(1500 * time.Millisecond)
	c.Update()
	if c.Elapsed() != 1.5 {
		t.Fatalf("expected 1.5s, got %f", c.Elapsed())
	}

	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	if c.Elapsed() != 1.5 {
		t.Fatalf("stopped clock must keep its elapsed time, got %f", c.Elapsed())
	}
}
