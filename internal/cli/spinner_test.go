package cli

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerStop(t *testing.T) {
	s := newSpinner("Working...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
	s.Stop()
	if !s.Cancelled() {
		t.Error("a stopped spinner reports its context as done")
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	tests := map[string]func() (context.Context, context.CancelFunc){
		"cancel":  func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
		"timeout": func() (context.Context, context.CancelFunc) { return context.WithTimeout(context.Background(), 20*time.Millisecond) },
	}
	for name, mk := range tests {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := mk()
			s := newSpinnerWithContext(ctx, "Working...")
			s.Start()
			if name == "cancel" {
				cancel()
			} else {
				defer cancel()
			}
			time.Sleep(100 * time.Millisecond)
			if !s.Cancelled() {
				t.Error("spinner should be cancelled with its parent context")
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopWithStatus(t *testing.T) {
	buf := captureStdout(t)
	s := newSpinner("Rendering...")
	s.Start()
	s.StopWithSuccess("Rendered")
	s = newSpinner("Rendering...")
	s.Start()
	s.StopWithError("Failed")
	if out := buf.String(); !strings.Contains(out, "Rendered") || !strings.Contains(out, "Failed") {
		t.Errorf("output = %q", out)
	}
}

func TestSpinnerSetMessage(t *testing.T) {
	s := newSpinner("short")
	s.SetMessage("a much longer message")
	if got := s.Message(); got != "a much longer message" {
		t.Errorf("Message() = %q", got)
	}
	s.SetMessage("x")
	if s.width != len("a much longer message") {
		t.Errorf("width = %d, want the widest message", s.width)
	}
}

func TestIngestProgress(t *testing.T) {
	s := newSpinner("Ingesting...")
	p := newIngestProgress(s, 3)
	ctx := context.Background()
	p.OnIngestComplete(ctx, "a.pdf", 1, time.Millisecond, nil)
	p.OnIngestComplete(ctx, "b.jpg", 1, time.Millisecond, nil)
	if got, want := s.Message(), "Ingested b.jpg (2/3)"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}
