package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
	done   chan struct{}
}

func newRecordingNotifier(n int) *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, n)}
}

func (r *recordingNotifier) Send(ctx context.Context, alert Alert) error {
	r.mu.Lock()
	r.alerts = append(r.alerts, alert)
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.err
}

func (r *recordingNotifier) wait(t *testing.T, n int) []Alert {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for alert %d", i)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

func TestNotifyReachesAllBackends(t *testing.T) {
	a := newRecordingNotifier(1)
	b := newRecordingNotifier(1)
	svc := NewService(a, b)

	svc.Notify(context.Background(), "opened BUY NIFTY 50")

	for _, r := range []*recordingNotifier{a, b} {
		alerts := r.wait(t, 1)
		if len(alerts) != 1 || alerts[0].Message != "opened BUY NIFTY 50" {
			t.Fatalf("alerts = %+v", alerts)
		}
		if alerts[0].Level != AlertInfo {
			t.Fatalf("level = %s, want INFO", alerts[0].Level)
		}
	}
}

func TestBackendFailureIsSwallowed(t *testing.T) {
	r := newRecordingNotifier(2)
	r.err = errors.New("telegram down")
	svc := NewService(r)

	// Must not panic or propagate; subsequent sends keep working.
	svc.Critical("order rejected")
	svc.Warn("reconnecting")
	alerts := r.wait(t, 2)
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}
}

func TestLevels(t *testing.T) {
	r := newRecordingNotifier(2)
	svc := NewService(r)
	svc.Warn("w")
	svc.Critical("c")

	alerts := r.wait(t, 2)
	seen := map[AlertLevel]bool{}
	for _, a := range alerts {
		seen[a.Level] = true
	}
	if !seen[AlertWarning] || !seen[AlertCritical] {
		t.Fatalf("levels = %+v", alerts)
	}
}
