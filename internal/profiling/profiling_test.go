package profiling

import (
	"strings"
	"testing"
	"time"
)

func TestTrackAccumulates(t *testing.T) {
	ResetFrame()
	stop := Track("test.span")
	time.Sleep(time.Millisecond)
	stop()

	if d := Snapshot()["test.span"]; d <= 0 {
		t.Fatalf("expected positive duration, got %v", d)
	}
	if s := TopN(3); !strings.Contains(s, "test.span:") {
		t.Fatalf("TopN missing span: %q", s)
	}

	ResetFrame()
	if len(Snapshot()) != 0 {
		t.Fatalf("ResetFrame left totals behind")
	}
}

func TestCountersSurviveFrameReset(t *testing.T) {
	ResetCounters()
	Count("test.events")
	Add("test.events", 2)
	ResetFrame()

	if got := Counter("test.events"); got != 3 {
		t.Fatalf("counter = %d, want 3", got)
	}
	ResetCounters()
	if got := Counter("test.events"); got != 0 {
		t.Fatalf("counter after reset = %d, want 0", got)
	}
}

func TestTopNOrdersByTotal(t *testing.T) {
	ResetFrame()
	for i := 0; i < 3; i++ {
		Track("test.fast")()
	}
	stop := Track("test.slow")
	time.Sleep(2 * time.Millisecond)
	stop()

	if got := Calls("test.fast"); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	s := TopN(1)
	if !strings.HasPrefix(s, "test.slow:") || strings.Contains(s, "test.fast") {
		t.Fatalf("TopN(1) = %q", s)
	}
	if s := TopN(5); !strings.Contains(s, "test.fast:") || !strings.HasSuffix(s, "/3") {
		t.Fatalf("TopN(5) = %q", s)
	}
	ResetFrame()
}
