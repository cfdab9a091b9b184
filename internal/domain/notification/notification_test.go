package notification

import "testing"

func TestPercent(t *testing.T) {
	tests := []struct {
		processed, total, want int
	}{
		{1, 3, 33},
		{2, 3, 66},
		{3, 3, 100},
		{0, 5, 0},
		{1, 0, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.processed, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.processed, tt.total, got, tt.want)
		}
	}
}

func TestBuilders(t *testing.T) {
	p := Progress("alice", 50)
	if p.Destination != DestinationStatus || p.Payload != "50%" || p.User != "alice" {
		t.Errorf("progress = %+v", p)
	}

	q := Queued("alice")
	if q.Destination != DestinationStatus || q.Payload != StatusQueued {
		t.Errorf("queued = %+v", q)
	}

	r := Result("alice", "doc-1")
	if r.Destination != DestinationResult || r.Payload != "doc-1" {
		t.Errorf("result = %+v", r)
	}
}
