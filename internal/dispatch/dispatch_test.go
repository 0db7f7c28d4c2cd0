package dispatch

import (
	"testing"
	"time"

	"github.com/dacav/soto/internal/queue"
)

func TestBroadcastsToEveryOutput(t *testing.T) {
	in := queue.New[int](4)
	d := New(in, nil)

	out1, err := d.NewOutput(4)
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}
	out2, err := d.NewOutput(4)
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}
	d.Start()

	in.Insert(42)

	for _, out := range []*queue.Queue[int]{out1, out2} {
		v, ok := out.Extract()
		if !ok || v != 42 {
			t.Fatalf("expected 42, got %d %v", v, ok)
		}
	}
}

func TestDuplicatorAppliedToAllButLastOutput(t *testing.T) {
	in := queue.New[[]int](4)
	d := New(in, func(s []int) []int {
		cp := make([]int, len(s))
		copy(cp, s)
		return cp
	})

	out1, _ := d.NewOutput(4)
	out2, _ := d.NewOutput(4)
	d.Start()

	original := []int{1, 2, 3}
	in.Insert(original)

	v1, _ := out1.Extract()
	v2, _ := out2.Extract()

	if &v1[0] == &original[0] {
		t.Fatalf("expected out1 to receive a duplicate, got the original slice")
	}
	if &v2[0] != &original[0] {
		t.Fatalf("expected the last output to receive the original slice")
	}
}

func TestEndOfStreamClosesAllOutputs(t *testing.T) {
	in := queue.New[int](4)
	d := New(in, nil)
	out1, _ := d.NewOutput(4)
	out2, _ := d.NewOutput(4)
	d.Start()

	in.Insert(1)
	out1.Extract()
	out2.Extract()

	in.Close()

	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatalf("dispatcher never observed end-of-stream")
	}

	if !out1.Closed() || !out2.Closed() {
		t.Fatalf("expected both outputs to be closed")
	}
	if _, ok := out1.Extract(); ok {
		t.Fatalf("expected end-of-stream on out1")
	}
}

func TestNewOutputRefusedAfterStop(t *testing.T) {
	in := queue.New[int](4)
	d := New(in, nil)
	d.Start()

	in.Close()
	<-d.Done()

	if _, err := d.NewOutput(2); err != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestOutputAddedLateOnlySeesLaterItems(t *testing.T) {
	in := queue.New[int](4)
	d := New(in, nil)
	out1, _ := d.NewOutput(4)
	d.Start()

	in.Insert(1)
	out1.Extract()

	out2, err := d.NewOutput(4)
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	in.Insert(2)
	v, ok := out2.Extract()
	if !ok || v != 2 {
		t.Fatalf("expected out2's first item to be 2, got %d %v", v, ok)
	}
}
