package capture

import "testing"

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)

	q.Push(Frame{Index: 1})
	q.Push(Frame{Index: 2})
	q.Push(Frame{Index: 3}) // queue full: drops Index 1

	first := <-q.Chan()
	second := <-q.Chan()

	if first.Index != 2 || second.Index != 3 {
		t.Fatalf("got indices %d,%d, want 2,3", first.Index, second.Index)
	}
}

func TestQueueNeverBlocksOnPush(t *testing.T) {
	q := NewQueue(1)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			q.Push(Frame{Index: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done // if Push ever blocked, this would hang and the test would time out
}

func TestFrameDifferDetectsChange(t *testing.T) {
	d := NewFrameDiffer()

	if !d.HasChanged([]byte{1, 2, 3}) {
		t.Fatalf("first frame should always report changed")
	}
	if d.HasChanged([]byte{1, 2, 3}) {
		t.Fatalf("identical frame should report unchanged")
	}
	if !d.HasChanged([]byte{1, 2, 4}) {
		t.Fatalf("differing frame should report changed")
	}

	total, skipped := d.Stats()
	if total != 3 || skipped != 1 {
		t.Fatalf("got total=%d skipped=%d, want 3,1", total, skipped)
	}
}

func TestFrameDifferHint(t *testing.T) {
	d := NewFrameDiffer()

	if d.HasChangedHint(0) {
		t.Fatalf("zero accumulated frames should report unchanged")
	}
	if !d.HasChangedHint(3) {
		t.Fatalf("nonzero accumulated frames should report changed")
	}
}

func TestFrameDifferResetClearsHash(t *testing.T) {
	d := NewFrameDiffer()
	d.HasChanged([]byte{9, 9, 9})
	d.Reset()
	if !d.HasChanged([]byte{9, 9, 9}) {
		t.Fatalf("after Reset, identical frame should report changed again")
	}
}
