package agent

import (
	"testing"
	"time"
)

func TestShutdownCoordinator_SignalDeliversOnce(t *testing.T) {
	c := NewShutdownCoordinator()
	c.Signal()

	select {
	case <-c.requests():
	case <-time.After(time.Second):
		t.Fatal("expected a pending shutdown request")
	}
}

func TestShutdownCoordinator_DoubleSignalFillsSlotOnce(t *testing.T) {
	c := NewShutdownCoordinator()
	c.Signal()
	c.Signal() // slot full, silent no-op

	<-c.requests()

	select {
	case <-c.requests():
		t.Fatal("second signal should have been dropped")
	default:
	}
}

func TestShutdownCoordinator_SignalAfterCloseIsNoOp(t *testing.T) {
	c := NewShutdownCoordinator()
	c.close()

	// Must not panic and must not deliver.
	c.Signal()

	select {
	case <-c.requests():
		t.Fatal("signal after close should be dropped")
	default:
	}
}

func TestShutdownCoordinator_SignalFromManyGoroutines(t *testing.T) {
	c := NewShutdownCoordinator()

	done := make(chan struct{})
	for i := 0; i < 16; i++ {
		go func() {
			c.Signal()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 16; i++ {
		<-done
	}

	<-c.requests()
	c.close()
	c.Signal()
}
