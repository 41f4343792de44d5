package stage

import (
	"testing"
	"time"

	"pkg.world.dev/duel/internal/assert"
)

func TestCanOperateOnZeroValue(t *testing.T) {
	m := NewManager()
	assert.Equal(t, Init, m.Current())

	gotStage := m.Swap(ShutDown)
	assert.Equal(t, Init, gotStage)
	assert.Equal(t, ShutDown, m.Current())
}

func TestCanCompareAndSwap(t *testing.T) {
	m := NewManager()
	ok := m.CompareAndSwap(ShutDown, ShutDown)
	assert.Check(t, !ok, "initial stage should be Init")

	ok = m.CompareAndSwap(Init, Starting)
	assert.Check(t, ok, "compare and swap should succeed with correct old value")
	assert.Equal(t, Starting, m.Current())
}

func TestOnlyOneCompareAndSwapSuccess(t *testing.T) {
	successCh := make(chan bool)
	m := NewManager()

	for i := 0; i < 10; i++ {
		go func() {
			successCh <- m.CompareAndSwap(Init, ShuttingDown)
		}()
	}

	successCount := 0
	for i := 0; i < 10; i++ {
		if <-successCh {
			successCount++
		}
	}
	assert.Equal(t, 1, successCount)
}

func TestNotifyOnStage(t *testing.T) {
	m := NewManager()
	running := m.NotifyOnStage(Running)

	select {
	case <-running:
		t.Fatal("channel closed before the stage was reached")
	default:
	}

	m.Store(Starting)
	m.Store(Running)

	select {
	case <-running:
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after entering the stage")
	}

	// the current stage is already reached
	<-m.NotifyOnStage(Running)
}
