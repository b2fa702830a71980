package timedmutex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnlockBeforeTimeout(t *testing.T) {
	t.Parallel()
	tm := NewTimedMutex(20 * time.Millisecond)
	tm.LockForDuration()
	require.True(t, tm.UnlockIfLocked())
}

func TestUnlockAfterTimeout(t *testing.T) {
	t.Parallel()
	tm := NewTimedMutex(time.Millisecond)
	tm.LockForDuration()
	time.Sleep(50 * time.Millisecond)
	require.False(t, tm.UnlockIfLocked(), "timeout should already have released the mutex")
}

func TestMultipleUnlocksOnlyFirstSucceeds(t *testing.T) {
	t.Parallel()
	tm := NewTimedMutex(10 * time.Second)
	tm.LockForDuration()
	require.True(t, tm.UnlockIfLocked())
	require.False(t, tm.UnlockIfLocked())
}

func TestLockForDurationBlocksConcurrentLockers(t *testing.T) {
	t.Parallel()
	tm := NewTimedMutex(time.Second)
	tm.LockForDuration()

	unlocked := make(chan struct{})
	go func() {
		tm.LockForDuration()
		close(unlocked)
	}()

	select {
	case <-unlocked:
		t.Fatal("second LockForDuration should have blocked until the first unlocked")
	case <-time.After(30 * time.Millisecond):
	}

	tm.UnlockIfLocked()
	select {
	case <-unlocked:
	case <-time.After(time.Second):
		t.Fatal("second LockForDuration never acquired the mutex")
	}
}
