package chat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryLocker_BlockedAcquireHonorsContext(t *testing.T) {
	l := NewMemoryLocker()

	release, err := l.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error while lock is held, got %v", err)
	}

	// other users are unaffected
	release2, err := l.Lock(context.Background(), 2)
	if err != nil {
		t.Fatalf("lock for other user: %v", err)
	}
	release2()

	release()
	release3, err := l.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	release3()
}
