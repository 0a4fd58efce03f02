package mediator

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRoomQueues_SerializesOneRoom(t *testing.T) {
	q := newRoomQueues()
	ctx := context.Background()

	release1, err := q.acquire(ctx, "room")
	if err != nil {
		t.Fatalf("first acquire error = %v", err)
	}

	acquired2 := make(chan struct{})
	go func() {
		release2, err := q.acquire(ctx, "room")
		if err != nil {
			t.Error(err)
			return
		}
		close(acquired2)
		release2()
	}()

	select {
	case <-acquired2:
		t.Fatal("second pipeline entered while first still held the room")
	case <-time.After(30 * time.Millisecond):
	}

	release1()
	select {
	case <-acquired2:
	case <-time.After(time.Second):
		t.Fatal("second pipeline never got the room after release")
	}
}

func TestRoomQueues_RoomsAreIndependent(t *testing.T) {
	q := newRoomQueues()
	ctx := context.Background()

	release1, err := q.acquire(ctx, "room-a")
	if err != nil {
		t.Fatal(err)
	}
	defer release1()

	done := make(chan struct{})
	go func() {
		release2, err := q.acquire(ctx, "room-b")
		if err != nil {
			t.Error(err)
			return
		}
		release2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated room blocked behind a busy one")
	}
}

func TestRoomQueues_AcquireHonorsContext(t *testing.T) {
	q := newRoomQueues()

	release, err := q.acquire(context.Background(), "room")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.acquire(ctx, "room"); err == nil {
		t.Fatal("acquire on a held room with expired context returned nil error")
	}
}

func TestRoomQueues_IdleRoomsAreReleased(t *testing.T) {
	q := newRoomQueues()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := q.acquire(ctx, "room")
			if err != nil {
				t.Error(err)
				return
			}
			release()
		}()
	}
	wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.rooms) != 0 {
		t.Errorf("idle room entries = %d, want 0", len(q.rooms))
	}
}
