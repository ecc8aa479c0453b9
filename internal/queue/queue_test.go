package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	jobs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume = %v", err)
	}

	want := Job{ID: "j-1", Kind: "practice", RecordID: "p-1"}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish = %v", err)
	}

	select {
	case got := <-jobs:
		if got != want {
			t.Fatalf("job = %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("job never delivered")
	}
}

func TestInMemoryConsumeStopsWithoutReceiver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(4)
	jobs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume = %v", err)
	}
	if err := q.Publish(ctx, Job{ID: "parked"}); err != nil {
		t.Fatalf("Publish = %v", err)
	}
	// Let the forwarder pick up the job and block on the delivery.
	time.Sleep(20 * time.Millisecond)
	cancel()

	// The forwarder must abandon the pending delivery and close the
	// channel instead of staying blocked on it.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-jobs:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("consume channel never closed after cancel")
		}
	}
}

func TestInMemoryPublishHonorsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	if err := q.Publish(ctx, Job{ID: "fill"}); err != nil {
		t.Fatalf("Publish = %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.Publish(cancelled, Job{ID: "blocked"}); err == nil {
		t.Fatal("publish into a full queue with a dead context must fail")
	}
}
