package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisRelayDeliversAcrossProcesses(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	defer mr.Close()

	publisherClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	subscriberClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer publisherClient.Close()
	defer subscriberClient.Close()

	hub := NewHub(4)
	sub := hub.Subscribe("r1")
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- NewRedisRelay(subscriberClient, "", nil).Run(ctx, hub, ready)
	}()
	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("relay exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not subscribe")
	}

	relay := NewRedisRelay(publisherClient, "", nil)
	if relay.Channel("r1") != "notify:r1" {
		t.Fatalf("unexpected channel %s", relay.Channel("r1"))
	}
	err = relay.Publish(ctx, Event{Kind: EventCreated, Notification: Notification{ID: "n1", RecipientID: "r1", Title: "hi"}})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case ev := <-sub.Events():
		if ev.Notification.ID != "n1" || ev.Kind != EventCreated {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected relayed event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop on cancel")
	}
}
