package websocket

import (
	"context"
	"testing"
	"time"
)

func newBareClient(key string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		key:       key,
		send:      make(chan []byte, 256),
		quit:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: cancel,
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() {
		errChan <- hub.Run(ctx)
	}()

	cancel()

	select {
	case err := <-errChan:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Hub did not stop within timeout")
	}
}

func TestHub_NewerScreenSupersedesOlder(t *testing.T) {
	hub := runHub(t)

	first := newBareClient("conv-1")
	second := newBareClient("conv-1")
	other := newBareClient("conv-2")

	hub.Register(first)
	hub.Register(other)
	hub.Register(second)

	select {
	case <-first.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("first screen was not superseded")
	}

	select {
	case msg := <-first.send:
		if string(msg) != `{"type":"superseded"}` {
			t.Errorf("unexpected message to superseded screen: %s", msg)
		}
	default:
		t.Error("superseded screen was not told")
	}

	if second.Context().Err() != nil || other.Context().Err() != nil {
		t.Error("unrelated screens must stay live")
	}

	// The stale screen unregistering must not evict its successor.
	hub.Unregister(first)
	third := newBareClient("conv-1")
	hub.Register(third)

	select {
	case <-second.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("second screen should still have been registered and then superseded")
	}
	if other.Context().Err() != nil {
		t.Error("screen for another conversation was ended")
	}
}

func TestHub_ShutdownEndsScreens(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(stopped)
	}()

	client := newBareClient("conv-1")
	hub.Register(client)
	cancel()
	<-stopped

	if client.Context().Err() == nil {
		t.Error("expected screen context to be canceled on shutdown")
	}

	late := newBareClient("conv-2")
	hub.Register(late)
	if late.Context().Err() == nil {
		t.Error("registering after shutdown must end the screen")
	}
}
