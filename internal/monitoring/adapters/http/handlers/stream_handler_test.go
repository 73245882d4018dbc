package handlers

import (
	"testing"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
)

func TestStreamHubCloseStopsRun(t *testing.T) {
	hub := NewStreamHub(logger.NewNop())

	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	hub.Close()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub loop did not stop after Close")
	}
}

func TestStreamHubCloseDisconnectsClients(t *testing.T) {
	hub := NewStreamHub(logger.NewNop())
	go hub.Run()

	client := &streamClient{send: make(chan []byte, 1)}
	hub.register <- client

	hub.Close()

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected send channel to be closed, got a message")
		}
	case <-time.After(time.Second):
		t.Fatal("client send channel was not closed")
	}
}
