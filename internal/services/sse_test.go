package services

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSSEHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewSSEHub()

	hub.Subscribe("client1")
	hub.Subscribe("client2")
	if hub.ClientCount() != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("client1")
	hub.Unsubscribe("nonexistent")
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after unsubscribe, got %d", hub.ClientCount())
	}
}

func TestSSEHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewSSEHub()
	ch := hub.Subscribe("client1")
	hub.Unsubscribe("client1")

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestSSEHub_Publish(t *testing.T) {
	hub := NewSSEHub()
	ch1 := hub.Subscribe("client1")
	ch2 := hub.Subscribe("client2")

	score := 99.0
	hub.Publish(SubmissionEvent{ID: 7, ProjectID: 3, Status: "Approved", TriageStatus: "APPROVED", AIScore: &score})

	for i, ch := range []<-chan SubmissionEvent{ch1, ch2} {
		select {
		case got := <-ch:
			if got.ID != 7 || got.Status != "Approved" || got.AIScore == nil || *got.AIScore != 99 {
				t.Errorf("client %d got %+v", i+1, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %d timed out", i+1)
		}
	}
}

func TestSSEHub_SlowClientDropsEvents(t *testing.T) {
	hub := NewSSEHub()
	ch := hub.Subscribe("slow")

	for i := 0; i < 150; i++ {
		hub.Publish(SubmissionEvent{ID: uint(i)})
	}

	if len(ch) != 100 {
		t.Errorf("expected buffer to hold 100 events, got %d", len(ch))
	}
}

func TestSSEHub_ConcurrentAccess(t *testing.T) {
	hub := NewSSEHub()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		id := fmt.Sprintf("client-%d", i)
		go func() {
			defer wg.Done()
			hub.Subscribe(id)
			hub.Unsubscribe(id)
		}()
		go func() {
			defer wg.Done()
			hub.Publish(SubmissionEvent{ID: 1})
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestGetSSEHub_Singleton(t *testing.T) {
	if GetSSEHub() != GetSSEHub() {
		t.Error("GetSSEHub should return the same instance")
	}
}
