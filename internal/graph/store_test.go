package graph

import (
	"sort"
	"testing"

	"github.com/soochol/agentflow/internal/agentflow"
	"github.com/soochol/agentflow/internal/events"
)

func TestStore_UpsertGet(t *testing.T) {
	s := New(nil)
	a := agentflow.NewAgent("chat-1", agentflow.KindChat, agentflow.Position{X: 10, Y: 20})
	a.Input = "hello"
	s.Upsert("chat-1", a)

	got, ok := s.Get("chat-1")
	if !ok {
		t.Fatal("expected node chat-1")
	}
	if got.Input != "hello" || got.Name != "Chat Agent" {
		t.Errorf("got %+v", got)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("expected missing node to be absent")
	}
}

func TestStore_UpsertIsTotalReplace(t *testing.T) {
	s := New(nil)
	a := agentflow.NewAgent("chat-1", agentflow.KindChat, agentflow.Position{})
	a.Description = "summarise"
	s.Upsert("chat-1", a)

	s.Upsert("chat-1", agentflow.Agent{Kind: agentflow.KindChat, Name: "Renamed"})
	got, _ := s.Get("chat-1")
	if got.Description != "" {
		t.Errorf("Description = %q, want empty after replace", got.Description)
	}
	if got.ID != "chat-1" {
		t.Errorf("ID = %q, want chat-1", got.ID)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New(nil)
	s.Upsert("audio-1", agentflow.NewAgent("audio-1", agentflow.KindAudio, agentflow.Position{}))

	got, _ := s.Get("audio-1")
	got.Audio.Speaker = "james_casual@hopeful"
	got.Name = "changed"

	again, _ := s.Get("audio-1")
	if again.Speaker() != agentflow.DefaultSpeaker {
		t.Errorf("Speaker = %q, store was mutated through a copy", again.Speaker())
	}
	if again.Name != "Audio Agent" {
		t.Errorf("Name = %q, store was mutated through a copy", again.Name)
	}
}

func TestStore_RemoveReplaceClear(t *testing.T) {
	bus := events.NewBus()
	var types []string
	bus.Subscribe(func(e agentflow.Event) { types = append(types, e.Type) })
	s := New(bus)

	s.Upsert("chat-1", agentflow.NewAgent("chat-1", agentflow.KindChat, agentflow.Position{}))
	if !s.Remove("chat-1") {
		t.Error("Remove returned false for existing node")
	}
	if s.Remove("chat-1") {
		t.Error("Remove returned true for missing node")
	}

	s.Replace([]agentflow.Agent{
		agentflow.NewAgent("chat-2", agentflow.KindChat, agentflow.Position{}),
		agentflow.NewAgent("image-3", agentflow.KindImage, agentflow.Position{}),
	})
	ids := s.IDs()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "chat-2" || ids[1] != "image-3" {
		t.Errorf("IDs = %v", ids)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len = %d after Clear", s.Len())
	}

	want := []string{
		agentflow.EventNodeUpserted,
		agentflow.EventNodeRemoved,
		agentflow.EventGraphReplaced,
		agentflow.EventGraphCleared,
	}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestStore_SubscribeWithoutBus(t *testing.T) {
	s := New(nil)
	var n int
	unsubscribe := s.Subscribe(func(agentflow.Event) { n++ })
	s.Upsert("chat-1", agentflow.NewAgent("chat-1", agentflow.KindChat, agentflow.Position{}))
	unsubscribe()
	s.Upsert("chat-1", agentflow.NewAgent("chat-1", agentflow.KindChat, agentflow.Position{}))
	if n != 1 {
		t.Errorf("notifications = %d, want 1", n)
	}
}
