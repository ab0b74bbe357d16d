package agentflow

import (
	"strings"
	"testing"
	"time"
)

func TestNodeIDs_StrictlyIncreasing(t *testing.T) {
	now := time.UnixMilli(1_000)
	ids := NewNodeIDs(func() time.Time { return now })

	first := ids.Next(KindChat)
	second := ids.Next(KindChat)
	third := ids.Next(KindImage)

	if first != "chat-1000" || second != "chat-1001" || third != "image-1002" {
		t.Errorf("got %s %s %s", first, second, third)
	}
}

func TestNodeIDs_Observe(t *testing.T) {
	now := time.UnixMilli(1_000)
	ids := NewNodeIDs(func() time.Time { return now })

	ids.Observe("audio-5000")
	ids.Observe("custom-node")
	ids.Observe("chat-20")

	if got := ids.Next(KindChat); got != "chat-5001" {
		t.Errorf("Next after Observe = %s, want chat-5001", got)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID("wf"), GenerateID("wf")
	if !strings.HasPrefix(a, "wf-") || len(a) != len("wf-")+16 {
		t.Errorf("unexpected id %q", a)
	}
	if a == b {
		t.Error("ids should differ")
	}
}
