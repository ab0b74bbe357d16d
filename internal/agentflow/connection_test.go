package agentflow

import "testing"

func TestValidateConnection(t *testing.T) {
	tests := []struct {
		source AgentKind
		valid  bool
		msg    string
	}{
		{KindChat, true, ""},
		{KindImage, false, MsgImageSource},
		{KindAudio, false, MsgAudioSource},
		{"video", false, MsgInvalidConnection},
		{"", false, MsgInvalidConnection},
	}
	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			got := ValidateConnection(tt.source)
			if got.IsValid != tt.valid || got.Message != tt.msg {
				t.Errorf("ValidateConnection(%q) = %+v, want valid=%v msg=%q", tt.source, got, tt.valid, tt.msg)
			}
		})
	}
}

func TestNewConnection(t *testing.T) {
	c := NewConnection("chat-1", "image-2")
	if c.ID != "edge-chat-1-image-2" {
		t.Errorf("ID = %q", c.ID)
	}
	if c.Source != "chat-1" || c.Target != "image-2" {
		t.Errorf("unexpected endpoints: %+v", c)
	}
}

func TestNewAgentDefaults(t *testing.T) {
	chat := NewAgent("chat-1", KindChat, Position{X: 3})
	if chat.Name != "Chat Agent" || chat.Audio != nil || chat.Speaker() != "" {
		t.Errorf("unexpected chat agent: %+v", chat)
	}
	audio := NewAgent("audio-1", KindAudio, Position{})
	if audio.Name != "Audio Agent" || audio.Speaker() != DefaultSpeaker {
		t.Errorf("unexpected audio agent: %+v", audio)
	}

	clone := audio.Clone()
	clone.Audio.Speaker = "other"
	if audio.Speaker() != DefaultSpeaker {
		t.Error("clone shares audio settings")
	}
}
