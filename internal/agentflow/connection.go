package agentflow

// Connection is a directed wire from one agent's output to another agent's
// input.
type Connection struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// ConnectionID returns the canonical edge id for a source/target pair.
func ConnectionID(source, target string) string {
	return "edge-" + source + "-" + target
}

// NewConnection builds an edge with its canonical id.
func NewConnection(source, target string) Connection {
	return Connection{ID: ConnectionID(source, target), Source: source, Target: target}
}

// Messages returned by ValidateConnection.
const (
	MsgImageSource       = "Image agent outputs cannot be connected to other agents"
	MsgAudioSource       = "Audio agent outputs cannot be connected to other agents"
	MsgInvalidConnection = "Invalid connection"
)

// ValidationResult is the verdict on a proposed edge.
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message"`
}

// ValidateConnection decides whether an agent of kind source may feed
// another agent. Only chat agents produce text that can be wired onward;
// the target kind does not matter.
func ValidateConnection(source AgentKind) ValidationResult {
	switch source {
	case KindChat:
		return ValidationResult{IsValid: true}
	case KindImage:
		return ValidationResult{Message: MsgImageSource}
	case KindAudio:
		return ValidationResult{Message: MsgAudioSource}
	default:
		return ValidationResult{Message: MsgInvalidConnection}
	}
}
