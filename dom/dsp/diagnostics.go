package dsp

// MessageLevel is the severity of a console message.
type MessageLevel int8

// Message levels, in increasing severity.
const (
	LevelVerbose MessageLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l MessageLevel) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	}
	return "error"
}

// SecuritySource is the source of all console messages emitted by a policy.
const SecuritySource = "security"

// ConsoleMessage is a diagnostic message for a host's console.
type ConsoleMessage struct {
	Source string
	Level  MessageLevel
	Text   string
}

// ExecutionContext is the host a policy reports diagnostics to. A policy
// never depends on the context for its decisions.
//
// Implementations may be found in package console.
type ExecutionContext interface {
	AddConsoleMessage(ConsoleMessage)
}

// contextRef is a holder for an execution context, suitable for atomic
// pointers to interfaces.
type contextRef struct {
	ctx ExecutionContext
}
