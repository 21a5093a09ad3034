package domain

// IntentType classifies what the user wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentAccept             // add the current prediction
	IntentAddManual          // add a typed ingredient name
	IntentToggleCamera
	IntentFlipCamera
	IntentIncrement
	IntentDecrement
	IntentRemove
	IntentList
	IntentGenerate
	IntentReset
	IntentCopy
	IntentShare
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentAccept:
		return "accept"
	case IntentAddManual:
		return "add_manual"
	case IntentToggleCamera:
		return "toggle_camera"
	case IntentFlipCamera:
		return "flip_camera"
	case IntentIncrement:
		return "increment"
	case IntentDecrement:
		return "decrement"
	case IntentRemove:
		return "remove"
	case IntentList:
		return "list"
	case IntentGenerate:
		return "generate"
	case IntentReset:
		return "reset"
	case IntentCopy:
		return "copy"
	case IntentShare:
		return "share"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string // ingredient name or 1-based list position
}
