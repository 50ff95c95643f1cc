package model

type EventKind string

const (
	FreeText    EventKind = "free_text"
	ButtonReply EventKind = "button_reply"
	ListReply   EventKind = "list_reply"
)

// InboundEvent is a channel message normalized for the conversation engine.
type InboundEvent struct {
	From      string
	MessageID string
	Kind      EventKind
	Text      string

	// Set for button and list replies.
	SelectionID    string
	SelectionTitle string
}
