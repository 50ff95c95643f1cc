package client

import (
	"strings"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

// WebhookPayload is the body the Cloud API posts to the webhook endpoint.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Contacts         []Contact        `json:"contacts"`
	Messages         []InboundMessage `json:"messages"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type InboundMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

// FirstMessage returns the first user message carried by the payload.
// Status-only callbacks and empty payloads report false.
func (p WebhookPayload) FirstMessage() (InboundMessage, bool) {
	for _, e := range p.Entry {
		for _, ch := range e.Changes {
			if len(ch.Value.Messages) > 0 {
				return ch.Value.Messages[0], true
			}
		}
	}
	return InboundMessage{}, false
}

// Event normalizes the channel message. Unsupported message types become
// free text with an empty body so the conversation falls back gracefully.
func (m InboundMessage) Event() model.InboundEvent {
	ev := model.InboundEvent{
		From:      strings.TrimSpace(m.From),
		MessageID: m.ID,
		Kind:      model.FreeText,
	}

	switch m.Type {
	case "text":
		if m.Text != nil {
			ev.Text = m.Text.Body
		}
	case "button":
		if m.Button != nil {
			ev.Kind = model.ButtonReply
			ev.SelectionID = m.Button.Payload
			ev.SelectionTitle = m.Button.Text
			ev.Text = m.Button.Text
		}
	case "interactive":
		if m.Interactive == nil {
			break
		}
		switch {
		case m.Interactive.ButtonReply != nil:
			ev.Kind = model.ButtonReply
			ev.SelectionID = m.Interactive.ButtonReply.ID
			ev.SelectionTitle = m.Interactive.ButtonReply.Title
		case m.Interactive.ListReply != nil:
			ev.Kind = model.ListReply
			ev.SelectionID = m.Interactive.ListReply.ID
			ev.SelectionTitle = m.Interactive.ListReply.Title
		}
	}
	return ev
}
