package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

// Cloud API field limits, in runes.
const (
	maxButtonTitle  = 20
	maxRowTitle     = 24
	maxRowDesc      = 72
	maxHeader       = 60
	maxFooter       = 60
	maxInteractBody = 1024
)

// WhatsAppClient sends messages through the WhatsApp Cloud API.
type WhatsAppClient struct {
	url    string
	token  string
	client *http.Client
}

func NewWhatsAppClient(apiURL, phoneNumberID, token string) *WhatsAppClient {
	return &WhatsAppClient{
		url:   fmt.Sprintf("%s/%s/messages", apiURL, phoneNumberID),
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type textPart struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

type replyButton struct {
	Type  string `json:"type"`
	Reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reply"`
}

type listRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type listSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []listRow `json:"rows"`
}

type interactiveAction struct {
	Buttons  []replyButton `json:"buttons,omitempty"`
	Button   string        `json:"button,omitempty"`
	Sections []listSection `json:"sections,omitempty"`
}

type interactive struct {
	Type   string            `json:"type"`
	Header *textPart         `json:"header,omitempty"`
	Body   textPart          `json:"body"`
	Footer *textPart         `json:"footer,omitempty"`
	Action interactiveAction `json:"action"`
}

type sendRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textBody    `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *WhatsAppClient) SendText(ctx context.Context, to, body string) (string, error) {
	return c.send(ctx, sendRequest{
		To:   to,
		Type: "text",
		Text: &textBody{Body: body},
	})
}

// SendButtons sends an interactive reply-button message. The Cloud API
// accepts at most three buttons.
func (c *WhatsAppClient) SendButtons(ctx context.Context, to, header, body, footer string, buttons []model.Button) (string, error) {
	if len(buttons) == 0 || len(buttons) > 3 {
		return "", fmt.Errorf("button message needs 1-3 buttons, got %d", len(buttons))
	}

	in := &interactive{
		Type:   "button",
		Header: optionalText(header, maxHeader),
		Body:   textPart{Text: truncate(body, maxInteractBody)},
		Footer: optionalText(footer, maxFooter),
	}
	for _, b := range buttons {
		var rb replyButton
		rb.Type = "reply"
		rb.Reply.ID = b.ID
		rb.Reply.Title = truncate(b.Title, maxButtonTitle)
		in.Action.Buttons = append(in.Action.Buttons, rb)
	}
	if in.Header != nil {
		in.Header.Type = "text"
	}

	return c.send(ctx, sendRequest{To: to, Type: "interactive", Interactive: in})
}

func (c *WhatsAppClient) SendList(ctx context.Context, to, header, body, footer, buttonText string, sections []model.ListSection) (string, error) {
	if len(sections) == 0 {
		return "", fmt.Errorf("list message needs at least one section")
	}

	in := &interactive{
		Type:   "list",
		Header: optionalText(header, maxHeader),
		Body:   textPart{Text: truncate(body, maxInteractBody)},
		Footer: optionalText(footer, maxFooter),
		Action: interactiveAction{Button: truncate(buttonText, maxButtonTitle)},
	}
	if in.Header != nil {
		in.Header.Type = "text"
	}
	for _, s := range sections {
		ls := listSection{Title: truncate(s.Title, maxRowTitle)}
		for _, r := range s.Rows {
			ls.Rows = append(ls.Rows, listRow{
				ID:          r.ID,
				Title:       truncate(r.Title, maxRowTitle),
				Description: truncate(r.Description, maxRowDesc),
			})
		}
		in.Action.Sections = append(in.Action.Sections, ls)
	}

	return c.send(ctx, sendRequest{To: to, Type: "interactive", Interactive: in})
}

func (c *WhatsAppClient) send(ctx context.Context, payload sendRequest) (string, error) {
	payload.MessagingProduct = "whatsapp"
	payload.RecipientType = "individual"

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	if len(sr.Messages) == 0 || sr.Messages[0].ID == "" {
		return "", fmt.Errorf("missing message id in response body=%q", string(body))
	}

	return sr.Messages[0].ID, nil
}

func optionalText(s string, max int) *textPart {
	if s == "" {
		return nil
	}
	return &textPart{Text: truncate(s, max)}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
