package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

type ChannelClient interface {
	SendText(ctx context.Context, to, body string) (remoteMessageID string, err error)
	SendButtons(ctx context.Context, to, header, body, footer string, buttons []model.Button) (remoteMessageID string, err error)
	SendList(ctx context.Context, to, header, body, footer, buttonText string, sections []model.ListSection) (remoteMessageID string, err error)
}

// Sender delivers directives in order. A failed directive does not stop the
// ones after it.
type Sender struct {
	client     ChannelClient
	contentMax int

	onSent   func(ctx context.Context, to string, d model.Directive, remoteMessageID string)
	onFailed func(ctx context.Context, to string, d model.Directive, reason string)
}

func NewSender(client ChannelClient, contentMax int) *Sender {
	return &Sender{
		client:     client,
		contentMax: contentMax,
	}
}

func (s *Sender) WithHooks(
	onSent func(ctx context.Context, to string, d model.Directive, remoteMessageID string),
	onFailed func(ctx context.Context, to string, d model.Directive, reason string),
) *Sender {
	s.onSent = onSent
	s.onFailed = onFailed
	return s
}

func (s *Sender) Deliver(ctx context.Context, to string, directives []model.Directive) (sent int, failed int) {
	for _, d := range directives {
		remoteID, err := s.send(ctx, to, d)
		if err != nil {
			failed++
			if s.onFailed != nil {
				s.onFailed(ctx, to, d, err.Error())
			}
			continue
		}

		sent++
		if s.onSent != nil {
			s.onSent(ctx, to, d, remoteID)
		}
	}
	return sent, failed
}

func (s *Sender) send(ctx context.Context, to string, d model.Directive) (string, error) {
	switch d.Kind {
	case model.DirectiveText:
		if s.contentMax > 0 && utf8.RuneCountInString(d.Body) > s.contentMax {
			return "", fmt.Errorf("content exceeds %d chars", s.contentMax)
		}
		return s.client.SendText(ctx, to, d.Body)
	case model.DirectiveButtons:
		return s.client.SendButtons(ctx, to, d.Header, d.Body, d.Footer, d.Buttons)
	case model.DirectiveList:
		return s.client.SendList(ctx, to, d.Header, d.Body, d.Footer, d.ButtonText, d.Sections)
	default:
		return "", fmt.Errorf("unknown directive kind %q", d.Kind)
	}
}
