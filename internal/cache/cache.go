package cache

import (
	"context"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

// ConversationStore keeps each user's position in the conversation.
// Get never fails for a missing user: it returns the INITIAL state.
// Set replaces the whole record; the last writer wins.
type ConversationStore interface {
	Get(ctx context.Context, userID string) (model.ConversationState, error)
	Set(ctx context.Context, userID string, st model.ConversationState) error
}
