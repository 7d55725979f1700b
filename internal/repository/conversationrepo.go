package repository

import (
	"context"

	"github.com/barterhub/barter/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ConversationRepository stores conversations and their messages.
type ConversationRepository interface {
	// Ensure returns the conversation keyed like c (by OfferID when set, otherwise by
	// the participant pair), inserting c when none exists yet.
	Ensure(ctx context.Context, c *model.Conversation) (*model.Conversation, error)

	// Get returns a conversation by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error)

	// ListByUser returns the user's conversations, most recently active first.
	ListByUser(ctx context.Context, user uuid.UUID) ([]model.Conversation, error)

	// AddMessage appends m and bumps the conversation's last message time.
	AddMessage(ctx context.Context, m *model.Message) error

	// ListMessages returns up to limit messages older than before (all when nil),
	// newest first.
	ListMessages(ctx context.Context, convID uuid.UUID, before *model.MessageCursor, limit int) ([]model.Message, error)
}
