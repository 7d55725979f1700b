package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/barterhub/barter/internal/events"
	"github.com/barterhub/barter/internal/model"
	"github.com/barterhub/barter/internal/repository"
)

const (
	defaultMessageLen = 4000
	defaultPageSize   = 50
	maxPageSize       = 100
)

// ChatService manages two-party conversations, either direct or anchored to a
// negotiation.
type ChatService interface {
	// GetOrCreate takes exactly one of offerID and otherUserID.
	GetOrCreate(ctx context.Context, actor uuid.UUID, offerID, otherUserID *uuid.UUID) (*model.Conversation, error)
	Send(ctx context.Context, actor, convID uuid.UUID, content string) (*model.Message, error)
	ListMessages(ctx context.Context, actor, convID uuid.UUID, cursor string, limit int) (*model.MessagePage, error)
	ListConversations(ctx context.Context, actor uuid.UUID) ([]model.Conversation, error)
}

type ChatServiceImpl struct {
	base
	maxLen int
}

// NewChatService constructs ChatService. maxLen bounds message length in characters.
func NewChatService(d Deps, maxLen int) *ChatServiceImpl {
	if maxLen <= 0 {
		maxLen = defaultMessageLen
	}
	return &ChatServiceImpl{base: newBase(d, "chat"), maxLen: maxLen}
}

// GetOrCreate returns the conversation for an offer's negotiation or for a user pair.
// All nodes of a negotiation chain share the conversation keyed by the chain root.
func (s *ChatServiceImpl) GetOrCreate(
	ctx context.Context, actor uuid.UUID, offerID, otherUserID *uuid.UUID,
) (*model.Conversation, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if (offerID == nil) == (otherUserID == nil) {
		return nil, invalid("exactly one of offer_id and other_user_id required")
	}

	c := &model.Conversation{ID: s.newID(), CreatedAt: s.now()}
	if otherUserID != nil {
		if *otherUserID == uuid.Nil {
			return nil, invalid("empty other_user_id")
		}
		if *otherUserID == actor {
			return nil, invalid("cannot start a conversation with yourself")
		}
		c.Participants = model.Pair(actor, *otherUserID)
		return s.store.Conversations().Ensure(ctx, c)
	}

	var out *model.Conversation
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		o, err := tx.Offers().Get(ctx, *offerID)
		if err != nil {
			return err
		}
		if o.IsBroadcast() {
			return invalid("offer chat requires a directed offer")
		}
		if !o.IsParty(actor) {
			return forbidden("not a party to offer %s", o.ID)
		}
		root, err := chainRoot(ctx, tx, o)
		if err != nil {
			return err
		}
		c.OfferID = &root
		c.Participants = model.Pair(o.InitiatorID, *o.TargetID)
		out, err = tx.Conversations().Ensure(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Send appends a message from a participant.
func (s *ChatServiceImpl) Send(ctx context.Context, actor, convID uuid.UUID, content string) (*model.Message, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("empty message")
	}
	if utf8.RuneCountInString(content) > s.maxLen {
		return nil, invalid("message longer than %d characters", s.maxLen)
	}

	var (
		m  *model.Message
		to uuid.UUID
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		c, err := tx.Conversations().Get(ctx, convID)
		if err != nil {
			return err
		}
		if !c.HasParticipant(actor) {
			return forbidden("not a participant of conversation %s", convID)
		}
		to = c.Counterpart(actor)
		m = &model.Message{ID: s.newID(), ConversationID: convID, SenderID: actor, Content: content, SentAt: s.now()}
		return tx.Conversations().AddMessage(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type: events.MessageSent, ActorID: actor, Recipients: []uuid.UUID{to}, ConversationID: &convID,
	})
	return m, nil
}

// ListMessages pages newest first. An empty cursor starts from the latest message.
func (s *ChatServiceImpl) ListMessages(
	ctx context.Context, actor, convID uuid.UUID, cursor string, limit int,
) (*model.MessagePage, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	var before *model.MessageCursor
	if cursor != "" {
		cur, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		before = &cur
	}

	c, err := s.store.Conversations().Get(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(actor) {
		return nil, forbidden("not a participant of conversation %s", convID)
	}

	msgs, err := s.store.Conversations().ListMessages(ctx, convID, before, limit+1)
	if err != nil {
		return nil, err
	}
	page := &model.MessagePage{Messages: msgs}
	if len(msgs) > limit {
		page.Messages = msgs[:limit]
		last := page.Messages[limit-1]
		page.NextCursor = EncodeCursor(model.MessageCursor{SentAt: last.SentAt, ID: last.ID})
	}
	return page, nil
}

// ListConversations returns actor's conversations, most recently active first.
func (s *ChatServiceImpl) ListConversations(ctx context.Context, actor uuid.UUID) ([]model.Conversation, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.store.Conversations().ListByUser(ctx, actor)
}

// chainRoot follows parent links to the first node of the negotiation.
func chainRoot(ctx context.Context, tx repository.Store, o *model.Offer) (uuid.UUID, error) {
	seen := map[uuid.UUID]bool{o.ID: true}
	for o.ParentOfferID != nil {
		if seen[*o.ParentOfferID] {
			return uuid.Nil, conflict("offer chain cycle at %s", *o.ParentOfferID)
		}
		p, err := tx.Offers().Get(ctx, *o.ParentOfferID)
		if err != nil {
			return uuid.Nil, err
		}
		seen[p.ID] = true
		o = p
	}
	return o.ID, nil
}
