package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/model"
)

// ConversationRepo implements ConversationRepository using PostgreSQL.
type ConversationRepo struct{ q querier }

const convCols = `id, offer_id, user_low, user_high, created_at, last_message_at`

func scanConversation(row pgx.Row) (model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(&c.ID, &c.OfferID, &c.Participants[0], &c.Participants[1], &c.CreatedAt, &c.LastMessageAt)
	return c, err
}

// Ensure inserts c unless a conversation with the same key exists, then reads the
// stored row. The partial unique indexes make concurrent callers converge.
func (r *ConversationRepo) Ensure(ctx context.Context, c *model.Conversation) (*model.Conversation, error) {
	const insOffer = `
INSERT INTO conversations (id, offer_id, user_low, user_high, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (offer_id) WHERE offer_id IS NOT NULL DO NOTHING`
	const insDirect = `
INSERT INTO conversations (id, offer_id, user_low, user_high, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_low, user_high) WHERE offer_id IS NULL DO NOTHING`
	const selOffer = `SELECT ` + convCols + ` FROM conversations WHERE offer_id=$1`
	const selDirect = `SELECT ` + convCols + ` FROM conversations WHERE user_low=$1 AND user_high=$2 AND offer_id IS NULL`

	ins, row := insDirect, func() pgx.Row {
		return r.q.QueryRow(ctx, selDirect, c.Participants[0], c.Participants[1])
	}
	if c.OfferID != nil {
		ins, row = insOffer, func() pgx.Row { return r.q.QueryRow(ctx, selOffer, *c.OfferID) }
	}

	if _, err := r.q.Exec(ctx, ins, c.ID, c.OfferID, c.Participants[0], c.Participants[1], c.CreatedAt); err != nil {
		return nil, err
	}
	got, err := scanConversation(row())
	if err != nil {
		return nil, err
	}
	return &got, nil
}

// Get returns a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	const q = `SELECT ` + convCols + ` FROM conversations WHERE id=$1`
	c, err := scanConversation(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

// ListByUser returns the user's conversations, most recently active first.
func (r *ConversationRepo) ListByUser(ctx context.Context, user uuid.UUID) ([]model.Conversation, error) {
	const q = `
SELECT ` + convCols + ` FROM conversations
WHERE user_low=$1 OR user_high=$1
ORDER BY last_message_at DESC NULLS LAST, created_at DESC, id DESC`
	rows, err := r.q.Query(ctx, q, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddMessage inserts m and moves the conversation's activity timestamp.
func (r *ConversationRepo) AddMessage(ctx context.Context, m *model.Message) error {
	const ins = `INSERT INTO messages (id, conversation_id, sender_id, content, sent_at) VALUES ($1,$2,$3,$4,$5)`
	const upd = `UPDATE conversations SET last_message_at=$2 WHERE id=$1`

	if _, err := r.q.Exec(ctx, ins, m.ID, m.ConversationID, m.SenderID, m.Content, m.SentAt); err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, upd, m.ConversationID, m.SentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", m.ConversationID, errs.ErrNotFound)
	}
	return nil
}

// ListMessages pages newest first using the (sent_at, id) keyset.
func (r *ConversationRepo) ListMessages(
	ctx context.Context, convID uuid.UUID, before *model.MessageCursor, limit int,
) ([]model.Message, error) {
	const head = `
SELECT id, conversation_id, sender_id, content, sent_at FROM messages
WHERE conversation_id=$1`
	const tail = `
ORDER BY sent_at DESC, id DESC
LIMIT $2`
	const after = ` AND (sent_at, id) < ($3, $4)`

	var (
		rows pgx.Rows
		err  error
	)
	if before == nil {
		rows, err = r.q.Query(ctx, head+tail, convID, limit)
	} else {
		rows, err = r.q.Query(ctx, head+after+tail, convID, limit, before.SentAt, before.ID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
