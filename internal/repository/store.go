// Package repository defines storage interfaces implemented by concrete backends.
package repository

import "context"

// Store groups the repositories that take part in one unit of work.
type Store interface {
	Items() ItemRepository
	Offers() OfferRepository
	Interests() InterestRepository
	Conversations() ConversationRepository

	// WithinTx runs fn against a transactional view of the store. The transaction
	// commits when fn returns nil and rolls back otherwise. Nested calls join the
	// outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
