// Package events publishes domain events for out-of-process notifiers.
package events

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Event types.
const (
	OfferCreated    = "offer.created"
	OfferCountered  = "offer.countered"
	OfferAccepted   = "offer.accepted"
	OfferCompleted  = "offer.completed"
	OfferCancelled  = "offer.cancelled"
	InterestCreated = "interest.created"
	MessageSent     = "message.sent"
)

// Event is a committed state change addressed to the users who should hear about it.
type Event struct {
	Type           string      `json:"type"`
	ActorID        uuid.UUID   `json:"actor_id"`
	Recipients     []uuid.UUID `json:"recipients,omitempty"`
	OfferID        *uuid.UUID  `json:"offer_id,omitempty"`
	ConversationID *uuid.UUID  `json:"conversation_id,omitempty"`
	ItemIDs        []uuid.UUID `json:"item_ids,omitempty"`
	At             time.Time   `json:"at"`
}

// Publisher delivers events after the originating transaction committed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
