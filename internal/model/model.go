// Package model defines domain entities used by services and repositories.
package model

import (
	"bytes"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ItemStatus is the availability state of an item.
type ItemStatus string

const (
	ItemAvailable ItemStatus = "AVAILABLE"
	ItemExchanged ItemStatus = "EXCHANGED"
	ItemDeleted   ItemStatus = "DELETED"
)

// Item is a listed good owned by a single user.
type Item struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	Condition   string
	Category    string
	Type        string
	ImageRefs   []string // opaque references managed by the image store
	Status      ItemStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewItem carries the owner-supplied fields of an item to be listed.
type NewItem struct {
	Title       string
	Description string
	Condition   string
	Category    string
	Type        string
	ImageRefs   []string
}

// Availability reports the current status of one item id.
type Availability struct {
	ItemID  uuid.UUID
	Status  ItemStatus
	OwnerID uuid.UUID
	Found   bool
}

// OfferStatus is a node state in the negotiation state machine.
type OfferStatus string

const (
	OfferPending   OfferStatus = "PENDING"
	OfferAccepted  OfferStatus = "ACCEPTED"
	OfferCompleted OfferStatus = "COMPLETED"
	OfferCancelled OfferStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are possible.
func (s OfferStatus) Terminal() bool {
	return s == OfferCompleted || s == OfferCancelled
}

// Valid reports whether s is a known status.
func (s OfferStatus) Valid() bool {
	switch s {
	case OfferPending, OfferAccepted, OfferCompleted, OfferCancelled:
		return true
	}
	return false
}

// Offer is one immutable node of a negotiation chain. Only Status, CancelReason and
// UpdatedAt change after insert.
type Offer struct {
	ID               uuid.UUID
	InitiatorID      uuid.UUID
	TargetID         *uuid.UUID // nil: broadcast
	OfferedItemIDs   []uuid.UUID
	RequestedItemIDs []uuid.UUID
	Message          string
	Status           OfferStatus
	ParentOfferID    *uuid.UUID
	CancelReason     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsBroadcast reports whether the offer has no target.
func (o *Offer) IsBroadcast() bool { return o.TargetID == nil }

// IsParty reports whether user is the initiator or the target.
func (o *Offer) IsParty(user uuid.UUID) bool {
	return o.InitiatorID == user || (o.TargetID != nil && *o.TargetID == user)
}

// ItemIDs returns offered then requested item ids.
func (o *Offer) ItemIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(o.OfferedItemIDs)+len(o.RequestedItemIDs))
	out = append(out, o.OfferedItemIDs...)
	return append(out, o.RequestedItemIDs...)
}

// OfferDetails is an offer with snapshots of the items it references.
type OfferDetails struct {
	Offer
	Items      []Item
	Superseded bool // a counter-offer points at this node
}

// OfferRole filters offers listed for a user.
type OfferRole string

const (
	RoleAny       OfferRole = ""
	RoleInitiator OfferRole = "initiator"
	RoleTarget    OfferRole = "target"
)

// OfferFilter narrows ListMine results.
type OfferFilter struct {
	Role   OfferRole
	Status OfferStatus // empty: any
}

// Chain is a negotiation chain in creation order.
type Chain struct {
	Nodes  []Offer
	Active *Offer // head when non-terminal, nil otherwise
}

// Interest records that a user wants to negotiate over a broadcast offer.
type Interest struct {
	ID        uuid.UUID
	OfferID   uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}

// Conversation is a two-party chat, optionally anchored to a negotiation chain root.
type Conversation struct {
	ID            uuid.UUID
	OfferID       *uuid.UUID
	Participants  [2]uuid.UUID // ordered low, high
	CreatedAt     time.Time
	LastMessageAt *time.Time
}

// OfferScoped reports whether the conversation is anchored to an offer.
func (c *Conversation) OfferScoped() bool { return c.OfferID != nil }

// HasParticipant reports whether user belongs to the conversation.
func (c *Conversation) HasParticipant(user uuid.UUID) bool {
	return c.Participants[0] == user || c.Participants[1] == user
}

// Counterpart returns the participant other than user.
func (c *Conversation) Counterpart(user uuid.UUID) uuid.UUID {
	if c.Participants[0] == user {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// Message is an append-only chat entry.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	SentAt         time.Time
}

// MessageCursor is a keyset position in a newest-first message listing.
type MessageCursor struct {
	SentAt time.Time
	ID     uuid.UUID
}

// MessagePage is one page of messages, newest first.
type MessagePage struct {
	Messages   []Message
	NextCursor string // opaque; empty when there are no older messages
}

// Pair orders two user ids so an unordered pair has one representation.
func Pair(a, b uuid.UUID) [2]uuid.UUID {
	if bytes.Compare(a[:], b[:]) > 0 {
		return [2]uuid.UUID{b, a}
	}
	return [2]uuid.UUID{a, b}
}
