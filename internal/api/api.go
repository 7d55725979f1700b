// Package api defines the JSON messages shared by the gRPC and HTTP transports and
// the CLI.
package api

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

type Item struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Condition   string    `json:"condition,omitempty"`
	Category    string    `json:"category,omitempty"`
	Type        string    `json:"type,omitempty"`
	ImageRefs   []string  `json:"image_refs,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Availability struct {
	ItemID  uuid.UUID  `json:"item_id"`
	Found   bool       `json:"found"`
	Status  string     `json:"status,omitempty"`
	OwnerID *uuid.UUID `json:"owner_id,omitempty"`
}

type Offer struct {
	ID               uuid.UUID   `json:"id"`
	InitiatorID      uuid.UUID   `json:"initiator_id"`
	TargetID         *uuid.UUID  `json:"target_id"`
	OfferedItemIDs   []uuid.UUID `json:"offered_item_ids"`
	RequestedItemIDs []uuid.UUID `json:"requested_item_ids"`
	Message          string      `json:"message,omitempty"`
	Status           string      `json:"status"`
	ParentOfferID    *uuid.UUID  `json:"parent_offer_id,omitempty"`
	CancelReason     *string     `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type OfferDetails struct {
	Offer
	Items      []Item `json:"items"`
	Superseded bool   `json:"superseded"`
}

type Chain struct {
	Nodes  []Offer `json:"nodes"`
	Active *Offer  `json:"active,omitempty"`
}

type Interest struct {
	ID        uuid.UUID `json:"id"`
	OfferID   uuid.UUID `json:"offer_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	ID            uuid.UUID    `json:"id"`
	OfferID       *uuid.UUID   `json:"offer_id,omitempty"`
	OfferScoped   bool         `json:"offer_scoped"`
	Participants  [2]uuid.UUID `json:"participants"`
	CounterpartID uuid.UUID    `json:"counterpart_id"`
	CreatedAt     time.Time    `json:"created_at"`
	LastMessageAt *time.Time   `json:"last_message_at,omitempty"`
}

type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
}

// --- requests ---

type IDRequest struct {
	ID uuid.UUID `json:"id"`
}

type CreateItemRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Category    string   `json:"category,omitempty"`
	Type        string   `json:"type,omitempty"`
	ImageRefs   []string `json:"image_refs,omitempty"`
}

type ListItemsRequest struct {
	IncludeDeleted bool `json:"include_deleted,omitempty"`
}

type CheckAvailabilityRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids"`
}

type CreateOfferRequest struct {
	TargetID         *uuid.UUID  `json:"target_id,omitempty"`
	OfferedItemIDs   []uuid.UUID `json:"offered_item_ids"`
	RequestedItemIDs []uuid.UUID `json:"requested_item_ids,omitempty"`
	Message          string      `json:"message,omitempty"`
}

type CounterOfferRequest struct {
	ParentID         uuid.UUID   `json:"parent_id"`
	OfferedItemIDs   []uuid.UUID `json:"offered_item_ids"`
	RequestedItemIDs []uuid.UUID `json:"requested_item_ids"`
	Message          string      `json:"message,omitempty"`
}

type CancelOfferRequest struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

type ListOffersRequest struct {
	Role   string `json:"role,omitempty"`
	Status string `json:"status,omitempty"`
}

type ListBroadcastRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type CreateInterestRequest struct {
	OfferID uuid.UUID `json:"offer_id"`
}

type ConversationRequest struct {
	OfferID     *uuid.UUID `json:"offer_id,omitempty"`
	OtherUserID *uuid.UUID `json:"other_user_id,omitempty"`
}

type SendMessageRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Content        string    `json:"content"`
}

type ListMessagesRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Cursor         string    `json:"cursor,omitempty"`
	Limit          int       `json:"limit,omitempty"`
}

// --- list responses ---

type Empty struct{}

type Items struct {
	Items []Item `json:"items"`
}

type Availabilities struct {
	Items []Availability `json:"items"`
}

type Offers struct {
	Offers []Offer `json:"offers"`
}

type Interests struct {
	Interests []Interest `json:"interests"`
}

type Conversations struct {
	Conversations []Conversation `json:"conversations"`
}

type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor,omitempty"`
}
