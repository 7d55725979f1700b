// Package convert maps between domain models and api messages.
package convert

import (
	"github.com/gofrs/uuid/v5"

	"github.com/barterhub/barter/internal/api"
	"github.com/barterhub/barter/internal/model"
	"github.com/barterhub/barter/internal/service"
)

// --- items ---

// ToAPIItem converts a domain item.
func ToAPIItem(it model.Item) api.Item {
	return api.Item{
		ID:          it.ID,
		OwnerID:     it.OwnerID,
		Title:       it.Title,
		Description: it.Description,
		Condition:   it.Condition,
		Category:    it.Category,
		Type:        it.Type,
		ImageRefs:   it.ImageRefs,
		Status:      string(it.Status),
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

// ToAPIItems converts a slice of items, never returning nil.
func ToAPIItems(in []model.Item) []api.Item {
	out := make([]api.Item, 0, len(in))
	for _, it := range in {
		out = append(out, ToAPIItem(it))
	}
	return out
}

// FromCreateItem converts a create request to the service input.
func FromCreateItem(r api.CreateItemRequest) model.NewItem {
	return model.NewItem{
		Title:       r.Title,
		Description: r.Description,
		Condition:   r.Condition,
		Category:    r.Category,
		Type:        r.Type,
		ImageRefs:   r.ImageRefs,
	}
}

// ToAPIAvailability omits owner and status for unknown ids.
func ToAPIAvailability(in []model.Availability) []api.Availability {
	out := make([]api.Availability, 0, len(in))
	for _, a := range in {
		v := api.Availability{ItemID: a.ItemID, Found: a.Found}
		if a.Found {
			owner := a.OwnerID
			v.Status, v.OwnerID = string(a.Status), &owner
		}
		out = append(out, v)
	}
	return out
}

// --- offers ---

// ToAPIOffer converts a domain offer. Item id slices are never nil.
func ToAPIOffer(o model.Offer) api.Offer {
	return api.Offer{
		ID:               o.ID,
		InitiatorID:      o.InitiatorID,
		TargetID:         o.TargetID,
		OfferedItemIDs:   nonNil(o.OfferedItemIDs),
		RequestedItemIDs: nonNil(o.RequestedItemIDs),
		Message:          o.Message,
		Status:           string(o.Status),
		ParentOfferID:    o.ParentOfferID,
		CancelReason:     o.CancelReason,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func ToAPIOffers(in []model.Offer) []api.Offer {
	out := make([]api.Offer, 0, len(in))
	for _, o := range in {
		out = append(out, ToAPIOffer(o))
	}
	return out
}

func ToAPIOfferDetails(d model.OfferDetails) api.OfferDetails {
	return api.OfferDetails{Offer: ToAPIOffer(d.Offer), Items: ToAPIItems(d.Items), Superseded: d.Superseded}
}

func ToAPIChain(c model.Chain) api.Chain {
	out := api.Chain{Nodes: ToAPIOffers(c.Nodes)}
	if c.Active != nil {
		a := ToAPIOffer(*c.Active)
		out.Active = &a
	}
	return out
}

func FromCreateOffer(r api.CreateOfferRequest) service.CreateOffer {
	return service.CreateOffer{
		TargetID:         r.TargetID,
		OfferedItemIDs:   r.OfferedItemIDs,
		RequestedItemIDs: r.RequestedItemIDs,
		Message:          r.Message,
	}
}

func FromCounterOffer(r api.CounterOfferRequest) service.CounterOffer {
	return service.CounterOffer{
		OfferedItemIDs:   r.OfferedItemIDs,
		RequestedItemIDs: r.RequestedItemIDs,
		Message:          r.Message,
	}
}

func FromListOffers(r api.ListOffersRequest) model.OfferFilter {
	return model.OfferFilter{Role: model.OfferRole(r.Role), Status: model.OfferStatus(r.Status)}
}

// --- interests & chat ---

func ToAPIInterests(in []model.Interest) []api.Interest {
	out := make([]api.Interest, 0, len(in))
	for _, i := range in {
		out = append(out, ToAPIInterest(i))
	}
	return out
}

func ToAPIInterest(i model.Interest) api.Interest {
	return api.Interest{ID: i.ID, OfferID: i.OfferID, UserID: i.UserID, CreatedAt: i.CreatedAt}
}

// ToAPIConversation renders c as seen by viewer, who must be a participant.
func ToAPIConversation(c model.Conversation, viewer uuid.UUID) api.Conversation {
	return api.Conversation{
		ID:            c.ID,
		OfferID:       c.OfferID,
		OfferScoped:   c.OfferID != nil,
		Participants:  c.Participants,
		CounterpartID: c.Counterpart(viewer),
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
	}
}

func ToAPIConversations(in []model.Conversation, viewer uuid.UUID) []api.Conversation {
	out := make([]api.Conversation, 0, len(in))
	for _, c := range in {
		out = append(out, ToAPIConversation(c, viewer))
	}
	return out
}

func ToAPIMessage(m model.Message) api.Message {
	return api.Message{ID: m.ID, ConversationID: m.ConversationID, SenderID: m.SenderID, Content: m.Content, SentAt: m.SentAt}
}

func ToAPIMessagePage(p model.MessagePage) api.MessagePage {
	out := api.MessagePage{Messages: make([]api.Message, 0, len(p.Messages)), NextCursor: p.NextCursor}
	for _, m := range p.Messages {
		out.Messages = append(out.Messages, ToAPIMessage(m))
	}
	return out
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
