package httpserver

import (
	"net/http"
	"strconv"

	"github.com/barterhub/barter/internal/api"
	"github.com/barterhub/barter/internal/convert"
)

// --- items ---

func (h *handlers) createItem(w http.ResponseWriter, r *http.Request) {
	var req api.CreateItemRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	it, err := h.svc.Items.Create(r.Context(), actor(r), convert.FromCreateItem(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToAPIItem(*it))
}

func (h *handlers) listItems(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("include_deleted"))
	items, err := h.svc.Items.ListMine(r.Context(), actor(r), all)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Items{Items: convert.ToAPIItems(items)})
}

func (h *handlers) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	it, err := h.svc.Items.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAPIItem(*it))
}

func (h *handlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	it, err := h.svc.Items.SoftDelete(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAPIItem(*it))
}

func (h *handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	var req api.CheckAvailabilityRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	av, err := h.svc.Items.CheckAvailability(r.Context(), req.ItemIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Availabilities{Items: convert.ToAPIAvailability(av)})
}

// --- offers ---

func (h *handlers) createOffer(w http.ResponseWriter, r *http.Request) {
	var req api.CreateOfferRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.svc.Offers.Create(r.Context(), actor(r), convert.FromCreateOffer(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToAPIOffer(*o))
}

func (h *handlers) counterOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req api.CounterOfferRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.svc.Offers.Counter(r.Context(), actor(r), id, convert.FromCounterOffer(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToAPIOffer(*o))
}

func (h *handlers) acceptOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Offers.Accept)
}

func (h *handlers) completeOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Offers.Complete)
}

func (h *handlers) cancelOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req api.CancelOfferRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.svc.Offers.Cancel(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAPIOffer(*o))
}

func (h *handlers) getOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.Offers.Get(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAPIOfferDetails(*d))
}

func (h *handlers) offerChain(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.Offers.Chain(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAPIChain(*c))
}

func (h *handlers) listOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := convert.FromListOffers(api.ListOffersRequest{Role: q.Get("role"), Status: q.Get("status")})
	list, err := h.svc.Offers.ListMine(r.Context(), actor(r), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Offers{Offers: convert.ToAPIOffers(list)})
}

func (h *handlers) listBroadcast(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.svc.Offers.ListBroadcast(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Offers{Offers: convert.ToAPIOffers(list)})
}

// --- interests ---

func (h *handlers) createInterest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := h.svc.Interests.Create(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToAPIInterest(*in))
}

func (h *handlers) listInterests(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.svc.Interests.ListForOffer(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Interests{Interests: convert.ToAPIInterests(list)})
}

func (h *handlers) listMyInterests(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Interests.ListMine(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Interests{Interests: convert.ToAPIInterests(list)})
}

// --- chat ---

func (h *handlers) getOrCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req api.ConversationRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.Chat.GetOrCreate(r.Context(), actor(r), req.OfferID, req.OtherUserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAPIConversation(*c, actor(r)))
}

func (h *handlers) listConversations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Chat.ListConversations(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Conversations{Conversations: convert.ToAPIConversations(list, actor(r))})
}

func (h *handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req api.SendMessageRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.svc.Chat.Send(r.Context(), actor(r), id, req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToAPIMessage(*m))
}

func (h *handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.Chat.ListMessages(r.Context(), actor(r), id, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAPIMessagePage(*p))
}
