// Package grpcserver exposes the marketplace over gRPC with a JSON codec.
package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/barterhub/barter/internal/api"
	"github.com/barterhub/barter/internal/convert"
	"github.com/barterhub/barter/internal/model"
	"github.com/barterhub/barter/internal/service"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "barter.v1.Barter"

// Barter is the RPC surface. Every method needs an authenticated caller.
type Barter interface {
	ItemCreate(context.Context, *api.CreateItemRequest) (*api.Item, error)
	ItemGet(context.Context, *api.IDRequest) (*api.Item, error)
	ItemListMine(context.Context, *api.ListItemsRequest) (*api.Items, error)
	ItemSoftDelete(context.Context, *api.IDRequest) (*api.Item, error)
	ItemCheckAvailability(context.Context, *api.CheckAvailabilityRequest) (*api.Availabilities, error)

	OfferCreate(context.Context, *api.CreateOfferRequest) (*api.Offer, error)
	OfferCounter(context.Context, *api.CounterOfferRequest) (*api.Offer, error)
	OfferAccept(context.Context, *api.IDRequest) (*api.Offer, error)
	OfferComplete(context.Context, *api.IDRequest) (*api.Offer, error)
	OfferCancel(context.Context, *api.CancelOfferRequest) (*api.Offer, error)
	OfferGet(context.Context, *api.IDRequest) (*api.OfferDetails, error)
	OfferChain(context.Context, *api.IDRequest) (*api.Chain, error)
	OfferListMine(context.Context, *api.ListOffersRequest) (*api.Offers, error)
	OfferListBroadcast(context.Context, *api.ListBroadcastRequest) (*api.Offers, error)

	InterestCreate(context.Context, *api.CreateInterestRequest) (*api.Interest, error)
	InterestListForOffer(context.Context, *api.IDRequest) (*api.Interests, error)
	InterestListMine(context.Context, *api.Empty) (*api.Interests, error)

	ChatGetOrCreate(context.Context, *api.ConversationRequest) (*api.Conversation, error)
	ChatSend(context.Context, *api.SendMessageRequest) (*api.Message, error)
	ChatListMessages(context.Context, *api.ListMessagesRequest) (*api.MessagePage, error)
	ChatListConversations(context.Context, *api.Empty) (*api.Conversations, error)
}

// Server wires services into gRPC handlers.
type Server struct {
	svc service.Services
}

var _ Barter = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(svc service.Services) *Server {
	return &Server{svc: svc}
}

// Register attaches srv to gs.
func Register(gs grpc.ServiceRegistrar, srv Barter) {
	gs.RegisterService(&ServiceDesc, srv)
}

// --- Items ---

func (s *Server) ItemCreate(ctx context.Context, req *api.CreateItemRequest) (*api.Item, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	it, err := s.svc.Items.Create(ctx, me, convert.FromCreateItem(*req))
	if err != nil {
		return nil, err
	}
	out := convert.ToAPIItem(*it)
	return &out, nil
}

func (s *Server) ItemGet(ctx context.Context, req *api.IDRequest) (*api.Item, error) {
	if _, err := actor(ctx); err != nil {
		return nil, err
	}
	it, err := s.svc.Items.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	out := convert.ToAPIItem(*it)
	return &out, nil
}

func (s *Server) ItemListMine(ctx context.Context, req *api.ListItemsRequest) (*api.Items, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.svc.Items.ListMine(ctx, me, req.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	return &api.Items{Items: convert.ToAPIItems(items)}, nil
}

func (s *Server) ItemSoftDelete(ctx context.Context, req *api.IDRequest) (*api.Item, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	it, err := s.svc.Items.SoftDelete(ctx, me, req.ID)
	if err != nil {
		return nil, err
	}
	out := convert.ToAPIItem(*it)
	return &out, nil
}

func (s *Server) ItemCheckAvailability(ctx context.Context, req *api.CheckAvailabilityRequest) (*api.Availabilities, error) {
	if _, err := actor(ctx); err != nil {
		return nil, err
	}
	av, err := s.svc.Items.CheckAvailability(ctx, req.ItemIDs)
	if err != nil {
		return nil, err
	}
	return &api.Availabilities{Items: convert.ToAPIAvailability(av)}, nil
}

// --- Offers ---

func (s *Server) OfferCreate(ctx context.Context, req *api.CreateOfferRequest) (*api.Offer, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	return offerResult(s.svc.Offers.Create(ctx, me, convert.FromCreateOffer(*req)))
}

func (s *Server) OfferCounter(ctx context.Context, req *api.CounterOfferRequest) (*api.Offer, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	return offerResult(s.svc.Offers.Counter(ctx, me, req.ParentID, convert.FromCounterOffer(*req)))
}

func (s *Server) OfferAccept(ctx context.Context, req *api.IDRequest) (*api.Offer, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	return offerResult(s.svc.Offers.Accept(ctx, me, req.ID))
}

func (s *Server) OfferComplete(ctx context.Context, req *api.IDRequest) (*api.Offer, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	return offerResult(s.svc.Offers.Complete(ctx, me, req.ID))
}

func (s *Server) OfferCancel(ctx context.Context, req *api.CancelOfferRequest) (*api.Offer, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	return offerResult(s.svc.Offers.Cancel(ctx, me, req.ID, req.Reason))
}

func (s *Server) OfferGet(ctx context.Context, req *api.IDRequest) (*api.OfferDetails, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.svc.Offers.Get(ctx, me, req.ID)
	if err != nil {
		return nil, err
	}
	out := convert.ToAPIOfferDetails(*d)
	return &out, nil
}

func (s *Server) OfferChain(ctx context.Context, req *api.IDRequest) (*api.Chain, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.svc.Offers.Chain(ctx, me, req.ID)
	if err != nil {
		return nil, err
	}
	out := convert.ToAPIChain(*c)
	return &out, nil
}

func (s *Server) OfferListMine(ctx context.Context, req *api.ListOffersRequest) (*api.Offers, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.svc.Offers.ListMine(ctx, me, convert.FromListOffers(*req))
	if err != nil {
		return nil, err
	}
	return &api.Offers{Offers: convert.ToAPIOffers(list)}, nil
}

func (s *Server) OfferListBroadcast(ctx context.Context, req *api.ListBroadcastRequest) (*api.Offers, error) {
	if _, err := actor(ctx); err != nil {
		return nil, err
	}
	list, err := s.svc.Offers.ListBroadcast(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	return &api.Offers{Offers: convert.ToAPIOffers(list)}, nil
}

// --- Interests ---

func (s *Server) InterestCreate(ctx context.Context, req *api.CreateInterestRequest) (*api.Interest, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	in, err := s.svc.Interests.Create(ctx, me, req.OfferID)
	if err != nil {
		return nil, err
	}
	out := convert.ToAPIInterest(*in)
	return &out, nil
}

func (s *Server) InterestListForOffer(ctx context.Context, req *api.IDRequest) (*api.Interests, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.svc.Interests.ListForOffer(ctx, me, req.ID)
	if err != nil {
		return nil, err
	}
	return &api.Interests{Interests: convert.ToAPIInterests(list)}, nil
}

func (s *Server) InterestListMine(ctx context.Context, _ *api.Empty) (*api.Interests, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.svc.Interests.ListMine(ctx, me)
	if err != nil {
		return nil, err
	}
	return &api.Interests{Interests: convert.ToAPIInterests(list)}, nil
}

// --- Chat ---

func (s *Server) ChatGetOrCreate(ctx context.Context, req *api.ConversationRequest) (*api.Conversation, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.svc.Chat.GetOrCreate(ctx, me, req.OfferID, req.OtherUserID)
	if err != nil {
		return nil, err
	}
	out := convert.ToAPIConversation(*c, me)
	return &out, nil
}

func (s *Server) ChatSend(ctx context.Context, req *api.SendMessageRequest) (*api.Message, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.svc.Chat.Send(ctx, me, req.ConversationID, req.Content)
	if err != nil {
		return nil, err
	}
	out := convert.ToAPIMessage(*m)
	return &out, nil
}

func (s *Server) ChatListMessages(ctx context.Context, req *api.ListMessagesRequest) (*api.MessagePage, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Chat.ListMessages(ctx, me, req.ConversationID, req.Cursor, req.Limit)
	if err != nil {
		return nil, err
	}
	out := convert.ToAPIMessagePage(*p)
	return &out, nil
}

func (s *Server) ChatListConversations(ctx context.Context, _ *api.Empty) (*api.Conversations, error) {
	me, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.svc.Chat.ListConversations(ctx, me)
	if err != nil {
		return nil, err
	}
	return &api.Conversations{Conversations: convert.ToAPIConversations(list, me)}, nil
}

func offerResult(o *model.Offer, err error) (*api.Offer, error) {
	if err != nil {
		return nil, err
	}
	out := convert.ToAPIOffer(*o)
	return &out, nil
}
