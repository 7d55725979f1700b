package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// unary builds a method descriptor that decodes Req and dispatches to call.
func unary[Req, Resp any](name string, call func(Barter, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			b := srv.(Barter)
			if ic == nil {
				return call(b, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(b, ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes the barter service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Barter)(nil),
	Methods: []grpc.MethodDesc{
		unary("ItemCreate", Barter.ItemCreate),
		unary("ItemGet", Barter.ItemGet),
		unary("ItemListMine", Barter.ItemListMine),
		unary("ItemSoftDelete", Barter.ItemSoftDelete),
		unary("ItemCheckAvailability", Barter.ItemCheckAvailability),

		unary("OfferCreate", Barter.OfferCreate),
		unary("OfferCounter", Barter.OfferCounter),
		unary("OfferAccept", Barter.OfferAccept),
		unary("OfferComplete", Barter.OfferComplete),
		unary("OfferCancel", Barter.OfferCancel),
		unary("OfferGet", Barter.OfferGet),
		unary("OfferChain", Barter.OfferChain),
		unary("OfferListMine", Barter.OfferListMine),
		unary("OfferListBroadcast", Barter.OfferListBroadcast),

		unary("InterestCreate", Barter.InterestCreate),
		unary("InterestListForOffer", Barter.InterestListForOffer),
		unary("InterestListMine", Barter.InterestListMine),

		unary("ChatGetOrCreate", Barter.ChatGetOrCreate),
		unary("ChatSend", Barter.ChatSend),
		unary("ChatListMessages", Barter.ChatListMessages),
		unary("ChatListConversations", Barter.ChatListConversations),
	},
	Metadata: "barter/v1/barter.json",
}

// Client calls the barter service. The connection must use the JSON codec, see
// CallOptions.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// CallOptions selects the JSON codec; pass to grpc.WithDefaultCallOptions.
func CallOptions() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(CodecName)}
}

// Call invokes method with in and decodes into out.
func (c *Client) Call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append(CallOptions(), opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

// Invoke is a typed Call.
func Invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := c.Call(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
