package main

import (
	"context"
	"errors"
	"flag"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/barterhub/barter/internal/api"
	grpcserver "github.com/barterhub/barter/internal/server/grpc"
)

var errUsage = errors.New("usage")

// runner executes one subcommand and keeps the trailer of the last call.
type runner struct {
	cl      *grpcserver.Client
	trailer metadata.MD
}

func call[Resp any](ctx context.Context, r *runner, method string, in any) (*Resp, error) {
	return grpcserver.Invoke[Resp](ctx, r.cl, method, in, grpc.Trailer(&r.trailer))
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// run dispatches "<group> <action> [flags]" and returns the decoded response.
func (r *runner) run(ctx context.Context, group, action string, args []string) (any, error) {
	switch group {
	case "item":
		return r.item(ctx, action, args)
	case "offer":
		return r.offer(ctx, action, args)
	case "interest":
		return r.interest(ctx, action, args)
	case "chat":
		return r.chat(ctx, action, args)
	}
	return nil, errUsage
}

func (r *runner) item(ctx context.Context, action string, args []string) (any, error) {
	fs := newFlags("item " + action)
	switch action {
	case "create":
		title := fs.String("title", "", "title")
		desc := fs.String("desc", "", "description")
		cond := fs.String("condition", "", "condition")
		cat := fs.String("category", "", "category")
		typ := fs.String("type", "", "type")
		images := fs.String("images", "", "comma separated image refs")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		req := api.CreateItemRequest{Title: *title, Description: *desc, Condition: *cond, Category: *cat, Type: *typ}
		if *images != "" {
			req.ImageRefs = splitComma(*images)
		}
		return call[api.Item](ctx, r, "ItemCreate", req)
	case "list":
		all := fs.Bool("all", false, "include deleted")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return call[api.Items](ctx, r, "ItemListMine", api.ListItemsRequest{IncludeDeleted: *all})
	case "get", "rm":
		id, err := idFlag(fs, "id", args)
		if err != nil {
			return nil, err
		}
		method := "ItemGet"
		if action == "rm" {
			method = "ItemSoftDelete"
		}
		return call[api.Item](ctx, r, method, api.IDRequest{ID: id})
	case "check":
		raw := fs.String("ids", "", "comma separated item ids")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		ids, err := parseIDs(*raw)
		if err != nil {
			return nil, err
		}
		return call[api.Availabilities](ctx, r, "ItemCheckAvailability", api.CheckAvailabilityRequest{ItemIDs: ids})
	}
	return nil, errUsage
}

func (r *runner) offer(ctx context.Context, action string, args []string) (any, error) {
	fs := newFlags("offer " + action)
	switch action {
	case "create", "counter":
		to := fs.String("to", "", "target user (create; empty broadcasts)")
		parent := fs.String("parent", "", "offer being countered (counter)")
		give := fs.String("give", "", "offered item ids")
		want := fs.String("want", "", "requested item ids")
		msg := fs.String("msg", "", "message")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		offered, err := parseIDs(*give)
		if err != nil {
			return nil, err
		}
		requested, err := parseIDs(*want)
		if err != nil {
			return nil, err
		}
		if action == "counter" {
			pid, err := parseOptID(*parent)
			if err != nil {
				return nil, err
			}
			if pid == nil {
				return nil, errors.New("need -parent")
			}
			return call[api.Offer](ctx, r, "OfferCounter", api.CounterOfferRequest{
				ParentID: *pid, OfferedItemIDs: offered, RequestedItemIDs: requested, Message: *msg,
			})
		}
		target, err := parseOptID(*to)
		if err != nil {
			return nil, err
		}
		return call[api.Offer](ctx, r, "OfferCreate", api.CreateOfferRequest{
			TargetID: target, OfferedItemIDs: offered, RequestedItemIDs: requested, Message: *msg,
		})
	case "accept", "complete":
		id, err := idFlag(fs, "id", args)
		if err != nil {
			return nil, err
		}
		method := "OfferAccept"
		if action == "complete" {
			method = "OfferComplete"
		}
		return call[api.Offer](ctx, r, method, api.IDRequest{ID: id})
	case "cancel":
		reason := fs.String("reason", "", "cancel reason")
		id, err := idFlag(fs, "id", args)
		if err != nil {
			return nil, err
		}
		return call[api.Offer](ctx, r, "OfferCancel", api.CancelOfferRequest{ID: id, Reason: *reason})
	case "get":
		id, err := idFlag(fs, "id", args)
		if err != nil {
			return nil, err
		}
		return call[api.OfferDetails](ctx, r, "OfferGet", api.IDRequest{ID: id})
	case "chain":
		id, err := idFlag(fs, "id", args)
		if err != nil {
			return nil, err
		}
		return call[api.Chain](ctx, r, "OfferChain", api.IDRequest{ID: id})
	case "list":
		role := fs.String("role", "", "initiator or target")
		st := fs.String("status", "", "PENDING, ACCEPTED, COMPLETED or CANCELLED")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return call[api.Offers](ctx, r, "OfferListMine", api.ListOffersRequest{Role: *role, Status: *st})
	case "broadcast":
		limit := fs.Int("limit", 0, "page size")
		offset := fs.Int("offset", 0, "offset")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return call[api.Offers](ctx, r, "OfferListBroadcast", api.ListBroadcastRequest{Limit: *limit, Offset: *offset})
	}
	return nil, errUsage
}

func (r *runner) interest(ctx context.Context, action string, args []string) (any, error) {
	fs := newFlags("interest " + action)
	switch action {
	case "add":
		id, err := idFlag(fs, "offer", args)
		if err != nil {
			return nil, err
		}
		return call[api.Interest](ctx, r, "InterestCreate", api.CreateInterestRequest{OfferID: id})
	case "list":
		id, err := idFlag(fs, "offer", args)
		if err != nil {
			return nil, err
		}
		return call[api.Interests](ctx, r, "InterestListForOffer", api.IDRequest{ID: id})
	case "mine":
		return call[api.Interests](ctx, r, "InterestListMine", api.Empty{})
	}
	return nil, errUsage
}

func (r *runner) chat(ctx context.Context, action string, args []string) (any, error) {
	fs := newFlags("chat " + action)
	switch action {
	case "open":
		offer := fs.String("offer", "", "offer id")
		user := fs.String("user", "", "other user id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		oid, err := parseOptID(*offer)
		if err != nil {
			return nil, err
		}
		uid, err := parseOptID(*user)
		if err != nil {
			return nil, err
		}
		return call[api.Conversation](ctx, r, "ChatGetOrCreate", api.ConversationRequest{OfferID: oid, OtherUserID: uid})
	case "send":
		text := fs.String("text", "", "message")
		id, err := idFlag(fs, "conv", args)
		if err != nil {
			return nil, err
		}
		return call[api.Message](ctx, r, "ChatSend", api.SendMessageRequest{ConversationID: id, Content: *text})
	case "messages":
		cursor := fs.String("cursor", "", "next_cursor of the previous page")
		limit := fs.Int("limit", 0, "page size")
		id, err := idFlag(fs, "conv", args)
		if err != nil {
			return nil, err
		}
		return call[api.MessagePage](ctx, r, "ChatListMessages", api.ListMessagesRequest{
			ConversationID: id, Cursor: *cursor, Limit: *limit,
		})
	case "list":
		return call[api.Conversations](ctx, r, "ChatListConversations", api.Empty{})
	}
	return nil, errUsage
}
