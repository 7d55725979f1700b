package service

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/barterhub/barter/internal/model"
)

// EncodeCursor renders a keyset position as an opaque URL-safe token.
func EncodeCursor(c model.MessageCursor) string {
	raw := strconv.FormatInt(c.SentAt.UnixMicro(), 10) + ":" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(s string) (model.MessageCursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return model.MessageCursor{}, invalid("bad cursor")
	}
	ts, id, ok := strings.Cut(string(b), ":")
	if !ok {
		return model.MessageCursor{}, invalid("bad cursor")
	}
	us, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return model.MessageCursor{}, invalid("bad cursor")
	}
	uid, err := uuid.FromString(id)
	if err != nil {
		return model.MessageCursor{}, invalid("bad cursor")
	}
	return model.MessageCursor{SentAt: time.UnixMicro(us).UTC(), ID: uid}, nil
}
