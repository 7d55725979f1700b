package errs

import (
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
)

// ItemsError reports a failure tied to specific items so callers can tell the user
// which items to drop from a bundle.
type ItemsError struct {
	Kind    error // one of the package sentinels
	Reason  string
	ItemIDs []uuid.UUID
}

// Items builds an ItemsError of the given kind.
func Items(kind error, reason string, ids ...uuid.UUID) *ItemsError {
	return &ItemsError{Kind: kind, Reason: reason, ItemIDs: ids}
}

func (e *ItemsError) Error() string {
	ids := make([]string, len(e.ItemIDs))
	for i, id := range e.ItemIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%v: %s [%s]", e.Kind, e.Reason, strings.Join(ids, ","))
}

func (e *ItemsError) Unwrap() error { return e.Kind }
