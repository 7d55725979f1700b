package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func TestItemsError_UnwrapsToKind(t *testing.T) {
	t.Parallel()

	id := uuid.Must(uuid.NewV7())
	err := fmt.Errorf("accept: %w", Items(ErrConflict, "items unavailable", id))

	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrValidation)

	var ie *ItemsError
	require.True(t, errors.As(err, &ie))
	require.Equal(t, []uuid.UUID{id}, ie.ItemIDs)
	require.Contains(t, err.Error(), id.String())
	require.Contains(t, err.Error(), "conflict: items unavailable")
}
