package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/model"
)

var itemColumns = []string{"id", "owner_id", "title", "description", "condition", "category",
	"type", "image_refs", "status", "created_at", "updated_at"}

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.Must(uuid.NewV7())
	}
	return out
}

func itemRow(rows *pgxmock.Rows, id, owner uuid.UUID, status string) *pgxmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(id, owner, "bike", "red", "used", "sport", "good", []string{"img/1"}, status, now, now)
}

func TestItemRepo_Create_OK_And_Duplicate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStore(db).Items()

	now := time.Now().UTC()
	it := &model.Item{ID: ids(1)[0], OwnerID: ids(1)[0], Title: "bike", Status: model.ItemAvailable, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(`INSERT INTO items`).
		WithArgs(it.ID, it.OwnerID, "bike", "", "", "", "", []string{}, "AVAILABLE", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(context.Background(), it))

	mock.ExpectExec(`INSERT INTO items`).
		WithArgs(it.ID, it.OwnerID, "bike", "", "", "", "", []string{}, "AVAILABLE", now, now).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(context.Background(), it), errs.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_Get_OK_And_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStore(db).Items()

	id, owner := ids(1)[0], ids(1)[0]
	mock.ExpectQuery(`FROM items WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(itemRow(pgxmock.NewRows(itemColumns), id, owner, "DELETED"))

	it, err := r.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, owner, it.OwnerID)
	require.Equal(t, model.ItemDeleted, it.Status)
	require.Equal(t, []string{"img/1"}, it.ImageRefs)

	mock.ExpectQuery(`FROM items WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(context.Background(), id)
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`FROM items WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(errors.New("io"))
	_, err = r.Get(context.Background(), id)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestItemRepo_LockMany_OrdersAndLocks(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStore(db).Items()

	in := ids(2)
	owner := ids(1)[0]
	rows := pgxmock.NewRows(itemColumns)
	itemRow(rows, in[0], owner, "AVAILABLE")
	itemRow(rows, in[1], owner, "EXCHANGED")
	mock.ExpectQuery(`WHERE id = ANY\(\$1::uuid\[\]\) ORDER BY id FOR UPDATE`).
		WithArgs(idStrings(in)).
		WillReturnRows(rows)

	got, err := r.LockMany(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, model.ItemExchanged, got[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_GetMany_EmptyInputSkipsQuery(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStore(db).Items()

	got, err := r.GetMany(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
	n, err := r.UpdateStatus(context.Background(), nil, model.ItemAvailable, model.ItemExchanged)
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_ListByOwner_RowsErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStore(db).Items()

	owner := ids(1)[0]
	rows := itemRow(pgxmock.NewRows(itemColumns), ids(1)[0], owner, "AVAILABLE").
		RowError(0, errors.New("row broke"))
	mock.ExpectQuery(`WHERE owner_id=\$1 AND \(\$2 OR status <> 'DELETED'\)`).
		WithArgs(owner, false).
		WillReturnRows(rows)

	_, err := r.ListByOwner(context.Background(), owner, false)
	require.Error(t, err)
}

func TestItemRepo_UpdateStatus_ReportsRows(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStore(db).Items()

	in := ids(3)
	mock.ExpectExec(`UPDATE items SET status=\$3`).
		WithArgs(idStrings(in), "AVAILABLE", "EXCHANGED").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := r.UpdateStatus(context.Background(), in, model.ItemAvailable, model.ItemExchanged)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}
