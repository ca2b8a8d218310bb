package reservations

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestActive(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	q := `(?s)FROM\s+slug_reservations\s+WHERE\s+slug\s*=\s*\$1\s+AND\s+released_at\s+IS\s+NULL\s+AND\s+expires_at\s*>\s*\$2`

	mock.ExpectQuery(q).WithArgs("cool-tool", now).WillReturnRows(
		sqlmock.NewRows([]string{"id", "slug", "original_owner_user_id", "reason", "reserved_at", "expires_at"}).
			AddRow("r-1", "cool-tool", "u-owner", "restore", now, now.Add(time.Hour)))

	got, err := repo.Active(context.Background(), "cool-tool", now)
	require.NoError(t, err)
	assert.Equal(t, "u-owner", got.OriginalOwnerUserID)

	mock.ExpectQuery(q).WithArgs("free", now).WillReturnError(sql.ErrNoRows)
	_, err = repo.Active(context.Background(), "free", now)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	mock.ExpectQuery(q).WillReturnError(errors.New("boom"))
	_, err = repo.Active(context.Background(), "x", now)
	assert.ErrorContains(t, err, "db error: boom")
}

func TestReserve(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	exp := now.Add(24 * time.Hour)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+slug_reservations.*RETURNING\s+id,\s*reserved_at$`).
		WithArgs("cool-tool", "u-owner", "restore", exp).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reserved_at"}).AddRow("r-1", now))

	got, err := repo.Reserve(context.Background(), &models.Reservation{
		Slug: "cool-tool", OriginalOwnerUserID: "u-owner", Reason: "restore", ExpiresAt: exp,
	})
	require.NoError(t, err)
	assert.Equal(t, "r-1", got.ID)
}

func TestRelease(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectExec(`(?s)^UPDATE\s+slug_reservations\s+SET\s+released_at\s*=\s*\$2\s+WHERE\s+slug\s*=\s*\$1\s+AND\s+released_at\s+IS\s+NULL$`).
		WithArgs("cool-tool", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Release(context.Background(), "cool-tool", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
