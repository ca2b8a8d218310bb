package fingerprints

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+version_fingerprints\s*\(package_id,\s*version_id,\s*fingerprint\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+id,\s*created_at$`
	now := time.Now()
	mock.ExpectQuery(q).WithArgs("p-1", "v-1", "fp").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("f-1", now))

	got, err := repo.Create(context.Background(), &models.FingerprintEntry{PackageID: "p-1", VersionID: "v-1", Fingerprint: "fp"})
	require.NoError(t, err)
	assert.Equal(t, "f-1", got.ID)

	mock.ExpectQuery(q).WillReturnError(errors.New("dup"))
	_, err = repo.Create(context.Background(), &models.FingerprintEntry{PackageID: "p-1", VersionID: "v-1", Fingerprint: "fp"})
	assert.ErrorContains(t, err, "db error: dup")
}

func TestFindByPackageAndFingerprint_NewestFirst(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "package_id", "version_id", "fingerprint", "created_at"}).
		AddRow("f-2", "p-1", "v-2", "fp", now).
		AddRow("f-1", "p-1", "v-1", "fp", now.Add(-time.Minute))
	mock.ExpectQuery(`(?s)WHERE\s+package_id\s*=\s*\$1\s+AND\s+fingerprint\s*=\s*\$2\s+ORDER\s+BY\s+created_at\s+DESC,\s*id\s+DESC\s+LIMIT\s+\$3$`).
		WithArgs("p-1", "fp", 25).
		WillReturnRows(rows)

	got, err := repo.FindByPackageAndFingerprint(context.Background(), "p-1", "fp", 25)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "v-2", got[0].VersionID)
}

func TestFindByPackageAndFingerprint_Errors(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+version_fingerprints`).WillReturnError(errors.New("db err"))
	_, err := repo.FindByPackageAndFingerprint(context.Background(), "p-1", "fp", 25)
	assert.ErrorContains(t, err, "db error: db err")

	rows := sqlmock.NewRows([]string{"id", "package_id", "version_id", "fingerprint", "created_at"}).
		AddRow("f-1", "p-1", "v-1", "fp", time.Now()).
		RowError(0, errors.New("row broke"))
	mock.ExpectQuery(`FROM\s+version_fingerprints`).WillReturnRows(rows)
	_, err = repo.FindByPackageAndFingerprint(context.Background(), "p-1", "fp", 25)
	assert.ErrorContains(t, err, "row broke")
}

func TestDeleteByPackage(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`^DELETE\s+FROM\s+version_fingerprints\s+WHERE\s+package_id\s*=\s*\$1$`).
		WithArgs("p-1").WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteByPackage(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
