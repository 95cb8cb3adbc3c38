package identities

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chicrypt/relay/internal/common"
	"github.com/chicrypt/relay/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const insertQ = `(?s)^\s*INSERT\s+INTO\s+identities\s*\(id,\s*link_token,\s*public_key,\s*public_key_hash,\s*key_type,\s*display_name,\s*fetch_token_hash\)\s*VALUES.*RETURNING\s+created_at\s*$`
const selectQ = `(?s)^\s*SELECT\s+.*FROM\s+identities\s+WHERE\s+link_token\s*=\s*\$1\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()
	mock.ExpectQuery(insertQ).
		WithArgs("id-1", "link_abc", "pk", "pkhash", "ed25519", "Alice", "fthash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	got, err := repo.Create(context.Background(), &models.Identity{
		ID: "id-1", LinkToken: "link_abc", PublicKey: "pk", PublicKeyHash: "pkhash",
		KeyType: "ed25519", DisplayName: "Alice", FetchTokenHash: "fthash",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at not populated: %+v", got)
	}
}

func TestCreate_DuplicateKey(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "identities_public_key_hash_key"})

	_, err := repo.Create(context.Background(), &models.Identity{ID: "id-1"})
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want common.ErrorConflict, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Identity{ID: "id-1"})
	if err == nil || errors.Is(err, common.ErrorConflict) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByLinkToken_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "link_token", "public_key", "public_key_hash", "key_type", "display_name", "fetch_token_hash", "created_at"}).
		AddRow("id-1", "link_abc", "pk", "pkhash", "ed25519", "Alice", "fthash", time.Now())
	mock.ExpectQuery(selectQ).WithArgs("link_abc").WillReturnRows(rows)

	got, err := repo.GetByLinkToken(context.Background(), "link_abc")
	if err != nil {
		t.Fatalf("GetByLinkToken error: %v", err)
	}
	if got.ID != "id-1" || got.DisplayName != "Alice" {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestGetByLinkToken_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQ).WithArgs("link_ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByLinkToken(context.Background(), "link_ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
