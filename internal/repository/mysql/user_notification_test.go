package mysql

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (BaseRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewBaseRepository(sqlx.NewDb(db, "mysql")), mock
}

func TestMarkClickedBackfillsReadState(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewUserNotificationRepository(base)

	id := uuid.New()
	userID := uuid.New()
	at := time.Now().UTC()

	// The same timestamp feeds both COALESCE slots, so a freshly clicked
	// record gets read_at equal to clicked_at and an already-read record
	// keeps its earlier read_at.
	mock.ExpectExec(regexp.QuoteMeta("clicked_at = COALESCE(clicked_at, ?)")+
		".*"+regexp.QuoteMeta("read_at = COALESCE(read_at, ?)")).
		WithArgs(at, at, id, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	clicked, err := repo.MarkClicked(context.Background(), id, userID, at)

	require.NoError(t, err)
	assert.True(t, clicked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkClickedUnknownRecord(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewUserNotificationRepository(base)

	mock.ExpectExec("UPDATE user_notifications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	clicked, err := repo.MarkClicked(context.Background(), uuid.New(), uuid.New(), time.Now().UTC())

	require.NoError(t, err)
	assert.False(t, clicked)
}

func TestMarkReadKeepsFirstReadTimestamp(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewUserNotificationRepository(base)

	id := uuid.New()
	userID := uuid.New()
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("read_at = COALESCE(read_at, ?)")).
		WithArgs(at, id, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	read, err := repo.MarkRead(context.Background(), id, userID, at)

	require.NoError(t, err)
	assert.True(t, read)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateIgnoresDuplicateRecipients(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewUserNotificationRepository(base)

	notificationID := uuid.New()
	userIDs := []uuid.UUID{uuid.New(), uuid.New()}
	deliveredAt := time.Now().UTC()

	// One of the two recipients already has a record; INSERT IGNORE reports
	// only the new row.
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO user_notifications")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.BulkCreate(context.Background(), notificationID, userIDs, deliveredAt)

	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.NoError(t, mock.ExpectationsWereMet())
}
