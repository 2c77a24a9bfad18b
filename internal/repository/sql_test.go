package repository

import (
	"context"
	"errors"
	"testing"

	"wishlist/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	userA = "11111111-1111-1111-1111-111111111111"
	userB = "22222222-2222-2222-2222-222222222222"
	rowID = "33333333-3333-3333-3333-333333333333"
)

// newMockDB opens gorm on the postgres dialect over sqlmock. Expectations are
// checked when the test ends.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return db, mock
}

func friendshipRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "sender_id", "receiver_id", "pair_key", "status"})
}

func TestFindBetweenForUpdate_LocksPairRowInsideTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	key := model.PairKey(userB, userA)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "friendships" WHERE pair_key = \$1 ORDER BY "friendships"\."id" LIMIT 1 FOR UPDATE`).
		WithArgs(key).
		WillReturnRows(friendshipRows().AddRow(rowID, userB, userA, key, string(model.FriendshipStatusRejected)))
	mock.ExpectCommit()

	var found *model.Friendship
	err := NewTransactor(db).WithinTransaction(context.Background(), func(tx TxRepositories) error {
		var err error
		found, err = tx.Friendships.FindBetweenForUpdate(context.Background(), userA, userB)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, rowID, found.ID)
	assert.Equal(t, model.FriendshipStatusRejected, found.Status)
}

func TestFindBetweenForUpdate_NoRowIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(model.PairKey(userA, userB)).
		WillReturnRows(friendshipRows())

	_, err := NewFriendshipRepository(db, nil).FindBetweenForUpdate(context.Background(), userA, userB)
	assert.True(t, IsNotFound(err))
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("notification insert failed")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := NewTransactor(db).WithinTransaction(context.Background(), func(tx TxRepositories) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRevive_OnlyMovesRejectedRows(t *testing.T) {
	for _, tc := range []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "rejected row revived", affected: 1, want: true},
		{name: "row no longer rejected", affected: 0, want: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)

			mock.ExpectExec(`UPDATE "friendships" SET "receiver_id"=\$1,"sender_id"=\$2,"status"=\$3,"updated_at"=\$4 WHERE id = \$5 AND status = \$6`).
				WithArgs(userB, userA, model.FriendshipStatusPending, sqlmock.AnyArg(), rowID, model.FriendshipStatusRejected).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			revived, err := NewFriendshipRepository(db, nil).Revive(context.Background(), rowID, userA, userB)
			require.NoError(t, err)
			assert.Equal(t, tc.want, revived)
		})
	}
}

func TestTransition_GuardsReceiverAndStatus(t *testing.T) {
	for _, tc := range []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "pending request answered", affected: 1, want: true},
		{name: "lost the race", affected: 0, want: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)

			mock.ExpectExec(`UPDATE "friendships" SET "status"=\$1,"updated_at"=\$2 WHERE id = \$3 AND receiver_id = \$4 AND status = \$5`).
				WithArgs(model.FriendshipStatusAccepted, sqlmock.AnyArg(), rowID, userB, model.FriendshipStatusPending).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			moved, err := NewFriendshipRepository(db, nil).
				Transition(context.Background(), rowID, userB, model.FriendshipStatusPending, model.FriendshipStatusAccepted)
			require.NoError(t, err)
			assert.Equal(t, tc.want, moved)
		})
	}
}

func TestTransition_PropagatesDatabaseErrors(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE "friendships"`).WillReturnError(errors.New("connection reset"))

	moved, err := NewFriendshipRepository(db, nil).
		Transition(context.Background(), rowID, userB, model.FriendshipStatusPending, model.FriendshipStatusRejected)
	assert.Error(t, err)
	assert.False(t, moved)
}

func TestDeleteAcceptedBetween_OnlyDeletesAcceptedRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFriendshipRepository(db, nil)
	key := model.PairKey(userA, userB)

	mock.ExpectExec(`DELETE FROM "friendships" WHERE pair_key = \$1 AND status = \$2`).
		WithArgs(key, model.FriendshipStatusAccepted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "friendships" WHERE pair_key = \$1 AND status = \$2`).
		WithArgs(key, model.FriendshipStatusAccepted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteAcceptedBetween(context.Background(), userB, userA)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	deleted, err = repo.DeleteAcceptedBetween(context.Background(), userA, userB)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestFindPendingByReceiverID_FiltersOnReceiverAndStatus(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "friendships" WHERE receiver_id = \$1 AND status = \$2 ORDER BY updated_at DESC`).
		WithArgs(userB, model.FriendshipStatusPending).
		WillReturnRows(friendshipRows().AddRow(rowID, userA, userB, model.PairKey(userA, userB), string(model.FriendshipStatusPending)))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"\."id" = \$1`).
		WithArgs(userA).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(userA, "Alice", "alice@example.com"))

	pending, err := NewFriendshipRepository(db, nil).FindPendingByReceiverID(context.Background(), userB)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].Sender)
	assert.Equal(t, "Alice", pending[0].Sender.Name)
}

func TestUserSearch_EscapesWildcardsAndExcludesCaller(t *testing.T) {
	db, mock := newMockDB(t)
	pattern := `%50\%\_off%`

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id <> \$1 AND \(name ILIKE \$2 OR email ILIKE \$3\) ORDER BY name ASC LIMIT 10`).
		WithArgs(userA, pattern, pattern).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(userB, "50%_off Bob", "bob@example.com"))

	users, err := NewUserRepository(db).Search(context.Background(), "50%_off", userA, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, userB, users[0].ID)
}

func TestNotificationMarkAsRead_IsScopedToUnreadRecipientRow(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE "notifications" SET "is_read"=\$1 WHERE id = \$2 AND notified_id = \$3 AND is_read = \$4`).
		WithArgs(true, rowID, userB, false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := NewNotificationRepository(db, nil).MarkAsRead(context.Background(), rowID, userB)
	require.NoError(t, err)
	assert.Zero(t, affected)
}
