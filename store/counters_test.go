package store

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return New(db), mock
}

// The open counter must COALESCE opened_at so only the first open stamps
// the timestamp.
func TestIncrementEmailOpenStampsFirstOpenOnly(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`UPDATE emails SET open_count = open_count \+ 1, opened_at = COALESCE\(opened_at, .+\) WHERE id = .+`).
		WithArgs(sqlmock.AnyArg(), uint(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.IncrementEmailOpen(7, Now()))
}

func TestIncrementCampaignSentIsAtomicExpression(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`UPDATE "campaigns" SET .*sent_count.*\+.*1.*WHERE id = .+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.IncrementCampaignSent(3))
}

func TestIncrementVariantStatParameterizedColumn(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`UPDATE "sequence_variants" SET .*open_count.*\+.*1.*`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.IncrementVariantStat(11, VariantColumnOpened))
}

func TestInboxBounceRate(t *testing.T) {
	rate, ok := InboxBounceRate(0, 0)
	require.False(t, ok)
	require.Zero(t, rate)

	rate, ok = InboxBounceRate(200, 8)
	require.True(t, ok)
	require.InDelta(t, 0.04, rate, 1e-9)
}
