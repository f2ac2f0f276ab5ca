package repository

import (
    "context"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestDebitPoints(t *testing.T) {
    db, mock := newMock(t)
    repo := NewUserRepo(db)

    mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET points = points - ?")).
        WithArgs(int64(100), uint64(5), int64(100)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO point_ledger")).
        WithArgs(uint64(5), int64(-100), "code purchase").
        WillReturnResult(sqlmock.NewResult(1, 1))
    ok, err := repo.DebitPoints(context.Background(), 5, 100, "code purchase")
    require.NoError(t, err)
    assert.True(t, ok)

    // Insufficient balance: no ledger row is written.
    mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET points = points - ?")).
        WillReturnResult(sqlmock.NewResult(0, 0))
    ok, err = repo.DebitPoints(context.Background(), 5, 100, "code purchase")
    require.NoError(t, err)
    assert.False(t, ok)
}

func TestDebitPointsRejectsNonPositiveAmount(t *testing.T) {
    db, _ := newMock(t)
    repo := NewUserRepo(db)

    // No statement may reach the database; newMock fails on unexpected calls.
    for _, amount := range []int64{0, -100} {
        ok, err := repo.DebitPoints(context.Background(), 5, amount, "code purchase")
        assert.ErrorIs(t, err, ErrInvalidAmount, "amount %d", amount)
        assert.False(t, ok)
    }
}

func TestUserGetByIDWithAPIKey(t *testing.T) {
    db, mock := newMock(t)
    now := time.Now().UTC()
    mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
        WithArgs(uint64(5)).
        WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "points", "external_api_key", "is_active", "created_at", "updated_at"}).
            AddRow(int64(5), "a@b.io", "hash", "CUSTOMER", int64(300), "sk-1", true, now, now))

    u, err := NewUserRepo(db).GetByID(context.Background(), 5)
    require.NoError(t, err)
    assert.True(t, u.HasAPIKey())
    assert.Equal(t, int64(300), u.Points)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
        WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.io' for key 'users.uniq_email'"})

    _, err := NewUserRepo(db).Create(context.Background(), " A@b.io ", "pw123456", "CUSTOMER", 4)
    assert.ErrorIs(t, err, ErrEmailExists)
}

func TestOrderMarkPaidOnlyOnce(t *testing.T) {
    db, mock := newMock(t)
    repo := NewOrderRepo(db)
    at := time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)

    mock.ExpectExec(regexp.QuoteMeta("WHERE trade_no = ? AND status = 'PENDING'")).
        WithArgs("GW1", at, "TC1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(regexp.QuoteMeta("WHERE trade_no = ? AND status = 'PENDING'")).
        WillReturnResult(sqlmock.NewResult(0, 0))

    ok, err := repo.MarkPaid(context.Background(), "TC1", "GW1", at)
    require.NoError(t, err)
    assert.True(t, ok)
    ok, err = repo.MarkPaid(context.Background(), "TC1", "GW1", at)
    require.NoError(t, err)
    assert.False(t, ok)
}

func TestTokenValidateRefreshExpired(t *testing.T) {
    db, mock := newMock(t)
    now := time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)
    mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).
        WithArgs("h").
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
            AddRow(int64(5), now.Add(-time.Minute), nil))

    _, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h", now)
    assert.ErrorIs(t, err, ErrNotFound)
}
