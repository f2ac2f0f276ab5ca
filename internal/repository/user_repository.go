package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/utils"
)

// UserRepo stores accounts, their point balance and the external API key
// handed to the desktop agent.
type UserRepo struct {
    db *sql.DB
}

// NewUserRepo returns a UserRepo bound to db.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, password_hash, role, points, external_api_key, is_active, created_at, updated_at`

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    res, err := conn(ctx, r.db).ExecContext(ctx,
        "INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
        email, hash, role)
    if err != nil {
        if _, dup := duplicateKey(err); dup {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg interface{}) (model.User, error) {
    var (
        u   model.User
        key sql.NullString
    )
    err := conn(ctx, r.db).QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg).
        Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Points, &key, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.User{}, ErrNotFound
    }
    if err != nil {
        return model.User{}, err
    }
    if key.Valid {
        s := key.String
        u.ExternalAPIKey = &s
    }
    return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    return r.getOne(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    return r.getOne(ctx, "id=?", id)
}

// SetAPIKey stores or clears (empty key) the user's external API key.
func (r *UserRepo) SetAPIKey(ctx context.Context, id uint64, key string) error {
    res, err := conn(ctx, r.db).ExecContext(ctx,
        "UPDATE users SET external_api_key=? WHERE id=?", nullString(key), id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        // MySQL reports 0 for an unchanged row too, so confirm existence.
        if _, err := r.GetByID(ctx, id); err != nil {
            return err
        }
    }
    return nil
}

// DebitPoints subtracts amount from the balance and appends a ledger row.
// It reports false, writing nothing, when the balance is too low.  Call
// it inside a transaction so both statements commit together.  amount
// must be at least 1: a zero debit changes no row (MySQL reports 0
// affected) and a negative one would credit the user.
func (r *UserRepo) DebitPoints(ctx context.Context, id uint64, amount int64, reason string) (bool, error) {
    if amount < 1 {
        return false, ErrInvalidAmount
    }
    q := conn(ctx, r.db)
    ok, err := affectedOne(q.ExecContext(ctx,
        "UPDATE users SET points = points - ? WHERE id=? AND points >= ?", amount, id, amount))
    if err != nil || !ok {
        return false, err
    }
    if _, err := q.ExecContext(ctx,
        "INSERT INTO point_ledger (user_id, delta, reason) VALUES (?,?,?)", id, -amount, reason); err != nil {
        return false, err
    }
    return true, nil
}
