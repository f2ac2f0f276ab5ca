package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/iliyamo/tixcode/internal/model"
)

// CodeRepo stores verification codes.  Every read and write that a caller
// can trigger is scoped by owner, so a code owned by someone else behaves
// exactly like a code that does not exist.
type CodeRepo struct {
    db *sql.DB
}

// NewCodeRepo returns a CodeRepo bound to db.
func NewCodeRepo(db *sql.DB) *CodeRepo { return &CodeRepo{db: db} }

const codeColumns = `id, code, owner_id, event_id, seat_keywords, session_index, ticket_count,
    bound_account, bound_device_id, bound_at, bound_by, bound_ip,
    usage_count, last_used_at, modification_count, max_modifications, last_modified_at,
    status, created_at`

// Insert stores a new code and fills in its ID.  Unique index violations
// come back as ErrDuplicateCode or ErrDuplicateOwnerEvent.
func (r *CodeRepo) Insert(ctx context.Context, c *model.VerificationCode) error {
    keywords, err := encodeKeywords(c.Preferences.SeatKeywords)
    if err != nil {
        return err
    }
    const q = `INSERT INTO verification_codes
        (code, owner_id, event_id, seat_keywords, session_index, ticket_count,
         usage_count, modification_count, max_modifications, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?)`
    res, err := conn(ctx, r.db).ExecContext(ctx, q,
        c.Code, c.OwnerID, c.EventID, keywords, c.Preferences.SessionIndex, c.Preferences.TicketCount,
        c.MaxModifications, c.Status, c.CreatedAt)
    if err != nil {
        return classifyCodeInsert(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    c.ID = uint64(id)
    return nil
}

// GetOwned fetches a code by value and owner.
func (r *CodeRepo) GetOwned(ctx context.Context, code string, ownerID uint64) (model.VerificationCode, error) {
    q := `SELECT ` + codeColumns + ` FROM verification_codes WHERE code = ? AND owner_id = ? LIMIT 1`
    c, err := scanCode(conn(ctx, r.db).QueryRowContext(ctx, q, code, ownerID))
    if errors.Is(err, sql.ErrNoRows) {
        return model.VerificationCode{}, ErrNotFound
    }
    return c, err
}

// Bind writes b onto the code only when no binding exists yet.  It reports
// whether a row was updated; false means the code is missing, owned by
// someone else, or already bound.
func (r *CodeRepo) Bind(ctx context.Context, code string, ownerID uint64, b model.Binding) (bool, error) {
    const q = `UPDATE verification_codes
        SET bound_account = ?, bound_device_id = ?, bound_at = ?, bound_by = ?, bound_ip = ?
        WHERE code = ? AND owner_id = ? AND bound_account IS NULL`
    res, err := conn(ctx, r.db).ExecContext(ctx, q,
        b.ExternalAccountID, nullString(b.DeviceID), b.BoundAt, b.BoundBy, nullString(b.BoundFromIP),
        code, ownerID)
    return affectedOne(res, err)
}

// UpdatePreferences replaces the preferences and consumes one edit from
// the quota in a single statement.  It reports false when the code is
// missing or the quota is used up.
func (r *CodeRepo) UpdatePreferences(ctx context.Context, code string, ownerID uint64, p model.Preferences, now time.Time) (bool, error) {
    keywords, err := encodeKeywords(p.SeatKeywords)
    if err != nil {
        return false, err
    }
    const q = `UPDATE verification_codes
        SET seat_keywords = ?, session_index = ?, ticket_count = ?,
            modification_count = modification_count + 1, last_modified_at = ?
        WHERE code = ? AND owner_id = ? AND modification_count < max_modifications`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, keywords, p.SessionIndex, p.TicketCount, now, code, ownerID)
    return affectedOne(res, err)
}

// IncrementUsage records one redemption.  The counter is bumped in SQL so
// concurrent redemptions are all counted.
func (r *CodeRepo) IncrementUsage(ctx context.Context, code string, ownerID uint64, now time.Time) error {
    const q = `UPDATE verification_codes
        SET usage_count = usage_count + 1, last_used_at = ?,
            status = CASE WHEN status = 'active' THEN 'used' ELSE status END
        WHERE code = ? AND owner_id = ?`
    _, err := conn(ctx, r.db).ExecContext(ctx, q, now, code, ownerID)
    return err
}

// ListByOwner returns the owner's codes joined with their events, newest
// first.
func (r *CodeRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.OwnedCode, error) {
    const q = `SELECT c.id, c.code, c.owner_id, c.event_id, c.seat_keywords, c.session_index, c.ticket_count,
            c.bound_account, c.bound_device_id, c.bound_at, c.bound_by, c.bound_ip,
            c.usage_count, c.last_used_at, c.modification_count, c.max_modifications, c.last_modified_at,
            c.status, c.created_at,
            e.name, e.venue, e.activity_url, e.end_date, e.actual_ticket_time, e.code_prefix
        FROM verification_codes c
        JOIN events e ON e.id = c.event_id
        WHERE c.owner_id = ?
        ORDER BY c.created_at DESC, c.id DESC`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, ownerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.OwnedCode
    for rows.Next() {
        var oc model.OwnedCode
        var cr codeRow
        err := rows.Scan(append(cr.targets(),
            &oc.Event.Name, &oc.Event.Venue, &oc.Event.ActivityURL,
            &oc.Event.EndDate, &oc.Event.ActualTicketTime, &oc.Event.CodePrefix)...)
        if err != nil {
            return nil, err
        }
        if oc.VerificationCode, err = cr.model(); err != nil {
            return nil, err
        }
        oc.Event.ID = oc.EventID
        out = append(out, oc)
    }
    return out, rows.Err()
}

// MarkExpired reconciles the informational status column for codes whose
// event has ended.
func (r *CodeRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
    const q = `UPDATE verification_codes c
        JOIN events e ON e.id = c.event_id
        SET c.status = 'expired'
        WHERE e.end_date <= ? AND c.status <> 'expired'`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, now)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// PurgeEndedBefore deletes codes whose event ended before cutoff.
func (r *CodeRepo) PurgeEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
    const q = `DELETE c FROM verification_codes c
        JOIN events e ON e.id = c.event_id
        WHERE e.end_date < ?`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, cutoff)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// codeRow holds the nullable scan targets of one verification_codes row.
type codeRow struct {
    c            model.VerificationCode
    keywords     []byte
    account      sql.NullString
    device       sql.NullString
    boundAt      sql.NullTime
    boundBy      sql.NullInt64
    boundIP      sql.NullString
    lastUsed     sql.NullTime
    lastModified sql.NullTime
}

func (r *codeRow) targets() []interface{} {
    return []interface{}{
        &r.c.ID, &r.c.Code, &r.c.OwnerID, &r.c.EventID, &r.keywords,
        &r.c.Preferences.SessionIndex, &r.c.Preferences.TicketCount,
        &r.account, &r.device, &r.boundAt, &r.boundBy, &r.boundIP,
        &r.c.UsageCount, &r.lastUsed, &r.c.ModificationCount, &r.c.MaxModifications, &r.lastModified,
        &r.c.Status, &r.c.CreatedAt,
    }
}

func (r *codeRow) model() (model.VerificationCode, error) {
    c := r.c
    if len(r.keywords) > 0 {
        if err := json.Unmarshal(r.keywords, &c.Preferences.SeatKeywords); err != nil {
            return model.VerificationCode{}, err
        }
    }
    if r.account.Valid {
        c.Binding = &model.Binding{
            ExternalAccountID: r.account.String,
            DeviceID:          r.device.String,
            BoundAt:           r.boundAt.Time,
            BoundBy:           uint64(r.boundBy.Int64),
            BoundFromIP:       r.boundIP.String,
        }
    }
    if r.lastUsed.Valid {
        t := r.lastUsed.Time
        c.LastUsedAt = &t
    }
    if r.lastModified.Valid {
        t := r.lastModified.Time
        c.LastModifiedAt = &t
    }
    return c, nil
}

func scanCode(row *sql.Row) (model.VerificationCode, error) {
    var cr codeRow
    if err := row.Scan(cr.targets()...); err != nil {
        return model.VerificationCode{}, err
    }
    return cr.model()
}

func encodeKeywords(k []string) (string, error) {
    if k == nil {
        k = []string{}
    }
    b, err := json.Marshal(k)
    return string(b), err
}

func nullString(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}

// affectedOne turns the result of a single-row conditional UPDATE into a
// boolean.
func affectedOne(res sql.Result, err error) (bool, error) {
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}
