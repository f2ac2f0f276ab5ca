package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/tixcode/internal/model"
)

// EventRepo reads events.  Events are maintained by an external admin tool,
// so there are no write methods.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns an EventRepo bound to db.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, name, venue, activity_url, end_date, actual_ticket_time, code_prefix, created_at`

func scanEvent(s interface{ Scan(...interface{}) error }) (model.Event, error) {
    var e model.Event
    err := s.Scan(&e.ID, &e.Name, &e.Venue, &e.ActivityURL, &e.EndDate, &e.ActualTicketTime, &e.CodePrefix, &e.CreatedAt)
    return e, err
}

// GetByID returns the event with the given id or ErrNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
    q := `SELECT ` + eventColumns + ` FROM events WHERE id = ? LIMIT 1`
    e, err := scanEvent(conn(ctx, r.db).QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Event{}, ErrNotFound
    }
    return e, err
}
