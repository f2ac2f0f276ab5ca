package repository

import (
    "context"
    "strings"
    "time"

    "github.com/iliyamo/tixcode/internal/model"
)

// EventSearchQuery defines filters & pagination for the public event list.
type EventSearchQuery struct {
    Name   string
    Venue  string
    When   string // upcoming (default) | onsale | any
    Limit  int
    Offset int
}

// Search returns events matching q ordered by on-sale time, plus the total
// number of matches ignoring pagination.  "upcoming" keeps events that have
// not ended at now; "onsale" keeps events whose ticket time is still ahead.
func (r *EventRepo) Search(ctx context.Context, now time.Time, q EventSearchQuery) ([]model.Event, int64, error) {
    where := []string{}
    args := []any{}

    switch strings.ToLower(q.When) {
    case "any":
    case "onsale":
        where = append(where, "actual_ticket_time > ?")
        args = append(args, now)
    default:
        where = append(where, "end_date > ?")
        args = append(args, now)
    }

    if q.Name != "" {
        where = append(where, "LOWER(name) LIKE ?")
        args = append(args, "%"+strings.ToLower(q.Name)+"%")
    }
    if q.Venue != "" {
        where = append(where, "LOWER(venue) LIKE ?")
        args = append(args, "%"+strings.ToLower(q.Venue)+"%")
    }

    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    var total int64
    db := conn(ctx, r.db)
    if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE `+cond, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    limit, offset := q.Limit, q.Offset
    if limit <= 0 || limit > 100 {
        limit = 20
    }
    if offset < 0 {
        offset = 0
    }
    dataSQL := `SELECT ` + eventColumns + ` FROM events
        WHERE ` + cond + `
        ORDER BY actual_ticket_time ASC, id ASC
        LIMIT ? OFFSET ?`
    argsData := append(append([]any{}, args...), limit, offset)

    rows, err := db.QueryContext(ctx, dataSQL, argsData...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    out := make([]model.Event, 0, limit)
    for rows.Next() {
        e, err := scanEvent(rows)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, e)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }
    return out, total, nil
}
