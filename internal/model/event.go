package model

import "time"

// Event is a ticketed show that verification codes are sold for.  Events
// are managed elsewhere; this service only reads them.
//
// Fields:
//  ID               – primary key identifier.
//  Name             – display name of the event.
//  Venue            – where the event takes place.
//  ActivityURL      – ticketing page the agent should open.
//  EndDate          – after this instant codes for the event expire.
//  ActualTicketTime – real on-sale instant the agent should act on.
//  CodePrefix       – optional prefix prepended to codes for this event.
//  CreatedAt        – timestamp of creation.
type Event struct {
    ID               uint64    // events.id
    Name             string    // events.name
    Venue            string    // events.venue
    ActivityURL      string    // events.activity_url
    EndDate          time.Time // events.end_date
    ActualTicketTime time.Time // events.actual_ticket_time
    CodePrefix       string    // events.code_prefix
    CreatedAt        time.Time // events.created_at
}

// Ended reports whether the event is over at the given instant.
func (e Event) Ended(now time.Time) bool {
    return !now.Before(e.EndDate)
}
