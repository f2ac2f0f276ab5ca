package model

import "time"

// Code lifecycle states stored in verification_codes.status.  The value is
// informational only: whether a code can still be redeemed is decided from
// the owning event's end date at request time.
const (
    CodeStatusActive  = "active"
    CodeStatusUsed    = "used"
    CodeStatusExpired = "expired"
)

// DefaultMaxModifications is the number of preference edits a code allows
// after it has been issued.
const DefaultMaxModifications = 5

// NoPreferenceKeyword is the single seat keyword handed to the agent when
// the purchaser did not rank any seat areas.
const NoPreferenceKeyword = "no preference"

// Preferences are the purchasing instructions attached to a code.
//
// Fields:
//  SeatKeywords – seat area keywords in priority order; empty means no preference.
//  SessionIndex – 1-based index of the show session to buy.
//  TicketCount  – number of tickets to buy.
type Preferences struct {
    SeatKeywords []string // verification_codes.seat_keywords (JSON array)
    SessionIndex int      // verification_codes.session_index
    TicketCount  int      // verification_codes.ticket_count
}

// Normalized returns a copy with defaults applied for empty fields.  The
// result is what the desktop agent receives on redemption.
func (p Preferences) Normalized() Preferences {
    out := Preferences{SessionIndex: p.SessionIndex, TicketCount: p.TicketCount}
    for _, k := range p.SeatKeywords {
        if k != "" {
            out.SeatKeywords = append(out.SeatKeywords, k)
        }
    }
    if len(out.SeatKeywords) == 0 {
        out.SeatKeywords = []string{NoPreferenceKeyword}
    }
    if out.SessionIndex < 1 {
        out.SessionIndex = 1
    }
    if out.TicketCount < 1 {
        out.TicketCount = 1
    }
    return out
}

// Binding records the external ticketing account a code was claimed by.
// Once written it may only be "rewritten" with the same account.
//
// Fields:
//  ExternalAccountID – account identifier on the ticketing site.
//  DeviceID          – optional identifier of the agent installation.
//  BoundAt           – when the binding was written.
//  BoundBy           – user ID that performed the binding.
//  BoundFromIP       – network address the bind request came from.
type Binding struct {
    ExternalAccountID string    // verification_codes.bound_account
    DeviceID          string    // verification_codes.bound_device_id
    BoundAt           time.Time // verification_codes.bound_at
    BoundBy           uint64    // verification_codes.bound_by
    BoundFromIP       string    // verification_codes.bound_ip
}

// VerificationCode is a purchased capability that lets its owner's agent
// fetch a purchasing configuration for one event.
//
// Fields:
//  ID                – primary key identifier.
//  Code              – unique human-typable code value (uppercase).
//  OwnerID           – user who bought the code; immutable.
//  EventID           – event the code is valid for; immutable.
//  Preferences       – seat/session/count preferences.
//  Binding           – external account binding, nil until bound.
//  UsageCount        – number of successful redemptions.
//  LastUsedAt        – most recent successful redemption.
//  ModificationCount – preference edits performed so far.
//  MaxModifications  – preference edit quota.
//  LastModifiedAt    – most recent preference edit.
//  Status            – informational lifecycle state.
//  CreatedAt         – issuance timestamp.
type VerificationCode struct {
    ID                uint64      // verification_codes.id
    Code              string      // verification_codes.code
    OwnerID           uint64      // verification_codes.owner_id
    EventID           uint64      // verification_codes.event_id
    Preferences       Preferences // seat_keywords, session_index, ticket_count
    Binding           *Binding    // bound_* columns (nullable)
    UsageCount        int         // verification_codes.usage_count
    LastUsedAt        *time.Time  // verification_codes.last_used_at (nullable)
    ModificationCount int         // verification_codes.modification_count
    MaxModifications  int         // verification_codes.max_modifications
    LastModifiedAt    *time.Time  // verification_codes.last_modified_at (nullable)
    Status            string      // verification_codes.status
    CreatedAt         time.Time   // verification_codes.created_at
}

// RemainingModifications reports how many preference edits are left.
func (v VerificationCode) RemainingModifications() int {
    if n := v.MaxModifications - v.ModificationCount; n > 0 {
        return n
    }
    return 0
}

// EffectiveStatus derives the lifecycle state from the event end date
// instead of trusting the stored column.
func (v VerificationCode) EffectiveStatus(now, eventEnd time.Time) string {
    switch {
    case !now.Before(eventEnd):
        return CodeStatusExpired
    case v.UsageCount > 0:
        return CodeStatusUsed
    default:
        return CodeStatusActive
    }
}

// OwnedCode joins a code with the summary of its event for listing.
type OwnedCode struct {
    VerificationCode
    Event Event
}
