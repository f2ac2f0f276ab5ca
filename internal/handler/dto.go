package handler

import (
    "time"

    "github.com/iliyamo/tixcode/internal/model"
)

// preferencesDTO is the wire shape of model.Preferences shared with the
// desktop agent.
type preferencesDTO struct {
    PreferredKeywords []string `json:"preferredKeywords"`
    PreferredIndex    int      `json:"preferredIndex"`
    PreferredNumbers  int      `json:"preferredNumbers"`
}

func (p preferencesDTO) model() model.Preferences {
    return model.Preferences{SeatKeywords: p.PreferredKeywords, SessionIndex: p.PreferredIndex, TicketCount: p.PreferredNumbers}
}

func toPreferencesDTO(p model.Preferences) preferencesDTO {
    kw := p.SeatKeywords
    if kw == nil {
        kw = []string{}
    }
    return preferencesDTO{PreferredKeywords: kw, PreferredIndex: p.SessionIndex, PreferredNumbers: p.TicketCount}
}

type eventDTO struct {
    ID               uint64    `json:"id"`
    Name             string    `json:"name"`
    Venue            string    `json:"venue"`
    ActivityURL      string    `json:"activityUrl"`
    ActualTicketTime time.Time `json:"actualTicketTime"`
    EndDate          time.Time `json:"endDate"`
}

func toEventDTO(e model.Event) eventDTO {
    return eventDTO{
        ID: e.ID, Name: e.Name, Venue: e.Venue, ActivityURL: e.ActivityURL,
        ActualTicketTime: e.ActualTicketTime, EndDate: e.EndDate,
    }
}

type bindingDTO struct {
    Account  string    `json:"account"`
    DeviceID string    `json:"deviceId,omitempty"`
    BoundAt  time.Time `json:"boundAt"`
}

type ownedCodeDTO struct {
    ID                     uint64         `json:"id"`
    VerificationCode       string         `json:"verificationCode"`
    EventID                uint64         `json:"eventId"`
    Event                  eventDTO       `json:"event"`
    Preferences            preferencesDTO `json:"preferences"`
    Binding                *bindingDTO    `json:"binding"`
    UsageCount             int            `json:"usageCount"`
    LastUsed               *time.Time     `json:"lastUsed"`
    Status                 string         `json:"status"`
    RemainingModifications int            `json:"remainingModifications"`
    CreatedAt              time.Time      `json:"createdAt"`
}

func toOwnedCodeDTO(oc model.OwnedCode) ownedCodeDTO {
    out := ownedCodeDTO{
        ID:                     oc.ID,
        VerificationCode:       oc.Code,
        EventID:                oc.EventID,
        Event:                  toEventDTO(oc.Event),
        Preferences:            toPreferencesDTO(oc.Preferences),
        UsageCount:             oc.UsageCount,
        LastUsed:               oc.LastUsedAt,
        Status:                 oc.Status,
        RemainingModifications: oc.RemainingModifications(),
        CreatedAt:              oc.CreatedAt,
    }
    if b := oc.Binding; b != nil {
        out.Binding = &bindingDTO{Account: b.ExternalAccountID, DeviceID: b.DeviceID, BoundAt: b.BoundAt}
    }
    return out
}
