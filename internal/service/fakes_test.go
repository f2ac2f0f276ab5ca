package service

import (
    "bytes"
    "context"
    "log/slog"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/queue"
    "github.com/iliyamo/tixcode/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories.  WithTx
// snapshots all state and restores it when fn fails.
type memStore struct {
    mu           sync.Mutex
    nextID       uint64
    codes        map[string]model.VerificationCode
    events       map[uint64]model.Event
    users        map[uint64]model.User
    orders       map[string]model.PaymentOrder
    ledger       []model.PointEntry
    incrementErr error
    insertErrs   []error
}

func newMemStore() *memStore {
    return &memStore{
        codes:  map[string]model.VerificationCode{},
        events: map[uint64]model.Event{},
        users:  map[uint64]model.User{},
        orders: map[string]model.PaymentOrder{},
    }
}

func cloneCode(c model.VerificationCode) model.VerificationCode {
    c.Preferences.SeatKeywords = append([]string(nil), c.Preferences.SeatKeywords...)
    if c.Binding != nil {
        b := *c.Binding
        c.Binding = &b
    }
    if c.LastUsedAt != nil {
        t := *c.LastUsedAt
        c.LastUsedAt = &t
    }
    if c.LastModifiedAt != nil {
        t := *c.LastModifiedAt
        c.LastModifiedAt = &t
    }
    return c
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    m.mu.Lock()
    codes := make(map[string]model.VerificationCode, len(m.codes))
    for k, v := range m.codes {
        codes[k] = cloneCode(v)
    }
    users := make(map[uint64]model.User, len(m.users))
    for k, v := range m.users {
        users[k] = v
    }
    orders := make(map[string]model.PaymentOrder, len(m.orders))
    for k, v := range m.orders {
        orders[k] = v
    }
    ledger := append([]model.PointEntry(nil), m.ledger...)
    m.mu.Unlock()

    if err := fn(ctx); err != nil {
        m.mu.Lock()
        m.codes, m.users, m.orders, m.ledger = codes, users, orders, ledger
        m.mu.Unlock()
        return err
    }
    return nil
}

// CodeStore

func (m *memStore) Insert(_ context.Context, c *model.VerificationCode) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if len(m.insertErrs) > 0 {
        err := m.insertErrs[0]
        m.insertErrs = m.insertErrs[1:]
        return err
    }
    if _, ok := m.codes[c.Code]; ok {
        return repository.ErrDuplicateCode
    }
    for _, v := range m.codes {
        if v.OwnerID == c.OwnerID && v.EventID == c.EventID {
            return repository.ErrDuplicateOwnerEvent
        }
    }
    m.nextID++
    c.ID = m.nextID
    m.codes[c.Code] = cloneCode(*c)
    return nil
}

func (m *memStore) GetOwned(_ context.Context, code string, ownerID uint64) (model.VerificationCode, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    c, ok := m.codes[code]
    if !ok || c.OwnerID != ownerID {
        return model.VerificationCode{}, repository.ErrNotFound
    }
    return cloneCode(c), nil
}

func (m *memStore) Bind(_ context.Context, code string, ownerID uint64, b model.Binding) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    c, ok := m.codes[code]
    if !ok || c.OwnerID != ownerID || c.Binding != nil {
        return false, nil
    }
    c.Binding = &b
    m.codes[code] = c
    return true, nil
}

func (m *memStore) UpdatePreferences(_ context.Context, code string, ownerID uint64, p model.Preferences, now time.Time) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    c, ok := m.codes[code]
    if !ok || c.OwnerID != ownerID || c.ModificationCount >= c.MaxModifications {
        return false, nil
    }
    c.Preferences = p
    c.ModificationCount++
    c.LastModifiedAt = &now
    m.codes[code] = c
    return true, nil
}

func (m *memStore) IncrementUsage(_ context.Context, code string, ownerID uint64, now time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.incrementErr != nil {
        return m.incrementErr
    }
    c, ok := m.codes[code]
    if !ok || c.OwnerID != ownerID {
        return nil
    }
    c.UsageCount++
    c.LastUsedAt = &now
    m.codes[code] = c
    return nil
}

func (m *memStore) ListByOwner(_ context.Context, ownerID uint64) ([]model.OwnedCode, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.OwnedCode
    for _, c := range m.codes {
        if c.OwnerID == ownerID {
            out = append(out, model.OwnedCode{VerificationCode: cloneCode(c), Event: m.events[c.EventID]})
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
    return out, nil
}

func (m *memStore) MarkExpired(_ context.Context, now time.Time) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var n int64
    for k, c := range m.codes {
        if m.events[c.EventID].Ended(now) && c.Status != model.CodeStatusExpired {
            c.Status = model.CodeStatusExpired
            m.codes[k] = c
            n++
        }
    }
    return n, nil
}

func (m *memStore) PurgeEndedBefore(_ context.Context, cutoff time.Time) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var n int64
    for k, c := range m.codes {
        if m.events[c.EventID].EndDate.Before(cutoff) {
            delete(m.codes, k)
            n++
        }
    }
    return n, nil
}

// EventStore

type memEvents struct{ *memStore }

func (m memEvents) GetByID(_ context.Context, id uint64) (model.Event, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    e, ok := m.events[id]
    if !ok {
        return model.Event{}, repository.ErrNotFound
    }
    return e, nil
}

func (m memEvents) Search(_ context.Context, now time.Time, q repository.EventSearchQuery) ([]model.Event, int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.Event
    for _, e := range m.events {
        if q.When != "any" && e.Ended(now) {
            continue
        }
        if q.Name != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(q.Name)) {
            continue
        }
        out = append(out, e)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, int64(len(out)), nil
}

// UserStore

type memUsers struct{ *memStore }

func (m memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    u, ok := m.users[id]
    if !ok {
        return model.User{}, repository.ErrNotFound
    }
    return u, nil
}

func (m memUsers) DebitPoints(_ context.Context, id uint64, amount int64, reason string) (bool, error) {
    if amount < 1 {
        return false, repository.ErrInvalidAmount
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    u, ok := m.users[id]
    if !ok || u.Points < amount {
        return false, nil
    }
    u.Points -= amount
    m.users[id] = u
    m.ledger = append(m.ledger, model.PointEntry{UserID: id, Delta: -amount, Reason: reason})
    return true, nil
}

// OrderStore

type memOrders struct{ *memStore }

func (m memOrders) Create(_ context.Context, o *model.PaymentOrder) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.orders[o.TradeNo]; ok {
        return repository.ErrConflict
    }
    m.nextID++
    o.ID = m.nextID
    m.orders[o.TradeNo] = *o
    return nil
}

func (m memOrders) GetByTradeNo(_ context.Context, tradeNo string) (model.PaymentOrder, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    o, ok := m.orders[tradeNo]
    if !ok {
        return model.PaymentOrder{}, repository.ErrNotFound
    }
    return o, nil
}

func (m memOrders) MarkPaid(_ context.Context, tradeNo, gatewayRef string, paidAt time.Time) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    o, ok := m.orders[tradeNo]
    if !ok || o.Status != model.OrderStatusPending {
        return false, nil
    }
    o.Status = model.OrderStatusPaid
    o.GatewayRef = &gatewayRef
    o.PaidAt = &paidAt
    m.orders[tradeNo] = o
    return true, nil
}

func (m memOrders) MarkFailed(_ context.Context, tradeNo string) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    o, ok := m.orders[tradeNo]
    if !ok || o.Status != model.OrderStatusPending {
        return false, nil
    }
    o.Status = model.OrderStatusFailed
    m.orders[tradeNo] = o
    return true, nil
}

// stepClock is a settable clock.
type stepClock struct {
    mu  sync.Mutex
    now time.Time
}

func (c *stepClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.now
}

func (c *stepClock) Advance(d time.Duration) time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.now = c.now.Add(d)
    return c.now
}

type recordingPublisher struct {
    mu     sync.Mutex
    events []queue.Event
    err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.err != nil {
        return p.err
    }
    p.events = append(p.events, ev)
    return nil
}

func (p *recordingPublisher) count() int {
    p.mu.Lock()
    defer p.mu.Unlock()
    return len(p.events)
}

// harness wires every service to one memStore.
type harness struct {
    store      *memStore
    clock      *stepClock
    pub        *recordingPublisher
    logs       *bytes.Buffer
    issuance   *IssuanceService
    redemption *RedemptionService
    binding    *BindingService
    prefs      *PreferenceService
    catalog    *Catalog
    sweeper    *Sweeper
}

var t0 = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newHarness() *harness {
    st := newMemStore()
    clk := &stepClock{now: t0}
    pub := &recordingPublisher{}
    var logs bytes.Buffer
    logger := slog.New(slog.NewTextHandler(&logs, nil))
    return &harness{
        store: st,
        clock: clk,
        pub:   pub,
        logs:  &logs,
        issuance: NewIssuanceService(IssuanceDeps{
            Tx: st, Codes: st, Events: memEvents{st}, Users: memUsers{st}, Orders: memOrders{st},
            Publisher: pub, Clock: clk, Logger: logger,
        }, model.DefaultMaxModifications),
        redemption: NewRedemptionService(st, memUsers{st}, memEvents{st}, clk, logger),
        binding:    NewBindingService(st, pub, clk, logger),
        prefs:      NewPreferenceService(st, memEvents{st}, clk, logger),
        catalog:    NewCatalog(st, memEvents{st}, clk),
        sweeper:    NewSweeper(st, clk, 30*24*time.Hour, logger),
    }
}

func (h *harness) addUser(id uint64, points int64, apiKey string) {
    u := model.User{ID: id, Email: "u@example.com", Role: "CUSTOMER", Points: points, IsActive: true}
    if apiKey != "" {
        u.ExternalAPIKey = &apiKey
    }
    h.store.users[id] = u
}

func (h *harness) addEvent(id uint64, end time.Time, prefix string) model.Event {
    e := model.Event{
        ID: id, Name: "Event E", Venue: "Taipei Arena", ActivityURL: "https://tixcraft.com/activity/detail/e",
        EndDate: end, ActualTicketTime: t0.Add(2 * time.Hour), CodePrefix: prefix,
    }
    h.store.events[id] = e
    return e
}

func (h *harness) issuePoints(owner, event uint64, p model.Preferences) (model.VerificationCode, error) {
    return h.issuance.Issue(context.Background(), IssueInput{
        OwnerID: owner, EventID: event, Preferences: p,
        Purchase: PurchaseOutcome{Kind: PurchasePoints, Points: 100},
    })
}
