package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	appErrors "github.com/glowdesk/messaging-backend/internal/errors"
	"github.com/glowdesk/messaging-backend/internal/model"
	"github.com/glowdesk/messaging-backend/internal/queue"
)

// fakeMessageRepo is an in-memory stand-in for the Postgres message store.
// It mirrors the conditional-claim and unique-index semantics so the state
// machine can be exercised without a database.
type fakeMessageRepo struct {
	mu     sync.Mutex
	nextID int
	msgs   map[int]*model.ScheduledMessage

	failSelectDue error
	failCreate    error
	failExists    error
	failGetBySID  error

	// existsAlwaysFalse simulates losing the check-then-insert race: the
	// dedup check misses but the unique index still fires on insert.
	existsAlwaysFalse bool

	// afterSelectDue runs once the batch snapshot has been taken, letting a
	// test interleave a concurrent cycle between SelectDue and Claim.
	afterSelectDue func()
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{msgs: map[int]*model.ScheduledMessage{}}
}

func (f *fakeMessageRepo) add(msg *model.ScheduledMessage) *model.ScheduledMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg.ID = f.nextID
	f.msgs[msg.ID] = msg
	return msg
}

func (f *fakeMessageRepo) get(id int) *model.ScheduledMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[id]
}

func (f *fakeMessageRepo) Create(msg *model.ScheduledMessage) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.msgs {
		if existing.AutomationRuleID != nil && msg.AutomationRuleID != nil &&
			*existing.AutomationRuleID == *msg.AutomationRuleID &&
			existing.ContactID == msg.ContactID &&
			existing.DedupYear == msg.DedupYear {
			return appErrors.ErrDuplicateMessage
		}
	}
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = msg.CreatedAt
	f.msgs[msg.ID] = msg
	return nil
}

func (f *fakeMessageRepo) ExistsForRuleContactYear(ruleID, contactID, year int) (bool, error) {
	if f.failExists != nil {
		return false, f.failExists
	}
	if f.existsAlwaysFalse {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.msgs {
		if msg.AutomationRuleID != nil && *msg.AutomationRuleID == ruleID &&
			msg.ContactID == contactID && msg.DedupYear == year {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMessageRepo) SelectDue(now time.Time, limit, maxAttempts int) ([]*model.ScheduledMessage, error) {
	if f.failSelectDue != nil {
		return nil, f.failSelectDue
	}
	f.mu.Lock()
	due := []*model.ScheduledMessage{}
	for _, msg := range f.msgs {
		if msg.Status == model.StatusPending && !msg.ScheduledFor.After(now) && msg.Attempts < maxAttempts {
			copied := *msg
			due = append(due, &copied)
		}
	}
	f.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	if len(due) > limit {
		due = due[:limit]
	}
	if f.afterSelectDue != nil {
		f.afterSelectDue()
	}
	return due, nil
}

func (f *fakeMessageRepo) Claim(id int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.msgs[id]
	if !ok || msg.Status != model.StatusPending {
		return 0, false, nil
	}
	msg.Status = model.StatusProcessing
	msg.Attempts++
	msg.UpdatedAt = time.Now()
	return msg.Attempts, true, nil
}

func (f *fakeMessageRepo) MarkSent(id int, providerSID string, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.msgs[id]
	msg.Status = model.StatusSent
	msg.ProviderSID = &providerSID
	msg.SentAt = &sentAt
	msg.LastError = ""
	msg.UpdatedAt = time.Now()
	return nil
}

func (f *fakeMessageRepo) MarkRetry(id int, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.msgs[id]
	msg.Status = model.StatusPending
	msg.LastError = lastError
	msg.UpdatedAt = time.Now()
	return nil
}

func (f *fakeMessageRepo) MarkFailed(id int, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.msgs[id]
	msg.Status = model.StatusFailed
	msg.LastError = lastError
	msg.UpdatedAt = time.Now()
	return nil
}

func (f *fakeMessageRepo) ReleaseStale(cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	released := 0
	for _, msg := range f.msgs {
		if msg.Status == model.StatusProcessing && msg.UpdatedAt.Before(cutoff) {
			msg.Status = model.StatusPending
			msg.UpdatedAt = time.Now()
			released++
		}
	}
	return released, nil
}

func (f *fakeMessageRepo) GetByProviderSID(sid string) (*model.ScheduledMessage, error) {
	if f.failGetBySID != nil {
		return nil, f.failGetBySID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.msgs {
		if msg.ProviderSID != nil && *msg.ProviderSID == sid {
			copied := *msg
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageRepo) UpdateDeliveryStatus(id int, status string, errorCode *string, errorMessage string, deliveredAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.msgs[id]
	msg.DeliveryStatus = &status
	msg.ErrorCode = errorCode
	msg.LastError = errorMessage
	// Mirrors the COALESCE in the store: delivered_at is set, never cleared.
	if deliveredAt != nil {
		msg.DeliveredAt = deliveredAt
	}
	msg.UpdatedAt = time.Now()
	return nil
}

func (f *fakeMessageRepo) ListMessages(offset, limit int, status string) ([]*model.ScheduledMessage, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := []*model.ScheduledMessage{}
	for _, msg := range f.msgs {
		if status == "" || msg.Status == status {
			copied := *msg
			all = append(all, &copied)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ScheduledFor.After(all[j].ScheduledFor) })
	total := len(all)
	if offset >= len(all) {
		return []*model.ScheduledMessage{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeMessageRepo) StatsForRule(ruleID int) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := map[string]int{
		model.StatusPending:    0,
		model.StatusProcessing: 0,
		model.StatusSent:       0,
		model.StatusFailed:     0,
	}
	for _, msg := range f.msgs {
		if msg.AutomationRuleID != nil && *msg.AutomationRuleID == ruleID {
			stats[msg.Status]++
		}
	}
	return stats, nil
}

// fakeSender scripts transport outcomes per destination phone number.
type fakeSender struct {
	mu       sync.Mutex
	failFor  map[string]error
	sent     []string // destinations in send order
	nextSID  int
	sidsSent map[string]string
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: map[string]error{}, sidsSent: map[string]string{}}
}

func (s *fakeSender) Send(ctx context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[to]; ok {
		return "", err
	}
	s.nextSID++
	sid := fmt.Sprintf("SM%04d", s.nextSID)
	s.sent = append(s.sent, to)
	s.sidsSent[to] = sid
	return sid, nil
}

// fakeEvents records published events.
type fakeEvents struct {
	mu     sync.Mutex
	events []queue.MessageEvent
	fail   error
}

func (e *fakeEvents) Publish(event queue.MessageEvent) error {
	if e.fail != nil {
		return e.fail
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

// fakeRuleRepo / fakeContactRepo serve the expander tests.
type fakeRuleRepo struct {
	rules []model.AutomationRule
	err   error
}

func (r *fakeRuleRepo) ListActiveByTrigger(triggerType string) ([]model.AutomationRule, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := []model.AutomationRule{}
	for _, rule := range r.rules {
		if rule.TriggerType == triggerType && rule.Active {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) GetByID(id int) (*model.AutomationRule, error) {
	for _, rule := range r.rules {
		if rule.ID == id {
			return &rule, nil
		}
	}
	return nil, appErrors.NewRuleNotFound(id)
}

type fakeContactRepo struct {
	contacts map[int][]model.Contact // by user ID
	errFor   map[int]error
}

func (r *fakeContactRepo) ListWithBirthdays(userID int) ([]model.Contact, error) {
	if err, ok := r.errFor[userID]; ok {
		return nil, err
	}
	out := []model.Contact{}
	for _, c := range r.contacts[userID] {
		if c.Birthday != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")

func datePtr(t time.Time) *time.Time { return &t }
