// internal/service/expander.go
package service

import (
    "errors"
    "log"
    "time"

    appErrors "github.com/glowdesk/messaging-backend/internal/errors"
    "github.com/glowdesk/messaging-backend/internal/model"
    "github.com/glowdesk/messaging-backend/internal/repository"
)

// Expander turns active birthday rules into queued scheduled messages.
type Expander struct {
    Rules    repository.RuleRepositoryInterface
    Contacts repository.ContactRepositoryInterface
    Messages repository.MessageRepositoryInterface
}

// ExpandResult aggregates the outcome of one expansion run. Per-item
// failures are counted here instead of being swallowed in logs, so callers
// and tests can assert on partial failures.
type ExpandResult struct {
    RulesProcessed int
    Queued         int
    Skipped        int
    Failed         int
}

// Run expands every active birthday rule against the owner's contacts.
// One rule or contact failing never aborts the run; only a failure to fetch
// the rule set itself does.
func (e *Expander) Run(now time.Time) (*ExpandResult, error) {
    rules, err := e.Rules.ListActiveByTrigger(model.TriggerBirthdayThisMonth)
    if err != nil {
        return nil, err
    }

    result := &ExpandResult{}

    for _, rule := range rules {
        result.RulesProcessed++

        contacts, err := e.Contacts.ListWithBirthdays(rule.UserID)
        if err != nil {
            log.Printf("[Expander] rule %d: failed to fetch contacts: %v", rule.ID, err)
            result.Failed++
            continue
        }

        for _, contact := range contacts {
            if contact.Birthday == nil || contact.Birthday.Month() != now.Month() {
                continue
            }

            if err := e.queueForContact(rule, contact, now, result); err != nil {
                log.Printf("[Expander] rule %d contact %d: %v", rule.ID, contact.ID, err)
                result.Failed++
            }
        }
    }

    return result, nil
}

func (e *Expander) queueForContact(rule model.AutomationRule, contact model.Contact, now time.Time, result *ExpandResult) error {
    // One message per (rule, contact) per calendar year, however often the
    // expander runs.
    exists, err := e.Messages.ExistsForRuleContactYear(rule.ID, contact.ID, now.Year())
    if err != nil {
        return err
    }
    if exists {
        result.Skipped++
        return nil
    }

    ruleID := rule.ID
    msg := &model.ScheduledMessage{
        UserID:           rule.UserID,
        AutomationRuleID: &ruleID,
        ContactID:        contact.ID,
        Phone:            contact.Phone,
        Body:             RenderTemplate(rule.Template, contact, now.Year()),
        ScheduledFor:     NextSendTime(rule.SendTime, rule.DayOffset, now),
        Status:           model.StatusPending,
        Attempts:         0,
        DedupYear:        now.Year(),
    }

    if err := e.Messages.Create(msg); err != nil {
        // The unique index closes the race between overlapping runs: losing
        // the check-then-insert race just means someone else queued it.
        if errors.Is(err, appErrors.ErrDuplicateMessage) {
            result.Skipped++
            return nil
        }
        return err
    }

    result.Queued++
    return nil
}
