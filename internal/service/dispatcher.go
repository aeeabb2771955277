// internal/service/dispatcher.go
package service

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/glowdesk/messaging-backend/internal/model"
    "github.com/glowdesk/messaging-backend/internal/queue"
    "github.com/glowdesk/messaging-backend/internal/repository"
    "github.com/glowdesk/messaging-backend/internal/transport"
)

// Dispatcher drains due pending messages through the SMS transport.
type Dispatcher struct {
    Messages   repository.MessageRepositoryInterface
    Sender     transport.Sender
    Events     queue.EventPublisher
    BatchSize  int
    MaxRetries int

    workerID string
}

// DrainResult aggregates one dispatch cycle.
type DrainResult struct {
    Examined int
    Sent     int
    Retried  int
    Failed   int
    Skipped  int // claimed by a concurrent cycle
}

func NewDispatcher(messages repository.MessageRepositoryInterface, sender transport.Sender, events queue.EventPublisher, batchSize, maxRetries int) *Dispatcher {
    if batchSize <= 0 {
        batchSize = 50
    }
    if maxRetries <= 0 {
        maxRetries = 3
    }
    if events == nil {
        events = queue.NoopPublisher{}
    }
    return &Dispatcher{
        Messages:   messages,
        Sender:     sender,
        Events:     events,
        BatchSize:  batchSize,
        MaxRetries: maxRetries,
        workerID:   fmt.Sprintf("dispatcher-%s", uuid.New().String()[:8]),
    }
}

// Drain runs one dispatch cycle: select due messages earliest-first, claim
// each one, send, and record the outcome. A transport failure is per-message
// and never aborts the cycle; a failure to fetch the batch does.
func (d *Dispatcher) Drain(ctx context.Context, now time.Time) (*DrainResult, error) {
    batch, err := d.Messages.SelectDue(now, d.BatchSize, d.MaxRetries)
    if err != nil {
        return nil, fmt.Errorf("fetch due messages: %w", err)
    }

    result := &DrainResult{}

    for _, msg := range batch {
        result.Examined++

        // Claim before the network call. If another cycle got here first
        // the message is simply not ours to send.
        attempts, claimed, err := d.Messages.Claim(msg.ID)
        if err != nil {
            log.Printf("[%s] claim message %d: %v", d.workerID, msg.ID, err)
            continue
        }
        if !claimed {
            result.Skipped++
            continue
        }

        d.sendClaimed(ctx, msg, attempts, result)
    }

    return result, nil
}

func (d *Dispatcher) sendClaimed(ctx context.Context, msg *model.ScheduledMessage, attempts int, result *DrainResult) {
    sid, err := d.Sender.Send(ctx, msg.Phone, msg.Body)
    if err == nil {
        sentAt := time.Now()
        if err := d.Messages.MarkSent(msg.ID, sid, sentAt); err != nil {
            log.Printf("[%s] mark sent %d: %v", d.workerID, msg.ID, err)
            return
        }
        result.Sent++
        d.publish(msg, model.StatusSent, "")
        return
    }

    // Decide on the attempts count the claim returned, not on the batch
    // snapshot: a concurrent cycle may have claimed and released the message
    // after SelectDue, and a stale count would park the row pending at the
    // cap where SelectDue never picks it up again.
    if attempts >= d.MaxRetries {
        if uerr := d.Messages.MarkFailed(msg.ID, err.Error()); uerr != nil {
            log.Printf("[%s] mark failed %d: %v", d.workerID, msg.ID, uerr)
            return
        }
        result.Failed++
        d.publish(msg, model.StatusFailed, err.Error())
        return
    }

    if uerr := d.Messages.MarkRetry(msg.ID, err.Error()); uerr != nil {
        log.Printf("[%s] mark retry %d: %v", d.workerID, msg.ID, uerr)
        return
    }
    result.Retried++
}

func (d *Dispatcher) publish(msg *model.ScheduledMessage, status, detail string) {
    event := queue.MessageEvent{
        MessageID:  msg.ID,
        RuleID:     msg.AutomationRuleID,
        CampaignID: msg.CampaignID,
        Status:     status,
        Detail:     detail,
        OccurredAt: time.Now(),
    }
    if err := d.Events.Publish(event); err != nil {
        log.Printf("[%s] publish event for message %d: %v", d.workerID, msg.ID, err)
    }
}
