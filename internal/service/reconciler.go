// internal/service/reconciler.go
package service

import (
    "context"
    "log"
    "time"

    "github.com/glowdesk/messaging-backend/internal/analytics"
    "github.com/glowdesk/messaging-backend/internal/model"
    "github.com/glowdesk/messaging-backend/internal/queue"
    "github.com/glowdesk/messaging-backend/internal/repository"
)

// StatusCallback is one delivery-status notification from the provider.
type StatusCallback struct {
    ProviderSID  string
    Status       string
    ErrorCode    string
    ErrorMessage string
}

// Reconciler folds asynchronous provider callbacks back into the
// scheduled-message records and the per-rule/per-campaign aggregates.
type Reconciler struct {
    Messages repository.MessageRepositoryInterface
    Counters analytics.Counters
    Events   queue.EventPublisher
}

// Process applies one callback. An unknown provider SID is not an error:
// callbacks can arrive for messages sent outside this system. Errors are
// returned for logging only; the webhook layer acknowledges regardless.
func (r *Reconciler) Process(ctx context.Context, cb StatusCallback) error {
    msg, err := r.Messages.GetByProviderSID(cb.ProviderSID)
    if err != nil {
        return err
    }
    if msg == nil {
        log.Printf("[Reconciler] no record for provider sid %s, ignoring", cb.ProviderSID)
        return nil
    }

    var errorCode *string
    if cb.ErrorCode != "" {
        errorCode = &cb.ErrorCode
    }
    var deliveredAt *time.Time
    if cb.Status == model.DeliveryDelivered {
        now := time.Now()
        deliveredAt = &now
    }

    // Every status updates the record; only terminal ones touch aggregates.
    if err := r.Messages.UpdateDeliveryStatus(msg.ID, cb.Status, errorCode, cb.ErrorMessage, deliveredAt); err != nil {
        return err
    }

    if !model.IsTerminalDelivery(cb.Status) {
        return nil
    }

    if key := aggregateKey(msg); key != "" {
        var cErr error
        if cb.Status == model.DeliveryDelivered {
            cErr = r.Counters.IncrDelivered(ctx, key)
        } else {
            cErr = r.Counters.IncrFailed(ctx, key)
        }
        if cErr != nil {
            return cErr
        }
    }

    if r.Events != nil {
        event := queue.MessageEvent{
            MessageID:  msg.ID,
            RuleID:     msg.AutomationRuleID,
            CampaignID: msg.CampaignID,
            Status:     cb.Status,
            Detail:     cb.ErrorMessage,
            OccurredAt: time.Now(),
        }
        if err := r.Events.Publish(event); err != nil {
            log.Printf("[Reconciler] publish event for message %d: %v", msg.ID, err)
        }
    }

    return nil
}

func aggregateKey(msg *model.ScheduledMessage) string {
    if msg.AutomationRuleID != nil {
        return analytics.RuleKey(*msg.AutomationRuleID)
    }
    if msg.CampaignID != nil {
        return analytics.CampaignKey(*msg.CampaignID)
    }
    return ""
}
