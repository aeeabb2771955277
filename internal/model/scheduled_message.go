// internal/model/scheduled_message.go
package model

import "time"

// ScheduledMessage status values. Transitions:
// pending -> processing -> sent | failed | pending (retry).
const (
    StatusPending    = "pending"
    StatusProcessing = "processing"
    StatusSent       = "sent"
    StatusFailed     = "failed"
)

// Delivery statuses reported back by the SMS provider. Only the terminal
// ones fold into analytics counters.
const (
    DeliveryDelivered   = "delivered"
    DeliveryFailed      = "failed"
    DeliveryUndelivered = "undelivered"
)

type ScheduledMessage struct {
    ID               int        `db:"id" json:"id"`
    UserID           int        `db:"user_id" json:"user_id"`
    AutomationRuleID *int       `db:"automation_rule_id" json:"automation_rule_id,omitempty"`
    CampaignID       *int       `db:"campaign_id" json:"campaign_id,omitempty"`
    ContactID        int        `db:"contact_id" json:"contact_id"`
    Phone            string     `db:"phone" json:"phone"`
    Body             string     `db:"body" json:"body"`
    ScheduledFor     time.Time  `db:"scheduled_for" json:"scheduled_for"`
    Status           string     `db:"status" json:"status"`
    Attempts         int        `db:"attempts" json:"attempts"`
    DedupYear        int        `db:"dedup_year" json:"dedup_year"`
    ProviderSID      *string    `db:"provider_sid" json:"provider_sid,omitempty"`
    DeliveryStatus   *string    `db:"delivery_status" json:"delivery_status,omitempty"`
    ErrorCode        *string    `db:"error_code" json:"error_code,omitempty"`
    LastError        string     `db:"last_error" json:"last_error,omitempty"`
    SentAt           *time.Time `db:"sent_at" json:"sent_at,omitempty"`
    DeliveredAt      *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
    CreatedAt        time.Time  `db:"created_at" json:"created_at"`
    UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTerminalDelivery reports whether a provider delivery status should fold
// into the delivered/failed aggregates. Intermediate statuses ("queued",
// "sending", ...) only update the record.
func IsTerminalDelivery(status string) bool {
    return status == DeliveryDelivered || status == DeliveryFailed || status == DeliveryUndelivered
}
