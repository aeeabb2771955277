// internal/model/automation_rule.go
package model

import "time"

// Trigger types for automation rules. Only birthdays are supported today.
const TriggerBirthdayThisMonth = "birthday_this_month"

type AutomationRule struct {
    ID          int        `db:"id" json:"id"`
    UserID      int        `db:"user_id" json:"user_id"`
    TriggerType string     `db:"trigger_type" json:"trigger_type"`
    Active      bool       `db:"active" json:"active"`
    Template    string     `db:"message_template" json:"message_template"`
    SendTime    string     `db:"send_time" json:"send_time"` // "HH:MM", empty means 09:00
    DayOffset   int        `db:"day_offset" json:"day_offset"`
    CreatedAt   time.Time  `db:"created_at" json:"created_at"`
    UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
