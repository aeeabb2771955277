package repository

import (
	"database/sql"

	appErrors "github.com/glowdesk/messaging-backend/internal/errors"
	"github.com/glowdesk/messaging-backend/internal/model"
)

// RuleRepositoryInterface defines the read surface the pipeline needs.
// Rules are created and edited elsewhere; this core never mutates them.
type RuleRepositoryInterface interface {
	ListActiveByTrigger(triggerType string) ([]model.AutomationRule, error)
	GetByID(id int) (*model.AutomationRule, error)
}

// RuleRepository is the concrete implementation
type RuleRepository struct {
	DB *sql.DB
}

// ListActiveByTrigger fetches all active rules for a trigger type
func (r *RuleRepository) ListActiveByTrigger(triggerType string) ([]model.AutomationRule, error) {
	query := `
        SELECT id, user_id, trigger_type, active, message_template, send_time, day_offset, created_at, updated_at
        FROM automation_rules
        WHERE trigger_type = $1 AND active = true
    `
	rows, err := r.DB.Query(query, triggerType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []model.AutomationRule{}
	for rows.Next() {
		var rule model.AutomationRule
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.TriggerType, &rule.Active,
			&rule.Template, &rule.SendTime, &rule.DayOffset, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// GetByID fetches a rule by ID. A missing row is reported as ErrRuleNotFound
// so callers can tell "no such rule" apart from a query failure.
func (r *RuleRepository) GetByID(id int) (*model.AutomationRule, error) {
	query := `
        SELECT id, user_id, trigger_type, active, message_template, send_time, day_offset, created_at, updated_at
        FROM automation_rules
        WHERE id = $1
    `
	var rule model.AutomationRule
	err := r.DB.QueryRow(query, id).Scan(&rule.ID, &rule.UserID, &rule.TriggerType, &rule.Active,
		&rule.Template, &rule.SendTime, &rule.DayOffset, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewRuleNotFound(id)
		}
		return nil, err
	}
	return &rule, nil
}

var _ RuleRepositoryInterface = (*RuleRepository)(nil)
