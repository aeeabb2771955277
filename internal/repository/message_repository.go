package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/glowdesk/messaging-backend/internal/errors"
	"github.com/glowdesk/messaging-backend/internal/model"
)

const messageColumns = `id, user_id, automation_rule_id, campaign_id, contact_id, phone, body,
        scheduled_for, status, attempts, dedup_year, provider_sid, delivery_status,
        error_code, last_error, sent_at, delivered_at, created_at, updated_at`

// MessageRepositoryInterface defines the persistence surface of the
// scheduled-message state machine.
type MessageRepositoryInterface interface {
	// Queuing
	Create(msg *model.ScheduledMessage) error
	ExistsForRuleContactYear(ruleID, contactID, year int) (bool, error)

	// Dispatch
	SelectDue(now time.Time, limit, maxAttempts int) ([]*model.ScheduledMessage, error)
	Claim(id int) (int, bool, error)
	MarkSent(id int, providerSID string, sentAt time.Time) error
	MarkRetry(id int, lastError string) error
	MarkFailed(id int, lastError string) error
	ReleaseStale(cutoff time.Time) (int, error)

	// Reconciliation
	GetByProviderSID(sid string) (*model.ScheduledMessage, error)
	UpdateDeliveryStatus(id int, status string, errorCode *string, errorMessage string, deliveredAt *time.Time) error

	// Reads for the dashboard
	ListMessages(offset, limit int, status string) ([]*model.ScheduledMessage, int, error)
	StatsForRule(ruleID int) (map[string]int, error)
}

type MessageRepository struct {
	DB *sql.DB
}

// ====================== Queuing ======================

// Create inserts a new scheduled message. The unique index on
// (automation_rule_id, contact_id, dedup_year) backs the expander's dedup;
// a violation is mapped to ErrDuplicateMessage so overlapping expansion
// runs cannot double-queue.
func (r *MessageRepository) Create(msg *model.ScheduledMessage) error {
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Status == "" {
		msg.Status = model.StatusPending
	}

	query := `
        INSERT INTO scheduled_messages
        (user_id, automation_rule_id, campaign_id, contact_id, phone, body, scheduled_for,
         status, attempts, dedup_year, last_error, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `
	err := r.DB.QueryRow(
		query,
		msg.UserID,
		msg.AutomationRuleID,
		msg.CampaignID,
		msg.ContactID,
		msg.Phone,
		msg.Body,
		msg.ScheduledFor,
		msg.Status,
		msg.Attempts,
		msg.DedupYear,
		msg.LastError,
		msg.CreatedAt,
		msg.UpdatedAt,
	).Scan(&msg.ID)
	if err != nil {
		if appErrors.IsUniqueViolation(err) {
			return appErrors.ErrDuplicateMessage
		}
		return err
	}
	return nil
}

// ExistsForRuleContactYear checks whether the rule already queued a message
// for this contact in the given calendar year.
func (r *MessageRepository) ExistsForRuleContactYear(ruleID, contactID, year int) (bool, error) {
	query := `
        SELECT 1 FROM scheduled_messages
        WHERE automation_rule_id = $1 AND contact_id = $2 AND dedup_year = $3
        LIMIT 1
    `
	var tmp int
	err := r.DB.QueryRow(query, ruleID, contactID, year).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ====================== Dispatch ======================

// SelectDue returns up to limit pending messages that are due and still
// under the attempt cap, earliest first. Ordering matters: older messages
// must never starve behind newer ones.
func (r *MessageRepository) SelectDue(now time.Time, limit, maxAttempts int) ([]*model.ScheduledMessage, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM scheduled_messages
        WHERE status = $1 AND scheduled_for <= $2 AND attempts < $3
        ORDER BY scheduled_for ASC
        LIMIT $4
    `, messageColumns)

	rows, err := r.DB.Query(query, model.StatusPending, now, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.ScheduledMessage{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Claim atomically transitions a message pending -> processing and bumps the
// attempt counter before any network call. The conditional WHERE makes it a
// compare-and-swap: of two concurrent drain cycles, exactly one gets a row
// back and owns the send. The returned attempts value is the post-increment
// count from the store; callers must decide retry-vs-failed on it, not on
// whatever snapshot they selected the message from, since another cycle may
// have claimed and released the row in between.
func (r *MessageRepository) Claim(id int) (int, bool, error) {
	query := `
        UPDATE scheduled_messages
        SET status = $1, attempts = attempts + 1, updated_at = NOW()
        WHERE id = $2 AND status = $3
        RETURNING attempts
    `
	var attempts int
	err := r.DB.QueryRow(query, model.StatusProcessing, id, model.StatusPending).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	return attempts, true, nil
}

// MarkSent records a successful handoff to the provider.
func (r *MessageRepository) MarkSent(id int, providerSID string, sentAt time.Time) error {
	query := `
        UPDATE scheduled_messages
        SET status = $1, provider_sid = $2, sent_at = $3, last_error = '', updated_at = NOW()
        WHERE id = $4
    `
	_, err := r.DB.Exec(query, model.StatusSent, providerSID, sentAt, id)
	return err
}

// MarkRetry puts a failed send back in the pending pool without resetting
// attempts, so a later cycle picks it up again.
func (r *MessageRepository) MarkRetry(id int, lastError string) error {
	query := `
        UPDATE scheduled_messages
        SET status = $1, last_error = $2, updated_at = NOW()
        WHERE id = $3
    `
	_, err := r.DB.Exec(query, model.StatusPending, lastError, id)
	return err
}

// MarkFailed is terminal: the attempt cap was reached.
func (r *MessageRepository) MarkFailed(id int, lastError string) error {
	query := `
        UPDATE scheduled_messages
        SET status = $1, last_error = $2, updated_at = NOW()
        WHERE id = $3
    `
	_, err := r.DB.Exec(query, model.StatusFailed, lastError, id)
	return err
}

// ReleaseStale reverts processing rows that have not been touched since
// cutoff back to pending. A crash between claim and terminal update would
// otherwise strand the row forever, since dispatch only selects pending.
func (r *MessageRepository) ReleaseStale(cutoff time.Time) (int, error) {
	query := `
        UPDATE scheduled_messages
        SET status = $1, updated_at = NOW()
        WHERE status = $2 AND updated_at < $3
    `
	res, err := r.DB.Exec(query, model.StatusPending, model.StatusProcessing, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// ====================== Reconciliation ======================

// GetByProviderSID looks a message up by the provider's message ID.
// Returns nil when no record matches; callbacks can arrive for messages
// outside this system's records.
func (r *MessageRepository) GetByProviderSID(sid string) (*model.ScheduledMessage, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM scheduled_messages
        WHERE provider_sid = $1
    `, messageColumns)

	msg, err := scanMessage(r.DB.QueryRow(query, sid))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// UpdateDeliveryStatus records what the provider told us about a message.
// delivered_at is only ever set, never cleared: provider callbacks can arrive
// out of order, and a late intermediate status must not erase the delivery
// timestamp a terminal callback already recorded.
func (r *MessageRepository) UpdateDeliveryStatus(id int, status string, errorCode *string, errorMessage string, deliveredAt *time.Time) error {
	query := `
        UPDATE scheduled_messages
        SET delivery_status = $1, error_code = $2, last_error = $3,
            delivered_at = COALESCE($4, delivered_at), updated_at = NOW()
        WHERE id = $5
    `
	_, err := r.DB.Exec(query, status, errorCode, errorMessage, deliveredAt, id)
	return err
}

// ====================== Dashboard reads ======================

// ListMessages returns a page of messages plus the total count, optionally
// filtered by status.
func (r *MessageRepository) ListMessages(offset, limit int, status string) ([]*model.ScheduledMessage, int, error) {
	messages := []*model.ScheduledMessage{}
	query := fmt.Sprintf(`SELECT %s FROM scheduled_messages WHERE 1=1`, messageColumns)
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY scheduled_for DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM scheduled_messages WHERE 1=1`
	argsCount := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// StatsForRule returns a status breakdown of one rule's messages.
func (r *MessageRepository) StatsForRule(ruleID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM scheduled_messages WHERE automation_rule_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, ruleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		model.StatusPending:    0,
		model.StatusProcessing: 0,
		model.StatusSent:       0,
		model.StatusFailed:     0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*model.ScheduledMessage, error) {
	var msg model.ScheduledMessage
	err := row.Scan(
		&msg.ID,
		&msg.UserID,
		&msg.AutomationRuleID,
		&msg.CampaignID,
		&msg.ContactID,
		&msg.Phone,
		&msg.Body,
		&msg.ScheduledFor,
		&msg.Status,
		&msg.Attempts,
		&msg.DedupYear,
		&msg.ProviderSID,
		&msg.DeliveryStatus,
		&msg.ErrorCode,
		&msg.LastError,
		&msg.SentAt,
		&msg.DeliveredAt,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
