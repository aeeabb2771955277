// internal/service/message_service.go
package service

import (
    "context"
    "errors"
    "log"

    "github.com/glowdesk/messaging-backend/internal/analytics"
    appErrors "github.com/glowdesk/messaging-backend/internal/errors"
    "github.com/glowdesk/messaging-backend/internal/model"
    "github.com/glowdesk/messaging-backend/internal/repository"
)

// MessageService backs the dashboard's read endpoints.
type MessageService struct {
    Messages repository.MessageRepositoryInterface
    Rules    repository.RuleRepositoryInterface
    Counters analytics.Reader
}

// RuleStats combines the status breakdown from the store with the delivery
// aggregates from the counters.
type RuleStats struct {
    RuleID    int            `json:"rule_id"`
    Statuses  map[string]int `json:"statuses"`
    Total     int            `json:"total"`
    Delivered int64          `json:"delivered"`
    Failed    int64          `json:"failed"`
}

// ListMessages fetches messages with pagination
func (s *MessageService) ListMessages(page, pageSize int, status string) ([]model.ScheduledMessage, map[string]int, error) {
    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }
    if pageSize > 100 {
        pageSize = 100
    }
    offset := (page - 1) * pageSize

    ptrs, total, err := s.Messages.ListMessages(offset, pageSize, status)
    if err != nil {
        return nil, nil, err
    }

    messages := make([]model.ScheduledMessage, len(ptrs))
    for i, m := range ptrs {
        messages[i] = *m
    }

    totalPages := (total + pageSize - 1) / pageSize
    pagination := map[string]int{
        "page":        page,
        "page_size":   pageSize,
        "total_count": total,
        "total_pages": totalPages,
    }

    return messages, pagination, nil
}

// GetRuleStats fetches the status breakdown and delivery counters for a rule
func (s *MessageService) GetRuleStats(ctx context.Context, ruleID int) (*RuleStats, error) {
    if _, err := s.Rules.GetByID(ruleID); err != nil {
        var notFound *appErrors.ErrRuleNotFound
        if errors.As(err, &notFound) {
            return nil, nil
        }
        return nil, err
    }

    statuses, err := s.Messages.StatsForRule(ruleID)
    if err != nil {
        return nil, err
    }

    stats := &RuleStats{RuleID: ruleID, Statuses: statuses}
    for _, count := range statuses {
        stats.Total += count
    }

    if s.Counters != nil {
        delivered, failed, err := s.Counters.Get(ctx, analytics.RuleKey(ruleID))
        if err != nil {
            // Counter reads are best-effort for the dashboard.
            log.Printf("[MessageService] read counters for rule %d: %v", ruleID, err)
        } else {
            stats.Delivered = delivered
            stats.Failed = failed
        }
    }

    return stats, nil
}
