// internal/errors/errors.go
package appErrors

import (
    "errors"
    "fmt"

    "github.com/lib/pq"
)

// ErrDuplicateMessage signals the per (rule, contact, year) uniqueness
// constraint fired on insert. Callers treat it as "already queued".
var ErrDuplicateMessage = errors.New("scheduled message already exists for rule, contact and year")

// ErrRuleNotFound is a sentinel error
type ErrRuleNotFound struct {
    RuleID int
}

func (e *ErrRuleNotFound) Error() string {
    return fmt.Sprintf("automation rule with ID %d not found", e.RuleID)
}

// Helper constructor
func NewRuleNotFound(id int) error {
    return &ErrRuleNotFound{RuleID: id}
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
    var pqErr *pq.Error
    if errors.As(err, &pqErr) {
        return pqErr.Code == "23505"
    }
    return false
}
