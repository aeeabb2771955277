package repository_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/glowdesk/messaging-backend/internal/errors"
	"github.com/glowdesk/messaging-backend/internal/model"
	"github.com/glowdesk/messaging-backend/internal/repository"
)

var ruleCols = []string{
	"id", "user_id", "trigger_type", "active", "message_template",
	"send_time", "day_offset", "created_at", "updated_at",
}

func newMockRuleRepo(t *testing.T) (*repository.RuleRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &repository.RuleRepository{DB: db}, mock
}

func TestRuleGetByID(t *testing.T) {
	repo, mock := newMockRuleRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM automation_rules").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(ruleCols).
			AddRow(7, 1, model.TriggerBirthdayThisMonth, true, "Happy Birthday {firstName}!", "09:00", 0, now, now))

	rule, err := repo.GetByID(7)
	require.NoError(t, err)
	assert.Equal(t, 7, rule.ID)
	assert.True(t, rule.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRuleRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM automation_rules").
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows(ruleCols))

	_, err := repo.GetByID(404)
	var notFound *appErrors.ErrRuleNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 404, notFound.RuleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
