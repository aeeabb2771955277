package repository

import (
	"database/sql"

	"github.com/glowdesk/messaging-backend/internal/model"
)

// ContactRepositoryInterface defines methods used by the expander
type ContactRepositoryInterface interface {
	ListWithBirthdays(userID int) ([]model.Contact, error)
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
	DB *sql.DB
}

// ListWithBirthdays fetches a user's contacts that have a birthday on file.
// Month filtering happens in the expander, which knows the reference date.
func (r *ContactRepository) ListWithBirthdays(userID int) ([]model.Contact, error) {
	query := `
        SELECT id, user_id, name, phone, email, birthday
        FROM contacts
        WHERE user_id = $1 AND birthday IS NOT NULL
    `
	rows, err := r.DB.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.Birthday); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
