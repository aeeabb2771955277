// internal/model/contact.go
package model

import "time"

type Contact struct {
    ID       int        `db:"id" json:"id"`
    UserID   int        `db:"user_id" json:"user_id"`
    Name     string     `db:"name" json:"name"`
    Phone    string     `db:"phone" json:"phone"`
    Email    string     `db:"email" json:"email"`
    Birthday *time.Time `db:"birthday" json:"birthday,omitempty"`
}
