package model

import "time"

// User is owned by the authentication service; this module only reads it.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	TelegramChatID *int64    `json:"-"` // nil - уведомления не подключены
	CreatedAt      time.Time `json:"created_at"`
}
