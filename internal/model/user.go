package model

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// User — профиль пользователя. Аутентификация живёт снаружи,
// ядру нужны только роль и канал доставки уведомлений.
type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	TelegramID int64     `json:"telegram_id"` // 0 — уведомления в Telegram не доставляются
	CreatedAt  time.Time `json:"created_at"`
}

// IsAdmin проверяет административную роль.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
