package domain

import "strings"

type Role string

const (
	RoleTenant Role = "TENANT"
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
)

// ParseRole нормализует роль; неизвестная роль возвращается как есть в верхнем регистре
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// Session - учетные данные, которые передаются в каждый вызов явно
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	Email  string `json:"email,omitempty"`
}

// Missing - нет токена или id пользователя: вызывающий должен отправить на логин
func (s Session) Missing() bool {
	return strings.TrimSpace(s.Token) == "" || strings.TrimSpace(s.UserID) == ""
}

func (s Session) BearerHeader() string {
	return "Bearer " + s.Token
}
