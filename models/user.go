package models

import (
	"strings"
	"time"

	"traveltactik/tools"
)

// User representa um usuario autenticado (cliente ou admin).
// Serve de oráculo de identidade: leads criados antes do cadastro são
// re-associados (user_id) quando um usuário loga com o mesmo e-mail.
type User struct {
	ID        string     `gorm:"primary_key;type:varchar(36)" json:"id"`
	Name      string     `gorm:"not null" json:"name" form:"name"`
	Email     string     `gorm:"not null;unique" json:"email" form:"email"`
	Password  string     `gorm:"not null" json:"password,omitempty" form:"password"`
	Admin     bool       `gorm:"not null;default:false" json:"admin"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (user User) MissingFields() string {
	if user.Name == "" {
		return "name"
	} else if user.Email == "" {
		return "email"
	} else if user.Password == "" {
		return "password"
	} else if tools.CheckPassword(user.Password) != "" {
		return tools.CheckPassword(user.Password)
	}
	return ""
}

// NormalizeEmail aplica a normalização canônica usada em todo o fluxo
// (dedup, ownership, rate limit por e-mail).
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
