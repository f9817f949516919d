package domain

import (
	"strings"
	"time"
)

// Provider identifica el proveedor de identidad que origino la cuenta.
type Provider string

const (
	ProviderApple  Provider = "APPLE"
	ProviderGoogle Provider = "GOOGLE"
	ProviderKakao  Provider = "KAKAO"
)

// ParseProvider acepta el nombre en cualquier capitalizacion ("apple", "APPLE").
func ParseProvider(s string) (Provider, bool) {
	switch Provider(strings.ToUpper(strings.TrimSpace(s))) {
	case ProviderApple:
		return ProviderApple, true
	case ProviderGoogle:
		return ProviderGoogle, true
	case ProviderKakao:
		return ProviderKakao, true
	}
	return "", false
}

// Lower devuelve el nombre usado en rutas y metricas.
func (p Provider) Lower() string {
	return strings.ToLower(string(p))
}

// Role es el rol de la cuenta dentro del sistema.
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

// User es el registro interno al que se reconcilia cada identidad externa.
// UID y Provider se fijan al crear y no cambian.
type User struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	Provider  Provider  `json:"provider"`
	Email     *string   `json:"email,omitempty"`
	Nickname  *string   `json:"nickname,omitempty"`
	Role      Role      `json:"role"`
	Alerted   bool      `json:"is_alerted"`
	FCMToken  *string   `json:"fcm_token,omitempty"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignupProfile son los campos que completa el registro.
type SignupProfile struct {
	Nickname string
	Email    *string
	Alerted  bool
	FCMToken *string
}

// StringPtr devuelve nil para cadenas vacias.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref devuelve "" cuando p es nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
