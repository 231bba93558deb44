package dto

import "strings"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// RegisterRequest accepts both form posts and JSON bodies.
type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=100"`
	Email    string `json:"email"    form:"email"    validate:"required,max=254"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

// LoginRequest takes the identifier under any of the three names clients use.
type LoginRequest struct {
	LoginIdentifier string `json:"loginIdentifier" form:"loginIdentifier"`
	Username        string `json:"username"        form:"username"`
	Email           string `json:"email"           form:"email"`
	Password        string `json:"password"        form:"password"`
}

// Identifier returns the first non-blank identifier field.
func (r LoginRequest) Identifier() string {
	for _, v := range []string{r.LoginIdentifier, r.Username, r.Email} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RegisterResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

type LoginResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Username  string `json:"username,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"` // RFC 3339
}

type LogoutResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}
