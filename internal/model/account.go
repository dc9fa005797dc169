package model

// Role gates access to privileged endpoints.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account represents a login identity.
type Account struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// AccountView is the public projection of an Account.
type AccountView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// View strips credentials from the account.
func (a *Account) View() AccountView {
	return AccountView{ID: a.ID, Username: a.Username, Role: a.Role}
}

// LoginRequest is the payload for POST /api/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=72"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string      `json:"token"`
	User  AccountView `json:"user"`
}

// RegisterAccountRequest is the payload for public self-registration.
// Self-registered accounts always get RoleUser.
type RegisterAccountRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// CreateAccountRequest is the admin payload for creating an account with any role.
type CreateAccountRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     Role   `json:"role" binding:"required,oneof=user admin"`
}
