package dto

// GoogleLoginRequest Google sign-in request
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// CreateOrGetUserRequest legacy sign-in body, token is a Google ID token
type CreateOrGetUserRequest struct {
	Token string `json:"token" binding:"required"`
}

// LoginResponse issued session plus the user
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo user as returned to clients
type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	UsageCount  int    `json:"usage_count"`
	FreeLimit   int    `json:"free_limit"`
	LastLoginAt string `json:"last_login_at,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}
