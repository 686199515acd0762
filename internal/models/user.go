package models

// User is a registered account. Password holds the bcrypt hash.
type User struct {
	Username string `json:"username" db:"username"`
	Email    string `json:"email" db:"email"`
	Password string `json:"password,omitempty" db:"password"`
	IsAdmin  bool   `json:"isAdmin" db:"is_admin"`
}

// Public strips the credential before the user leaves the server
func (u User) Public() User {
	u.Password = ""
	return u
}

// RegisterRequest is the request body for registration
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=20"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

// SettingsRequest updates a user's profile
type SettingsRequest struct {
	Username        string `json:"username"`
	NewUsername     string `json:"newUsername"`
	Email           string `json:"email" binding:"omitempty,email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"omitempty,min=6"`
}

// UserListResponse is the admin user listing
type UserListResponse struct {
	Total  int    `json:"total"`
	Online int    `json:"online"`
	Users  []User `json:"users"`
}
