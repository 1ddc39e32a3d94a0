package auth

// Role is the permission level of a User.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account as returned by the auth API.
type User struct {
	ID                string   `json:"_id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Role              Role     `json:"role"`
	Permissions       []string `json:"permissions"`
	PasswordChangedAt string   `json:"passwordChangedAt,omitempty"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LoginRequest is the body of POST /v1/users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserData wraps the user object the auth API nests under "data".
type UserData struct {
	User User `json:"user"`
}

// LoginResponse is the successful reply to a login.
type LoginResponse struct {
	Status string   `json:"status"`
	Token  string   `json:"token"`
	Data   UserData `json:"data"`
}

// IsLoggedInResponse is the successful reply to a session check.
type IsLoggedInResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Data    UserData `json:"data"`
}

// ErrorResponse is the body the auth API sends on failure.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
