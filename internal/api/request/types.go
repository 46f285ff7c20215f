package request

// CreateGuestRequest is the request body for creating a guest profile.
// An empty name gets a generated one.
type CreateGuestRequest struct {
	Name string `json:"name"`
}

// RegisterRequest is the request body for registering a profile
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
