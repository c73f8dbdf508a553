package user

// UserResponse defines the response structure for user information.
// Balance is in minor currency units.
type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Balance  int64  `json:"balance"`
	Token    string `json:"token,omitempty"`
}
