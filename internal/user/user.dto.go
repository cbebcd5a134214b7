package user

// DefaultAgeGroup is used when registration omits the age group.
const DefaultAgeGroup = "7-9"

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	AgeGroup string `json:"age_group,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
