package user

// Principal identifies the authenticated caller on hub-verified requests.
type Principal struct {
	UserID string
	Email  string
}
