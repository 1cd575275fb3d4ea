package storage

// Session is the login state persisted between client runs.
type Session struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Token    string `json:"token"`
	SavedAt  int64  `json:"saved_at"` // unix seconds
}
