package models

// Session is the active backend binding: the host that won the probe plus the
// credentials it accepted. Mutated only by a successful re-login; cleared on
// logout.
type Session struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Valid reports whether the session carries enough to authenticate requests.
func (s Session) Valid() bool {
	return s.Host != "" && s.Username != "" && s.Password != ""
}
