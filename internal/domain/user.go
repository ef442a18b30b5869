package domain

// User is the account record returned by the remote API. It is never stored
// locally; only the bearer token is.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
}

// DisplayName prefers the first name, then the username, then the email.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	}
	return u.Email
}

func (u User) Initials() string {
	out := ""
	if u.FirstName != "" {
		out += string([]rune(u.FirstName)[0])
	} else if u.Username != "" {
		out += string([]rune(u.Username)[0])
	}
	if u.LastName != "" {
		out += string([]rune(u.LastName)[0])
	}
	return out
}
