package user

import "time"

// User is a registered account. HashedPassword never leaves the server.
type User struct {
	ID             string    `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	HashedPassword []byte    `json:"-" db:"hashed_password"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// Public is the safe view of a user returned by the API.
type Public struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ToPublic strips credentials.
func (u User) ToPublic() Public {
	return Public{ID: u.ID, Username: u.Username, Email: u.Email}
}
