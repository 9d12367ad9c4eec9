package note

import "time"

// User is an authenticated identity.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// DisplayName falls back to the email when no name was given at sign-up.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Profile is the persisted user profile row.
type Profile struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileFor builds a profile for u stamped at now.
func ProfileFor(u User, now time.Time) Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: now.UTC()}
}

// Credentials are email and password for sign-in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpRequest carries the sign-up form.
type SignUpRequest struct {
	Name            string `json:"name" validate:"notblank"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}
