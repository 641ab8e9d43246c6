package entity

import (
	"strings"
	"time"
)

// User is an account as kept by the credential store. PasswordHash is only
// populated by lookups that explicitly ask for it.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicView is the projection of a user that may leave the service.
type PublicView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Avatar    string     `json:"avatar,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Public returns the view without timestamps beyond creation, as returned by
// register and login.
func (u *User) Public() PublicView {
	return PublicView{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar, CreatedAt: u.CreatedAt}
}

// Profile returns the view including the last update time.
func (u *User) Profile() PublicView {
	v := u.Public()
	updated := u.UpdatedAt
	v.UpdatedAt = &updated
	return v
}

// Patch lists the profile fields to change; nil means untouched. An empty
// Avatar clears it.
type Patch struct {
	Name   *string
	Email  *string
	Avatar *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Avatar == nil
}

// Apply copies the set fields onto u and bumps UpdatedAt.
func (p Patch) Apply(u *User, now time.Time) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	u.UpdatedAt = now
}

// NormalizeEmail canonicalizes an address so that it can serve as the unique
// login key: surrounding space is dropped and the address is lowercased. For
// Gmail the local part also loses dots and any +suffix, and googlemail.com
// becomes gmail.com.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	if domain == "gmail.com" || domain == "googlemail.com" {
		if i := strings.IndexByte(local, '+'); i >= 0 {
			local = local[:i]
		}
		local = strings.ReplaceAll(local, ".", "")
		domain = "gmail.com"
	}
	return local + "@" + domain
}
