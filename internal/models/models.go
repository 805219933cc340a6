package models

import (
	"strings"
	"time"
)

// UserStatus is the account state reported by the API.
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
	StatusPending  UserStatus = "pending"
)

// JoinedLayout is how [User.Joined] is rendered from the creation timestamp.
const JoinedLayout = "January 2, 2006"

// User is the profile of a platform account.
type User struct {
	ID        string     `json:"_id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	Phone     string     `json:"phone,omitempty"`
	Status    UserStatus `json:"status"`
	CreatedAt string     `json:"createdAt"`
	Joined    string     `json:"joined"`
	Avatar    string     `json:"avatar,omitempty"`
}

// FullName joins first and last name, falling back to Name then Username.
func (u User) FullName() string {
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Normalize fills fields the API may omit: status defaults to pending,
// name is derived from first and last name, joined is formatted from createdAt.
func (u User) Normalize() User {
	if u.Status == "" {
		u.Status = StatusPending
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		u.Name = full
	}
	if u.Joined == "" && u.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, u.CreatedAt); err == nil {
			u.Joined = ts.Format(JoinedLayout)
		}
	}
	return u
}

// UserPatch holds the profile fields a UI edit may change. Nil fields are left untouched.
type UserPatch struct {
	FirstName *string     `json:"firstName,omitempty"`
	LastName  *string     `json:"lastName,omitempty"`
	Email     *string     `json:"email,omitempty"`
	Username  *string     `json:"username,omitempty"`
	Role      *string     `json:"role,omitempty"`
	Phone     *string     `json:"phone,omitempty"`
	Status    *UserStatus `json:"status,omitempty"`
	Avatar    *string     `json:"avatar,omitempty"`
}

// Apply merges p into a copy of u and returns it.
func (u User) Apply(p UserPatch) User {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.FirstName, p.FirstName)
	set(&u.LastName, p.LastName)
	set(&u.Email, p.Email)
	set(&u.Username, p.Username)
	set(&u.Role, p.Role)
	set(&u.Phone, p.Phone)
	set(&u.Avatar, p.Avatar)
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.FirstName != nil || p.LastName != nil {
		u.Name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return u
}

// Credentials are posted to the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the login response.
//
// Older API builds return the bearer token as "token", newer ones as "accessToken".
type LoginResult struct {
	User         User   `json:"user"`
	Token        string `json:"token,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// BearerToken returns whichever access token field the server populated.
func (l LoginResult) BearerToken() string {
	if l.AccessToken != "" {
		return l.AccessToken
	}
	return l.Token
}

// TokenPair is the refresh endpoint response.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// NewUser is the registration form submitted to the register endpoint.
type NewUser struct {
	FirstName  string
	LastName   string
	Email      string
	Username   string
	Role       string
	Password   string
	Bio        string
	Website    string
	AvatarPath string
}

// Country is the user's selected country.
type Country struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Language is the user's selected language.
type Language struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
