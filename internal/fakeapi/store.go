package fakeapi

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// User is the wire form of a backend user.
type User struct {
	ID              int64      `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Phone           *string    `json:"phone"`
	Bio             *string    `json:"bio"`
	Avatar          *string    `json:"avatar,omitempty"`
	IsStaff         bool       `json:"is_staff"`
	IsSuperuser     bool       `json:"is_superuser"`
	IsActive        bool       `json:"is_active"`
	DateJoined      time.Time  `json:"date_joined"`
	LastLogin       *time.Time `json:"last_login"`
	Groups          []string   `json:"groups"`
	UserPermissions []string   `json:"user_permissions"`
}

type account struct {
	user     User
	password string
	verified bool
}

// Seed describes one account created at startup.
type Seed struct {
	Username    string
	Password    string
	Email       string
	FirstName   string
	LastName    string
	Staff       bool
	Superuser   bool
	Permissions []string
}

// DefaultSeeds are the accounts every server starts with unless
// Options.Seeds is set.
var DefaultSeeds = []Seed{
	{Username: "alice", Password: "Secret123", Email: "alice@example.com", FirstName: "Alice", LastName: "Liddell",
		Permissions: []string{"users.view_user", "auth.change_own_profile"}},
	{Username: "admin", Password: "Admin1234", Email: "admin@example.com", Staff: true, Superuser: true},
	{Username: "bob", Password: "Staff1234", Email: "bob@example.com", FirstName: "Bob", Staff: true},
}

// addLocked creates an account and returns it.
func (s *Server) addLocked(seed Seed) *account {
	s.nextID++
	a := &account{
		user: User{
			ID:              s.nextID,
			Username:        seed.Username,
			Email:           seed.Email,
			FirstName:       seed.FirstName,
			LastName:        seed.LastName,
			IsStaff:         seed.Staff,
			IsSuperuser:     seed.Superuser,
			IsActive:        true,
			DateJoined:      s.now().UTC(),
			Groups:          []string{},
			UserPermissions: append([]string{}, seed.Permissions...),
		},
		password: seed.Password,
		verified: true,
	}
	s.accounts[a.user.ID] = a
	return a
}

func (s *Server) byUsernameLocked(name string) *account {
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Username, name) {
			return a
		}
	}
	return nil
}

func (s *Server) byEmailLocked(email string) *account {
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Email, email) {
			return a
		}
	}
	return nil
}

// listLocked filters and orders accounts the way the users endpoint does.
func (s *Server) listLocked(q map[string]string) []User {
	out := make([]User, 0, len(s.accounts))
	for _, a := range s.accounts {
		u := a.user
		if term := strings.ToLower(q["search"]); term != "" {
			hay := strings.ToLower(u.Username + " " + u.Email + " " + u.FirstName + " " + u.LastName)
			if !strings.Contains(hay, term) {
				continue
			}
		}
		if !matchBool(q["is_active"], u.IsActive) ||
			!matchBool(q["is_staff"], u.IsStaff) ||
			!matchBool(q["is_superuser"], u.IsSuperuser) {
			continue
		}
		out = append(out, u)
	}

	ordering := q["ordering"]
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")
	sort.Slice(out, func(i, j int) bool {
		var less bool
		switch field {
		case "username":
			less = out[i].Username < out[j].Username
		case "email":
			less = out[i].Email < out[j].Email
		default:
			less = out[i].ID < out[j].ID
		}
		if desc {
			return !less
		}
		return less
	})
	return out
}

func matchBool(filter string, v bool) bool {
	if filter == "" {
		return true
	}
	want, err := strconv.ParseBool(filter)
	if err != nil {
		return true
	}
	return want == v
}
