package goAuthClient

import (
	"net/url"
	"strconv"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/tokenstore"
)

// TokenPair is the access/refresh pair issued by login and refresh.
type TokenPair = tokenstore.TokenPair

// User is the backend's user record. It is replaced wholesale on every
// reload and never mutated in place.
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

// FullName joins the first and last name, falling back to the username.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the backend's reply to a successful login.
type LoginResponse struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// RegisterRequest is the registration form. It is validated locally before
// any network call.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=150,username"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,password_policy"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
	FirstName string `json:"first_name,omitempty" validate:"max=30"`
	LastName  string `json:"last_name,omitempty" validate:"max=150"`
}

// UpdateProfileRequest is a partial profile update. Nil fields are left
// unchanged. When Avatar is set the update is sent as multipart/form-data.
type UpdateProfileRequest struct {
	FirstName *string   `json:"first_name,omitempty" validate:"omitempty,max=30"`
	LastName  *string   `json:"last_name,omitempty" validate:"omitempty,max=150"`
	Email     *string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string   `json:"phone,omitempty"`
	Bio       *string   `json:"bio,omitempty"`
	Avatar    *api.File `json:"-"`
}

func (r UpdateProfileRequest) form() *api.Form {
	if r.Avatar == nil {
		return nil
	}
	fields := make(map[string]string, 5)
	set := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}
	set("first_name", r.FirstName)
	set("last_name", r.LastName)
	set("email", r.Email)
	set("phone", r.Phone)
	set("bio", r.Bio)

	avatar := *r.Avatar
	if avatar.Field == "" {
		avatar.Field = "avatar"
	}
	return &api.Form{Fields: fields, Files: []api.File{avatar}}
}

// ChangePasswordRequest changes the current user's password.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,password_policy"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// PasswordResetRequest asks the backend to mail a reset link.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirm completes a password reset from a mailed link.
type PasswordResetConfirm struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,password_policy"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// EmailVerification confirms an email address from a mailed link.
type EmailVerification struct {
	UID   string `json:"uid" validate:"required"`
	Token string `json:"token" validate:"required"`
}

// Detail is the payload of endpoints that only acknowledge.
type Detail struct {
	Detail string `json:"detail"`
}

// UserPage is one page of the admin user listing.
type UserPage = api.Page[User]

// UserListFilters narrows the admin user listing. Zero values are omitted.
type UserListFilters struct {
	Search           string
	IsActive         *bool
	IsStaff          *bool
	IsSuperuser      *bool
	DateJoinedAfter  string
	DateJoinedBefore string
	Ordering         string
	Page             int
	PageSize         int
}

// Values encodes f as query parameters.
func (f UserListFilters) Values() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	setBool := func(key string, v *bool) {
		if v != nil {
			q.Set(key, strconv.FormatBool(*v))
		}
	}
	setBool("is_active", f.IsActive)
	setBool("is_staff", f.IsStaff)
	setBool("is_superuser", f.IsSuperuser)
	if f.DateJoinedAfter != "" {
		q.Set("date_joined_after", f.DateJoinedAfter)
	}
	if f.DateJoinedBefore != "" {
		q.Set("date_joined_before", f.DateJoinedBefore)
	}
	if f.Ordering != "" {
		q.Set("ordering", f.Ordering)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	return q
}

// UserUpdate is an admin-side partial user update. Nil fields are left
// unchanged.
type UserUpdate struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsStaff     *bool   `json:"is_staff,omitempty"`
	IsSuperuser *bool   `json:"is_superuser,omitempty"`
}
