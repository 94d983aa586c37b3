package fakeapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goAuthClient/internal/redact"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	missing := map[string][]string{}
	if in.Username == "" {
		missing["username"] = []string{"This field is required."}
	}
	if in.Password == "" {
		missing["password"] = []string{"This field is required."}
	}
	if len(missing) > 0 {
		writeFields(w, http.StatusBadRequest, missing)
		return
	}

	s.mu.Lock()
	a := s.byUsernameLocked(in.Username)
	if a == nil || a.password != in.Password || !a.user.IsActive {
		s.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	now := s.now().UTC()
	a.user.LastLogin = &now
	user := a.user
	access, refresh, err := s.issuePairLocked(user)
	s.mu.Unlock()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not issue tokens.")
		return
	}

	s.writeData(w, http.StatusOK, map[string]any{
		"user":   user,
		"tokens": tokenPair{Access: access, Refresh: refresh},
	}, "Login successful")
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if in.Password != in.Password2 {
		writeFields(w, http.StatusBadRequest, map[string][]string{"password": {"Password fields didn't match."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	errs := map[string][]string{}
	if s.byUsernameLocked(in.Username) != nil {
		errs["username"] = []string{"A user with that username already exists."}
	}
	if s.byEmailLocked(in.Email) != nil {
		errs["email"] = []string{"A user with this email already exists."}
	}
	if len(errs) > 0 {
		writeFields(w, http.StatusBadRequest, errs)
		return
	}

	a := s.addLocked(Seed{
		Username:  in.Username,
		Password:  in.Password,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	a.verified = false
	s.verify[uidOf(a.user.ID)] = uuid.NewString()
	s.writeData(w, http.StatusCreated, a.user, "User registered successfully. Please verify your email.")
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (s *Server) refreshTokens(w http.ResponseWriter, r *http.Request) {
	if d := s.opts.RefreshDelay; d > 0 {
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-r.Context().Done():
			t.Stop()
			return
		}
	}

	invalid := map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"}
	if s.failRefresh.Load() {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}

	var in refreshRequest
	if err := decode(r, &in); err != nil || in.Refresh == "" {
		writeFields(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}
	c, err := s.parse(in.Refresh, tokenTypeRefresh)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.refresh[c.ID]
	a := s.accounts[id]
	if !ok || a == nil || !a.user.IsActive {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}

	if !s.opts.RotateRefresh {
		access, err := s.sign(s.newClaims(a.user, tokenTypeAccess, s.opts.AccessTTL))
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "Could not issue tokens.")
			return
		}
		writeJSON(w, http.StatusOK, tokenPair{Access: access})
		return
	}

	delete(s.refresh, c.ID)
	access, refresh, err := s.issuePairLocked(a.user)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not issue tokens.")
		return
	}
	writeJSON(w, http.StatusOK, tokenPair{Access: access, Refresh: refresh})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	_ = decode(r, &in)
	if c, err := s.parse(in.Refresh, tokenTypeRefresh); err == nil {
		s.mu.Lock()
		delete(s.refresh, c.ID)
		s.mu.Unlock()
	}
	s.writeData(w, http.StatusOK, map[string]string{"detail": "Successfully logged out."}, "")
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user := accountFrom(r.Context()).user
	s.mu.Unlock()
	s.writeData(w, http.StatusOK, user, "")
}

type profileUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Bio       *string `json:"bio"`
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in profileUpdate
	var avatar *string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(4 << 20); err != nil {
			writeDetail(w, http.StatusBadRequest, "Malformed multipart body.")
			return
		}
		field := func(name string) *string {
			if vs, ok := r.MultipartForm.Value[name]; ok && len(vs) > 0 {
				v := vs[0]
				return &v
			}
			return nil
		}
		in = profileUpdate{
			FirstName: field("first_name"),
			LastName:  field("last_name"),
			Email:     field("email"),
			Phone:     field("phone"),
			Bio:       field("bio"),
		}
		if files := r.MultipartForm.File["avatar"]; len(files) > 0 {
			url := "/media/avatars/" + files[0].Filename
			avatar = &url
		}
	} else if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	s.mu.Lock()
	a := accountFrom(r.Context())
	if in.Email != nil && *in.Email != a.user.Email {
		if other := s.byEmailLocked(*in.Email); other != nil {
			s.mu.Unlock()
			writeFields(w, http.StatusBadRequest, map[string][]string{"email": {"A user with this email already exists."}})
			return
		}
		a.user.Email = *in.Email
	}
	if in.FirstName != nil {
		a.user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		a.user.LastName = *in.LastName
	}
	if in.Phone != nil {
		a.user.Phone = in.Phone
	}
	if in.Bio != nil {
		a.user.Bio = in.Bio
	}
	if avatar != nil {
		a.user.Avatar = avatar
	}
	user := a.user
	s.mu.Unlock()

	s.writeData(w, http.StatusOK, map[string]any{
		"user":    user,
		"message": "Profile updated successfully",
	}, "")
}

type passwordBody struct {
	Password string `json:"password"`
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	var in passwordBody
	_ = decode(r, &in)

	s.mu.Lock()
	defer s.mu.Unlock()
	a := accountFrom(r.Context())
	if in.Password != a.password {
		writeFields(w, http.StatusBadRequest, map[string][]string{"password": {"Incorrect password."}})
		return
	}
	delete(s.accounts, a.user.ID)
	s.writeData(w, http.StatusOK, map[string]string{"detail": "Account deleted successfully."}, "")
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := accountFrom(r.Context())
	if in.OldPassword != a.password {
		writeFields(w, http.StatusBadRequest, map[string][]string{"old_password": {"Wrong password."}})
		return
	}
	a.password = in.NewPassword
	s.writeData(w, http.StatusOK, map[string]string{"detail": "Password updated successfully."}, "")
}

type emailRequest struct {
	Email string `json:"email"`
}

func (s *Server) passwordReset(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	_ = decode(r, &in)

	s.mu.Lock()
	a := s.byEmailLocked(in.Email)
	if a != nil {
		s.resets[uidOf(a.user.ID)] = uuid.NewString()
	}
	s.mu.Unlock()
	s.opts.Logger.Debug("fakeapi: password reset requested",
		slog.String("email", redact.Email(in.Email)),
		slog.Bool("known", a != nil),
	)
	s.writeData(w, http.StatusOK, map[string]string{"detail": "Password reset e-mail has been sent."}, "")
}

type resetConfirmRequest struct {
	UID         string `json:"uid"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (s *Server) passwordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var in resetConfirmRequest
	_ = decode(r, &in)

	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.resets[in.UID]
	id, _ := strconv.ParseInt(in.UID, 10, 64)
	a := s.accounts[id]
	if !ok || want != in.Token || a == nil {
		writeFields(w, http.StatusBadRequest, map[string][]string{"token": {"Invalid value"}})
		return
	}
	delete(s.resets, in.UID)
	a.password = in.NewPassword
	s.writeData(w, http.StatusOK, map[string]string{"detail": "Password has been reset with the new password."}, "")
}

type verifyRequest struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var in verifyRequest
	_ = decode(r, &in)

	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.verify[in.UID]
	id, _ := strconv.ParseInt(in.UID, 10, 64)
	a := s.accounts[id]
	if !ok || want != in.Token || a == nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid verification link."}})
		return
	}
	delete(s.verify, in.UID)
	a.verified = true
	s.writeData(w, http.StatusOK, map[string]string{"detail": "Email verified successfully."}, "")
}

func (s *Server) resendVerification(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	_ = decode(r, &in)

	s.mu.Lock()
	if a := s.byEmailLocked(in.Email); a != nil && !a.verified {
		s.verify[uidOf(a.user.ID)] = uuid.NewString()
	}
	s.mu.Unlock()
	s.writeData(w, http.StatusOK, map[string]string{"detail": "Verification email sent."}, "")
}

func (s *Server) protected(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	name := accountFrom(r.Context()).user.Username
	s.mu.Unlock()
	s.writeData(w, http.StatusOK, map[string]string{"username": name}, "")
}

// debugStatus answers with the status code in the path.
func (s *Server) debugStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code < 200 || code > 599 {
		code = http.StatusBadRequest
	}
	writeDetail(w, code, http.StatusText(code))
}
