package fakeapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type page struct {
	Results  []User `json:"results"`
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	q := map[string]string{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			q[k] = vs[0]
		}
	}
	pageNum, _ := strconv.Atoi(q["page"])
	if pageNum < 1 {
		pageNum = 1
	}
	size, _ := strconv.Atoi(q["page_size"])
	if size < 1 {
		size = 20
	}

	s.mu.Lock()
	all := s.listLocked(q)
	s.mu.Unlock()

	start := (pageNum - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}

	out := page{
		Results:  all[start:end],
		Count:    len(all),
		Page:     pageNum,
		PageSize: size,
	}
	if end < len(all) {
		out.Next = "?page=" + strconv.Itoa(pageNum+1)
	}
	if pageNum > 1 {
		out.Previous = "?page=" + strconv.Itoa(pageNum-1)
	}
	s.writeData(w, http.StatusOK, out, "")
}

// target resolves {id}; it writes the 404 itself and returns nil when the
// user does not exist. The caller must hold s.mu.
func (s *Server) targetLocked(w http.ResponseWriter, r *http.Request) *account {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return nil
	}
	a := s.accounts[id]
	if a == nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return nil
	}
	return a
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.targetLocked(w, r); a != nil {
		s.writeData(w, http.StatusOK, a.user, "")
	}
}

type userUpdate struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
	IsActive    *bool   `json:"is_active"`
	IsStaff     *bool   `json:"is_staff"`
	IsSuperuser *bool   `json:"is_superuser"`
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var in userUpdate
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.targetLocked(w, r)
	if a == nil {
		return
	}
	if in.FirstName != nil {
		a.user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		a.user.LastName = *in.LastName
	}
	if in.Email != nil {
		a.user.Email = *in.Email
	}
	if in.IsActive != nil {
		a.user.IsActive = *in.IsActive
	}
	if in.IsStaff != nil {
		a.user.IsStaff = *in.IsStaff
	}
	if in.IsSuperuser != nil {
		a.user.IsSuperuser = *in.IsSuperuser
	}
	s.writeData(w, http.StatusOK, a.user, "User updated successfully")
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.targetLocked(w, r)
	if a == nil {
		return
	}
	delete(s.accounts, a.user.ID)
	s.writeData(w, http.StatusOK, map[string]string{"detail": "User deleted successfully."}, "")
}

func (s *Server) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		a := s.targetLocked(w, r)
		if a == nil {
			return
		}
		a.user.IsActive = active
		s.writeData(w, http.StatusOK, a.user, "")
	}
}

func (s *Server) resetUserPassword(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.targetLocked(w, r)
	if a == nil {
		return
	}
	s.resets[uidOf(a.user.ID)] = "admin-" + uidOf(a.user.ID)
	s.writeData(w, http.StatusOK, map[string]string{"detail": "Password reset email sent to " + a.user.Email}, "")
}
