package permission

import "strings"

// viewMarker is the substring that staff accounts are implicitly granted.
const viewMarker = "view"

// Set is an immutable membership set of permission names.
type Set map[string]struct{}

// NewSet builds a [Set] from a permission list, skipping empty names.
func NewSet(perms []string) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		if p == "" {
			continue
		}
		s[p] = struct{}{}
	}
	return s
}

// Contains reports whether perm is a member of s.
func (s Set) Contains(perm string) bool {
	if s == nil {
		return false
	}
	_, ok := s[perm]
	return ok
}

// Subject is the permission-relevant view of an authenticated principal.
type Subject struct {
	Superuser   bool
	Staff       bool
	Permissions Set
}

// NewSubject builds a Subject from token flags and an explicit permission list.
func NewSubject(superuser, staff bool, perms []string) Subject {
	return Subject{
		Superuser:   superuser,
		Staff:       staff,
		Permissions: NewSet(perms),
	}
}

// Has reports whether the subject holds perm.
func (s Subject) Has(perm string) bool {
	if s.Superuser {
		return true
	}
	if s.Staff && strings.Contains(perm, viewMarker) {
		return true
	}
	return s.Permissions.Contains(perm)
}

// HasAny reports whether the subject holds at least one of perms.
// An empty request is never satisfied.
func (s Subject) HasAny(perms ...string) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the subject holds every one of perms.
// An empty request is always satisfied.
func (s Subject) HasAll(perms ...string) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Admin reports whether the subject may enter administrative areas.
func (s Subject) Admin() bool {
	return s.Superuser || s.Staff
}
