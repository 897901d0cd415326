package user

import (
	"context"
	"slices"
	"strings"

	"travelbooking/internal/domain/shared/apperr"
)

var (
	ErrNotFound   = apperr.New(apperr.KindNotFound, "user: not found")
	ErrIDRequired = apperr.New(apperr.KindValidation, "user: id is required")
)

type ID string

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

// Profile is the minimal identity snapshot the booking core needs.
type Profile struct {
	ID    ID
	Name  string
	Email string
	Roles []Role
}

func (p Profile) HasRole(role Role) bool {
	return slices.Contains(p.Roles, role)
}

// Directory answers identity lookups owned by the identity service.
type Directory interface {
	Exists(ctx context.Context, id ID) (bool, error)
}

// Actor is whoever invokes an operation, as established by the transport layer.
type Actor struct {
	ID    ID
	Roles []Role
}

func (a Actor) HasRole(role Role) bool {
	return slices.Contains(a.Roles, role)
}

func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// ParseRoles accepts a comma separated list, ignoring unknown values.
func ParseRoles(raw string) []Role {
	var out []Role
	for _, part := range strings.Split(raw, ",") {
		switch r := Role(strings.ToLower(strings.TrimSpace(part))); r {
		case RoleGuest, RoleHost, RoleAdmin:
			if !slices.Contains(out, r) {
				out = append(out, r)
			}
		}
	}
	return out
}
