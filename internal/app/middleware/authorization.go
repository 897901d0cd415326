package middleware

import (
	"context"

	"travelbooking/internal/app/commands"
	"travelbooking/internal/app/policies"
	"travelbooking/internal/app/queries"
	"travelbooking/internal/domain/shared/apperr"
	domainuser "travelbooking/internal/domain/user"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleRestricted is implemented by messages only some roles may send.
type RoleRestricted interface {
	AllowedRoles() []domainuser.Role
}

var ErrForbiddenRole = apperr.New(apperr.KindUnauthorized, "actor role not permitted")

// RoleAuthorizer rejects restricted messages from actors lacking every allowed role.
// Internal calls without an actor pass through.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	actor, ok := policies.ActorFromContext(ctx)
	if !ok {
		return nil
	}
	for _, role := range restricted.AllowedRoles() {
		if actor.HasRole(role) {
			return nil
		}
	}
	return ErrForbiddenRole.WithDetail("actor_id", string(actor.ID))
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
