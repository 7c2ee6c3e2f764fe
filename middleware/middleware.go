// Package middleware provides HTTP authorization middleware for Lattice.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/lattice"
)

// Require enforces a permission on a resource. It resolves the subject from
// the request context (Authsome user > anonymous) and checks whether the
// subject holds the permission on the resource identified by the :id route
// parameter.
func Require(eng *lattice.Engine, permission, objectType string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			objectID := ctx.Param("id")

			err := eng.Enforce(ctx.Context(), &lattice.CheckRequest{
				Subject:    subject,
				Permission: permission,
				Object:     lattice.Object{Type: objectType, ID: objectID},
			})
			if err != nil {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if ANY of the checks pass.
func RequireAny(eng *lattice.Engine, checks ...lattice.CheckRequest) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			for i := range checks {
				c := checks[i]
				c.Subject = subject
				result, err := eng.Check(ctx.Context(), &c)
				if err == nil && result.Allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if ALL checks pass.
func RequireAll(eng *lattice.Engine, checks ...lattice.CheckRequest) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			for i := range checks {
				c := checks[i]
				c.Subject = subject
				err := eng.Enforce(ctx.Context(), &c)
				if err != nil {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// resolveSubject extracts the subject from context.
// Priority: Forge user ID (from Authsome) → anonymous.
func resolveSubject(ctx forge.Context) lattice.Subject {
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		return lattice.Subject{Type: lattice.SubjectUser, ID: userID}
	}
	return lattice.Subject{Type: "unknown", ID: "anonymous"}
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
