package middleware

import (
	"net/http"

	"agent-booking-portal/internal/domain/entity"
	"agent-booking-portal/pkg/response"
)

// RequireRole checks if the user carries any of the allowed roles.
// Role is read from context (set by AuthMiddleware from JWT claims).
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRoleFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}

			allowed := false
			for _, allowedRole := range allowedRoles {
				if role == allowedRole {
					allowed = true
					break
				}
			}

			if !allowed {
				response.Forbidden(w, "You don't have permission to access this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is a convenience middleware for admin-only endpoints
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(entity.RoleAdmin)(next)
}

// RequireAgent allows both agents and admins; admins can do everything an agent can.
func RequireAgent(next http.Handler) http.Handler {
	return RequireRole(entity.RoleAgent, entity.RoleAdmin)(next)
}
