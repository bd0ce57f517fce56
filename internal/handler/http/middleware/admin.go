package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/cmlabs-hris/payroll-batch-go/internal/handler/http/response"
)

// AdminOnly guards the mutating payroll routes. Confirming and paying a
// batch or editing policies requires the is_admin claim.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, "Invalid token")
			return
		}

		admin, ok := claims["is_admin"].(bool)
		if !admin || !ok {
			response.Forbidden(w, "Admin privilege required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
