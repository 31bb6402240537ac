package middleware

import (
	"net/http"

	"github.com/angelmondragon/assettrack-backend/api/responses"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
)

// RequireMutator lets through only roles allowed to change asset state.
func RequireMutator(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := enums.ParseUserRole(RoleFromContext(r.Context()))
			if err != nil || !role.CanMutate() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role may not modify assets"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
