package middleware

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/assettrack-backend/api/responses"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
)

// Recoverer turns a handler panic into an INTERNAL_ERROR envelope. The log line names
// the matched route and, for asset routes, the asset being worked on.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					fields := map[string]any{
						"panic":  rec,
						"method": r.Method,
					}
					if rctx := chi.RouteContext(ctx); rctx != nil {
						if pattern := rctx.RoutePattern(); pattern != "" {
							fields["route"] = pattern
						}
						if assetID := rctx.URLParam("assetId"); assetID != "" {
							ctx = logg.WithAssetID(ctx, assetID)
						}
					}
					ctx = logg.WithFields(ctx, fields)
					logg.Error(ctx, "handler panic recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
