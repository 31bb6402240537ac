package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/assettrack-backend/api/responses"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings Postgres and Redis. A nil pinger is reported as skipped.
func HealthReady(logg *logger.Logger, dbPinger db.Pinger, redisPinger redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{
			"database": ping(ctx, dbPinger),
			"redis":    ping(ctx, redisPinger),
		}
		for name, state := range checks {
			if state == "down" {
				err := pkgerrors.New(pkgerrors.CodeDependency, name+" unavailable").
					WithDetails(map[string]any{"checks": checks})
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

type pinger interface {
	Ping(context.Context) error
}

func ping(ctx context.Context, p pinger) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		return "down"
	}
	return "up"
}
