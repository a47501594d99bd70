package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/mesflow-backend/api/responses"
	"github.com/angelmondragon/mesflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

const envHeader = "X-Mesflow-Env"

// Pinger is a dependency the ready probe checks.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady fails with the name of the first dependency that does not answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		for _, name := range []string{"database", "redis"} {
			dep, ok := deps[name]
			if !ok || dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
					WithDetails(map[string]any{"dependency": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
