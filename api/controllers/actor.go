package controllers

import (
	"net/http"

	"github.com/angelmondragon/mesflow-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
)

func requireActor(r *http.Request) (middleware.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return middleware.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor missing from request")
	}
	return actor, nil
}
