package handlers

import (
	"github.com/uptrace/bun"

	"github.com/klbrun/klbapi/engine"
)

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	db     *bun.DB
	engine *engine.Engine
	JWTKey []byte
}

// New creates a Handler with the given database connection, scoring
// engine and JWT signing key.
func New(db *bun.DB, eng *engine.Engine, jwtKey []byte) *Handler {
	return &Handler{db: db, engine: eng, JWTKey: jwtKey}
}
