// Package engine implements the KLBMatch scoring engine: binding timing
// results to participants, recomputing participant and team totals, and
// assigning competition-ranking places. All persistence goes through the
// bun storage layer; all score math goes through the scoring package.
package engine

import (
	"sync"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/klbrun/klbapi/report"
	"github.com/klbrun/klbapi/scoring"
)

// Engine holds the shared collaborators of all scoring operations.
type Engine struct {
	db     *bun.DB
	log    *zap.Logger
	calc   *scoring.Calc
	sender report.Sender
	// reportTo receives operator reports for fatal scoring conditions.
	reportTo string
	// activeYear is the one competition year open for mutation through
	// the normal scoring path. Administrative recomputation of closed
	// years goes through RecomputeYear directly.
	activeYear int

	mu      sync.Mutex
	yearMux map[int]*sync.Mutex
}

// New wires an engine. activeYear is the currently open competition year.
func New(db *bun.DB, log *zap.Logger, calc *scoring.Calc, sender report.Sender, reportTo string, activeYear int) *Engine {
	return &Engine{
		db:         db,
		log:        log,
		calc:       calc,
		sender:     sender,
		reportTo:   reportTo,
		activeYear: activeYear,
		yearMux:    map[int]*sync.Mutex{},
	}
}

// ActiveYear returns the competition year open for mutation.
func (e *Engine) ActiveYear() int { return e.activeYear }

// yearLock serializes ranking passes per year. Two concurrent ranking
// passes over the same year's population would interleave places.
func (e *Engine) yearLock(year int) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.yearMux[year]
	if !ok {
		m = &sync.Mutex{}
		e.yearMux[year] = m
	}
	return m
}
