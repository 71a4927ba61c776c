// Package formulaengine is the embedding surface for the formula
// evaluation engine: construct an Engine, set variables, register
// host functions, submit a batch of Formulas, then read back results
// and per-formula errors.
package formulaengine

import (
	"context"
	"log/slog"

	"github.com/cwbudde/formulaengine/internal/engine"
	"github.com/cwbudde/formulaengine/internal/formula"
	"github.com/cwbudde/formulaengine/internal/function"
	"github.com/cwbudde/formulaengine/internal/value"
)

// Value is the runtime value type formulas operate on.
type Value = value.Value

// String, Number and Bool construct Values of the respective kind.
func String(s string) Value { return value.String(s) }
func Number(n float64) Value { return value.Number(n) }
func Bool(b bool) Value      { return value.Bool(b) }

// Function is the contract a host implements to expose a callable to
// formula bodies.
type Function = function.Function

// Formula is a named source snippet; its dependency list is extracted
// once, at construction.
type Formula = formula.Formula

// NewFormula builds a Formula, extracting its get_output_from
// dependencies from body.
func NewFormula(name, body string) Formula { return formula.New(name, body) }

// Option configures an Engine at construction time.
type Option = engine.Option

// WithLogger overrides the Engine's structured logger. The default
// discards all output.
func WithLogger(logger *slog.Logger) Option { return engine.WithLogger(logger) }

// WithMaxConcurrency bounds how many formulas within a single
// dependency layer run concurrently. n <= 0 means unbounded.
func WithMaxConcurrency(n int) Option { return engine.WithMaxConcurrency(n) }

// Engine is the batch orchestrator: it builds the dependency graph
// for a batch, executes it layer by layer, and exposes per-formula
// results and errors.
type Engine struct {
	inner *engine.Engine
}

// New creates an Engine with empty caches.
func New(opts ...Option) *Engine {
	return &Engine{inner: engine.New(opts...)}
}

// SetVariable writes name into the variable cache, visible to every
// formula in subsequent Execute calls.
func (e *Engine) SetVariable(name string, v Value) { e.inner.SetVariable(name, v) }

// RegisterFunction adds fn to the function registry, keyed by
// (snake_case(fn.Name()), fn.NumArgs()). The registry survives Clear.
func (e *Engine) RegisterFunction(fn Function) { e.inner.RegisterFunction(fn) }

// Execute runs one batch to completion. It returns a non-nil error
// only for a problem with the batch itself (a duplicate formula
// name); individual formula failures are captured per-name and
// retrieved via GetErrors.
func (e *Engine) Execute(ctx context.Context, formulas []Formula) error {
	return e.inner.Execute(ctx, formulas)
}

// GetResult returns the value a formula produced, if any. Results
// from every Execute since New or the last Clear are kept.
func (e *Engine) GetResult(name string) (Value, bool) { return e.inner.GetResult(name) }

// GetErrors returns a snapshot of the name -> error message map
// accumulated by every Execute since New or the last Clear.
func (e *Engine) GetErrors() map[string]string { return e.inner.GetErrors() }

// Clear empties variables, formula results, function results, and
// errors. The function registry is untouched.
func (e *Engine) Clear() { e.inner.Clear() }
