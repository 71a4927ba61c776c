// Package engine orchestrates a batch: it builds the formula
// dependency graph, runs the layered topological sort, and executes
// each layer concurrently against four shared caches, committing
// results one layer at a time so later layers observe a consistent
// snapshot of earlier ones.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/formulaengine/internal/cache"
	"github.com/cwbudde/formulaengine/internal/errs"
	"github.com/cwbudde/formulaengine/internal/evaluator"
	"github.com/cwbudde/formulaengine/internal/fngraph"
	"github.com/cwbudde/formulaengine/internal/formula"
	"github.com/cwbudde/formulaengine/internal/function"
	"github.com/cwbudde/formulaengine/internal/parser"
	"github.com/cwbudde/formulaengine/internal/value"
)

// Engine is the batch orchestrator. The zero value is not usable;
// construct one with New.
type Engine struct {
	variables      cache.Cache[value.Value]
	formulaResults cache.Cache[value.Value]
	functions      cache.Cache[function.Function]
	functionCache  cache.Cache[value.Value]

	errMu  sync.Mutex
	errors map[string]string

	logger         *slog.Logger
	maxConcurrency int
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the Engine's logger. The default discards all
// output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMaxConcurrency bounds how many formulas within a single layer
// run at once. n <= 0 means unbounded (the default).
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) { e.maxConcurrency = n }
}

// New creates an Engine with empty caches and an empty error map.
func New(opts ...Option) *Engine {
	e := &Engine{
		variables:      cache.New[value.Value](),
		formulaResults: cache.New[value.Value](),
		functions:      cache.New[function.Function](),
		functionCache:  cache.New[value.Value](),
		errors:         make(map[string]string),
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetVariable writes name into the variable cache immediately,
// visible to every formula in subsequent Execute calls.
func (e *Engine) SetVariable(name string, v value.Value) {
	e.variables.Set(name, v)
}

// RegisterFunction adds fn to the function registry under
// snake_case(fn.Name())+"_"+fn.NumArgs(). The registry survives
// Clear.
func (e *Engine) RegisterFunction(fn function.Function) {
	id := function.BuildID(fn.Name(), fn.NumArgs())
	e.functions.Set(id, fn)
}

// GetResult returns the value a formula produced, if any. Results
// from every Execute since New or the last Clear are kept.
func (e *Engine) GetResult(name string) (value.Value, bool) {
	return e.formulaResults.Get(name)
}

// GetErrors returns a snapshot of the name -> error message map
// accumulated by every Execute since New or the last Clear.
func (e *Engine) GetErrors() map[string]string {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	out := make(map[string]string, len(e.errors))
	for k, v := range e.errors {
		out[k] = v
	}
	return out
}

// Clear empties variables, formula results, function results, and
// errors. The function registry is untouched.
func (e *Engine) Clear() {
	e.variables.Clear()
	e.formulaResults.Clear()
	e.functionCache.Clear()
	e.errMu.Lock()
	e.errors = make(map[string]string)
	e.errMu.Unlock()
}

// Execute runs one batch to completion. It returns a non-nil error
// only for a problem with the batch itself (a duplicate formula
// name); individual formula failures are captured per-name in
// GetErrors and never abort the call.
func (e *Engine) Execute(ctx context.Context, formulas []formula.Formula) error {
	graph := fngraph.New[string, formula.Formula]()

	for _, f := range formulas {
		if err := graph.AddNode(f.Name(), f, f.DependsOn()); err != nil {
			return errs.New(errs.DependencyError, "duplicate formula name: %s", f.Name())
		}
	}

	layers, detached := graph.TopologicalSort()

	e.errMu.Lock()
	for _, name := range detached {
		e.errors[name] = "Could not resolve dependency path"
	}
	e.errMu.Unlock()

	e.logger.Debug("dependency graph resolved", "layers", len(layers), "detached", len(detached))
	for _, name := range detached {
		e.logger.Warn("formula detached", "formula", name)
	}

	for i, layer := range layers {
		e.logger.Debug("executing layer", "index", i, "size", len(layer))
		if err := e.executeLayer(ctx, graph, layer); err != nil {
			return err
		}
	}

	return nil
}

type layerOutcome struct {
	name   string
	result value.Value
	err    error
}

func (e *Engine) executeLayer(ctx context.Context, graph *fngraph.Graph[string, formula.Formula], names []string) error {
	outcomes := make([]layerOutcome, len(names))

	group, groupCtx := errgroup.WithContext(ctx)
	if e.maxConcurrency > 0 {
		group.SetLimit(e.maxConcurrency)
	}

	for i, name := range names {
		i, name := i, name
		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = nil // panics become per-formula errors, not batch failures
					outcomes[i] = layerOutcome{name: name, err: errs.New(errs.EvalError, "panic during evaluation: %v", r)}
				}
			}()

			if groupCtx.Err() != nil {
				outcomes[i] = layerOutcome{name: name, err: groupCtx.Err()}
				return nil
			}

			e.logger.Debug("dispatching formula", "formula", name)
			f, _ := graph.Get(name)
			result, evalErr := e.runFormula(f)
			if evalErr != nil {
				e.logger.Warn("formula failed", "formula", name, "error", evalErr)
			}
			outcomes[i] = layerOutcome{name: name, result: result, err: evalErr}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	e.errMu.Lock()
	defer e.errMu.Unlock()

	for _, outcome := range outcomes {
		if outcome.err != nil {
			e.errors[outcome.name] = fmt.Sprintf("Error executing formula '%s': %s", outcome.name, outcome.err.Error())
			continue
		}
		e.formulaResults.Set(outcome.name, outcome.result)
	}

	return nil
}

func (e *Engine) runFormula(f formula.Formula) (value.Value, error) {
	program, err := parser.Parse(f.Body())
	if err != nil {
		return value.Value{}, err
	}

	ev := evaluator.Evaluator{
		Variables:      e.variables,
		FormulaResults: e.formulaResults,
		Functions:      e.functions,
		FunctionCache:  e.functionCache,
	}

	return ev.Evaluate(program)
}
