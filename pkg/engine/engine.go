// Package engine provides the Lisp front end for zonecsg. It wraps zygomys
// in a sandboxed environment and produces a Registry from user source code.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/zonecsg/pkg/registry"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or a malformed body.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the hard limit of a single evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandboxed environment for
// determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
	log        *slog.Logger
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout: EvalTimeout,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate takes Lisp source code and builds a new Registry.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns registry + nil errors + nil error
//   - On parse/eval/build failure: returns nil registry + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*registry.Registry, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		reg, evalErrs, err := e.evaluate(source)
		ch <- evalResult{registry: reg, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, e.timeout, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*registry.Registry, []EvalError, error) {
	b := registry.NewBuilder()

	// Empty source is a valid program that produces an empty registry.
	if strings.TrimSpace(source) == "" {
		reg, err := b.Build()
		return reg, nil, err
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	reg, err := b.Build()
	if err != nil {
		return nil, buildErrors(err), nil
	}
	e.log.Debug("evaluated geometry",
		"bodies", reg.BodyCount(),
		"regions", len(reg.Regions()),
		"lattices", len(reg.Lattices()))
	return reg, nil, nil
}

// buildErrors flattens the joined integrity errors of Builder.Build.
func buildErrors(err error) []EvalError {
	var errs []error
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs = j.Unwrap()
	} else {
		errs = []error{err}
	}
	out := make([]EvalError, 0, len(errs))
	for _, e := range errs {
		out = append(out, EvalError{Message: e.Error()})
	}
	return out
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
