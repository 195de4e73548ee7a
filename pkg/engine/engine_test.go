package engine

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	for _, src := range []string{"", "   \n\t  \n  "} {
		reg, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if reg == nil {
			t.Fatal("expected non-nil registry")
		}
		if reg.BodyCount() != 0 || len(reg.Regions()) != 0 {
			t.Errorf("expected empty registry, got %d bodies, %d regions", reg.BodyCount(), len(reg.Regions()))
		}
	}
}

func TestEvaluatePlainLisp(t *testing.T) {
	eng := NewEngine()

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	reg, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if reg == nil || reg.BodyCount() != 0 {
		t.Fatal("expected an empty registry")
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	// Unmatched paren is a parse error.
	reg, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if reg != nil {
		t.Fatal("expected nil registry on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	reg, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if reg != nil {
		t.Fatal("expected nil registry on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateIntegrityErrors(t *testing.T) {
	eng := NewEngine()

	source := `
(sph "s" 0 0 0 1)
(region "R" :material "UNOBTAINIUM" "+s")
(region "R" :material "IRON" "+s")
(lattice "L" :prototype "nowhere")
`
	reg, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if reg != nil {
		t.Fatal("expected nil registry on integrity failure")
	}
	if len(evalErrs) != 3 {
		t.Fatalf("expected 3 eval errors, got %d: %v", len(evalErrs), evalErrs)
	}
	var all []string
	for _, e := range evalErrs {
		all = append(all, e.Message)
	}
	joined := strings.Join(all, "\n")
	for _, want := range []string{"duplicate region name", `"UNOBTAINIUM"`, `"nowhere"`} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected an error mentioning %s, got:\n%s", want, joined)
		}
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Col: 0, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Line: 0, Col: 0, Message: "no location"}
	if s2 := e2.Error(); strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	source := `
(rpp "a" 0 10 0 10 0 10)
(rpp "b" 20 30 20 30 20 30)
(region "R" :material "IRON" "+a | +b")
`
	var first string
	for i := 0; i < 5; i++ {
		reg, evalErrs, err := eng.Evaluate(source)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		r, _ := reg.Region("R")
		got := formatZones(r.Zones, reg.BodyName)
		if i == 0 {
			first = got
		} else if got != first {
			t.Errorf("iteration %d: zones %q, want %q", i, got, first)
		}
	}
	if first != "+a | +b" {
		t.Errorf("zones = %q", first)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// The timeout plumbing is tested directly with a channel that never
	// sends; zygomys loops would tie up a goroutine past the test.
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult)

	done := make(chan struct{})
	var resultErr error
	go func() {
		defer close(done)
		_, _, resultErr = waitWithTimeout(ch, 50*time.Millisecond, 1, &mu, &gen)
	}()

	select {
	case <-done:
		if resultErr == nil {
			t.Fatal("expected timeout error, got nil")
		}
		if !strings.Contains(resultErr.Error(), "timed out after 50ms") {
			t.Errorf("expected timeout error message, got: %v", resultErr)
		}
	case <-time.After(EvalTimeout):
		t.Fatal("test itself timed out waiting for evaluation timeout")
	}
}

func TestWithTimeout(t *testing.T) {
	eng := NewEngine(WithTimeout(time.Minute))
	if eng.timeout != time.Minute {
		t.Errorf("timeout = %s, want 1m", eng.timeout)
	}
	if NewEngine().timeout != EvalTimeout {
		t.Error("default timeout should be EvalTimeout")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2) // Current generation is 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	// Pass generation 1 (stale).
	_, _, err := waitWithTimeout(ch, EvalTimeout, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: bad body",
			wantLine: 3,
			wantMsg:  "bad body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
