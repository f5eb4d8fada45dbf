package expressions

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// DefaultValidateWhen matches the methods that submit forms.
const DefaultValidateWhen = `method in ["POST", "PUT", "PATCH", "DELETE"]`

var ErrNotBool = errors.New("expressions: expression does not evaluate to a bool")

// Checker evaluates a boolean expression against requests.
type Checker struct {
	src     string
	program cel.Program
}

// NewChecker compiles a single expression.
func NewChecker(expression string) (*Checker, error) {
	return NewCheckerFromList(JoinAnd, expression)
}

// NewCheckerFromList joins clauses with operator and compiles the result.
func NewCheckerFromList(operator JoinOperator, clauses ...string) (*Checker, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, err
	}

	src, ast, err := Join(env, operator, clauses...)
	if err != nil {
		return nil, err
	}

	prg, err := program(env, ast)
	if err != nil {
		return nil, fmt.Errorf("can't compile CEL program: %w", err)
	}

	return &Checker{
		src:     src,
		program: prg,
	}, nil
}

func (c *Checker) String() string { return c.src }

// Check evaluates the expression for r. Non-bool results count as false.
func (c *Checker) Check(r *http.Request) (bool, error) {
	result, _, err := c.program.ContextEval(r.Context(), &Request{r})
	if err != nil {
		return false, err
	}

	if val, ok := result.(types.Bool); ok {
		return bool(val), nil
	}

	return false, nil
}

// Request is the CEL activation for an HTTP request.
type Request struct {
	*http.Request
}

func (cr *Request) Parent() cel.Activation { return nil }

func (cr *Request) ResolveName(name string) (any, bool) {
	switch name {
	case "remoteAddress":
		return cr.Header.Get("X-Real-Ip"), true
	case "host":
		return cr.Host, true
	case "method":
		return cr.Method, true
	case "userAgent":
		return cr.UserAgent(), true
	case "path":
		return cr.URL.Path, true
	case "contentType":
		return cr.Header.Get("Content-Type"), true
	case "query":
		return Query(cr.URL.Query()), true
	case "headers":
		return Headers(cr.Header), true
	default:
		return nil, false
	}
}
