package expressions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// JoinOperator combines clauses of a validate_when list.
type JoinOperator string

const (
	JoinAnd JoinOperator = "&&"
	JoinOr  JoinOperator = "||"
)

func (jo JoinOperator) Valid() error {
	switch jo {
	case JoinAnd, JoinOr:
		return nil
	default:
		return fmt.Errorf("%w: wanted && or ||, got: %q", ErrWrongJoinOperator, string(jo))
	}
}

var (
	ErrWrongJoinOperator = errors.New("expressions: invalid join operator")
	ErrNoExpressions     = errors.New("expressions: cannot join zero expressions")
	ErrCantCompile       = errors.New("expressions: can't compile one expression")
)

// compileBool compiles one expression and insists that it yields a bool.
func compileBool(env *cel.Env, src string) (*cel.Ast, error) {
	ast, iss := env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %q gave: %w", ErrCantCompile, src, iss.Err())
	}

	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotBool, src, out)
	}

	return ast, nil
}

// Join checks every clause on its own, reporting all failures at once, then
// compiles them as one expression. Each clause is parenthesized so that
//
//	method == "POST"
//	path.startsWith("/comments") || path.startsWith("/contact")
//
// becomes
//
//	(method == "POST") && (path.startsWith("/comments") || path.startsWith("/contact"))
//
// The joined source is returned alongside its syntax tree.
func Join(env *cel.Env, operator JoinOperator, clauses ...string) (string, *cel.Ast, error) {
	if err := operator.Valid(); err != nil {
		return "", nil, err
	}

	if len(clauses) == 0 {
		return "", nil, ErrNoExpressions
	}

	var errs []error
	for _, clause := range clauses {
		if _, err := compileBool(env, clause); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) != 0 {
		return "", nil, fmt.Errorf("errors while joining clauses: %w", errors.Join(errs...))
	}

	if len(clauses) == 1 {
		ast, err := compileBool(env, clauses[0])
		return clauses[0], ast, err
	}

	parts := make([]string, len(clauses))
	for i, clause := range clauses {
		parts[i] = "(" + strings.TrimSpace(clause) + ")"
	}
	src := strings.Join(parts, " "+string(operator)+" ")

	ast, err := compileBool(env, src)
	if err != nil {
		return "", nil, err
	}

	return src, ast, nil
}
