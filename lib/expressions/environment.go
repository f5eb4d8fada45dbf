// Package expressions evaluates CEL expressions against HTTP requests. It
// decides which requests must carry a solved challenge.
package expressions

import (
	"net/netip"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

// NewEnvironment declares the request variables and helper functions
// validate_when expressions may use. Expressions are type checked against it
// at startup.
func NewEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(
			ext.StringsLocale("en_US"),
			ext.StringsValidateFormatCalls(true),
		),
		cel.DefaultUTCTimeZone(true),

		cel.Variable("remoteAddress", cel.StringType),
		cel.Variable("host", cel.StringType),
		cel.Variable("method", cel.StringType),
		cel.Variable("userAgent", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Variable("contentType", cel.StringType),
		cel.Variable("query", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),

		// inNetwork(remoteAddress, "10.0.0.0/8")
		cel.Function("inNetwork",
			cel.Overload("inNetwork_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(inNetwork),
			),
		),
	)
}

// inNetwork reports whether an address lies in a CIDR prefix. An address that
// does not parse is in no network. A bad prefix is an evaluation error.
func inNetwork(addrVal, cidrVal ref.Val) ref.Val {
	addrStr, ok := addrVal.Value().(string)
	if !ok {
		return types.MaybeNoSuchOverloadErr(addrVal)
	}

	cidr, ok := cidrVal.Value().(string)
	if !ok {
		return types.MaybeNoSuchOverloadErr(cidrVal)
	}

	pfx, err := netip.ParsePrefix(cidr)
	if err != nil {
		return types.NewErr("inNetwork: %v", err)
	}

	addr, err := netip.ParseAddr(addrStr)
	if err != nil {
		return types.False
	}

	return types.Bool(pfx.Contains(addr.Unmap()))
}

func program(env *cel.Env, ast *cel.Ast) (cel.Program, error) {
	return env.Program(ast, cel.EvalOptions(cel.OptOptimize))
}
