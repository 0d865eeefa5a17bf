package llvmgen

import (
	"fmt"

	"github.com/hottestseason/Stone/pkg/domain"
	"github.com/hottestseason/Stone/pkg/token"
	"github.com/pkg/errors"
)

var (
	ErrUnresolved         = errors.New("unresolved reference")
	ErrTypeMismatch       = domain.ErrMismatch
	ErrRecursiveInference = errors.New("recursive function needs a declared return type")
	ErrUnknownType        = errors.New("unknown type")
	ErrRedefined          = errors.New("already defined")
	ErrArity              = errors.New("wrong number of arguments")
)

// Error is a lowering failure located at the token that caused it. Err
// wraps one of the sentinel errors above.
type Error struct {
	Token token.Token
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gen-error: %d:%d: %s", e.Token.Pos.Line, e.Token.Pos.Column, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// genError aborts the lowering of the current function. Define recovers it.
func genError(tok token.Token, cause error, format string, args ...interface{}) {
	panic(&Error{Token: tok, Err: errors.Wrapf(cause, format, args...)})
}
