package llvmgen

import (
	"github.com/hottestseason/Stone/pkg/domain"
	"github.com/llir/llvm/ir"
)

// binding is a variable's stack slot and the domain of the values it holds.
type binding struct {
	slot   *ir.InstAlloca
	domain domain.Domain
}

// env maps variable names to their slots within one function. A fresh env
// is created for every function body, so nothing leaks between functions.
type env struct {
	bindings map[string]binding
}

func newEnv() *env {
	return &env{bindings: make(map[string]binding)}
}

func (e *env) lookup(name string) (binding, bool) {
	b, ok := e.bindings[name]
	return b, ok
}

func (e *env) bind(name string, b binding) {
	e.bindings[name] = b
}
