package llvmgen

import (
	"github.com/hottestseason/Stone/pkg/ast"
	"github.com/hottestseason/Stone/pkg/domain"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// inferReturnType lowers the body of def into a shell function that is never
// added to the module nor to the function table, and reports the domain of
// the body's value. The shell is dropped afterwards.
//
// While the shell is being lowered, a call to def itself cannot be typed and
// is rejected with ErrRecursiveInference.
func (g *Generator) inferReturnType(def *ast.Def) domain.Domain {
	shell := ir.NewFunc(def.Name(), types.Void, g.genParams(def)...)

	g.inferring = def.Name()
	defer func() { g.inferring = "" }()

	return g.genBody(shell, def, false)
}

// InferReturnType reports the return domain def would be declared with.
// Nothing is added to the module.
func (g *Generator) InferReturnType(def *ast.Def) (d domain.Domain, err error) {
	defer func() {
		if r := recover(); r != nil {
			gerr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			d, err = domain.Unknown, gerr
		}
		g.reset()
	}()

	if ret := domain.Resolve(def.ReturnType); ret != domain.Unknown {
		return ret, nil
	}
	return g.inferReturnType(def), nil
}
