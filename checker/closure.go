package checker

import (
	"fmt"
	"strconv"

	"github.com/eaburns/effck/parser"
)

// A MismatchError reports a closure body that needs
// effects that its expected type does not allow.
type MismatchError struct {
	Need    EffectSet
	Allowed EffectSet
}

func (err *MismatchError) Error() string {
	return fmt.Sprintf("closure needs %s, but its expected type allows %s",
		effectsString(err.Need), effectsString(err.Allowed))
}

func effectsString(e EffectSet) string {
	if e == NoEffects {
		return "no effects"
	}
	return e.String()
}

// InferEffects returns the effects of a closure
// given the effects needed by each sub-expression of its body
// and its expected type, which may be nil.
//
// Without an expected type, the closure has the join of the body effects.
// With an expected type allowing at least those effects,
// the closure is widened to the expected effects.
// Otherwise InferEffects returns the join of the body effects
// and a *MismatchError.
func InferEffects(body []EffectSet, expected *FuncType) (EffectSet, error) {
	need := JoinAll(body)
	switch {
	case expected == nil:
		return need, nil
	case !Convertible(need, expected.Effects):
		return need, &MismatchError{Need: need, Allowed: expected.Effects}
	default:
		return expected.Effects, nil
	}
}

// expectedFunc returns the function type expected by want, if any,
// and whether it determines only parameter and result types.
func expectedFunc(want Type) (*FuncType, bool) {
	switch want := want.(type) {
	case *FuncType:
		return want, false
	case effectsOpen:
		return want.FuncType, true
	case *OptType:
		f, _ := want.Elem.(*FuncType)
		return f, false
	default:
		return nil, false
	}
}

func (x *declChecker) checkClosure(c *parser.Closure, want Type) Type {
	expected, open := expectedFunc(want)
	tr := x.tr.item("closure (%v) expected %s", c.L, typeString(want))
	defer tr.done()
	defer func(saved *local) { x.locals = saved }(x.locals)

	fun := &FuncType{}
	switch {
	case c.Parms != nil:
		fun.Parms = make([]Type, len(c.Parms))
		for i, p := range c.Parms {
			switch {
			case expected == nil:
				x.em.emit(newDiag(CannotInfer, p.L, "cannot infer type of closure parameter '%s' without a type annotation", p.Name))
			case i < len(expected.Parms):
				fun.Parms[i] = expected.Parms[i]
			}
			if p.Name != "_" {
				x.bind(p.Name, fun.Parms[i], false, p.L)
			}
		}
		if expected != nil && len(c.Parms) != len(expected.Parms) {
			x.em.emit(newDiag(TypeMismatch, c.L, "contextual closure type '%s' expects %s, but %s were used in closure body",
				expected.String(), plural(len(expected.Parms), "argument"), strconv.Itoa(len(c.Parms))))
		}
	case expected != nil:
		fun.Parms = append([]Type{}, expected.Parms...)
		for i, t := range expected.Parms {
			x.bind("$"+strconv.Itoa(i), t, false, c.L)
		}
	}

	var ret Type
	if expected != nil {
		ret = expected.Ret
	}
	needs := x.checkClosureBody(c, fun, ret)

	effectsWant := expected
	if open {
		effectsWant = nil
	}
	var mismatch bool
	var err error
	fun.Effects, err = InferEffects(needs, effectsWant)
	if err != nil {
		mismatch = true
		me := err.(*MismatchError)
		d := narrowing(fun, expected, Narrowed(me.Need, me.Allowed), c.L)
		d.Kind = ClosureEffectMismatch
		d.Severity = ClosureEffectMismatch.Severity()
		d.note(c.L, "%s", me.Error())
		x.em.emit(d)
		x.mismatched[c] = true
	}
	tr.trace("type %s", fun)
	x.closures = append(x.closures, ClosureInfo{L: c.L, Type: fun, Mismatch: mismatch})
	return fun
}

// checkClosureBody checks the body of the closure, setting the result type of fun.
// It returns the effects needed by each sub-expression of the body.
func (x *declChecker) checkClosureBody(c *parser.Closure, fun *FuncType, ret Type) []EffectSet {
	saved := x.frame
	defer func() { x.frame = saved }()
	x.frame = &frame{closure: true, ret: ret}
	exit := x.tracker.EnterBody(AllEffects)
	defer exit()

	if e := singleExpr(c.Body); e != nil {
		switch {
		case ret == nil:
			fun.Ret = x.checkExpr(e, nil)
		case eqType(ret, voidType):
			// The value of a single expression is discarded
			// if the expected result is Void.
			x.checkExpr(e, nil)
			fun.Ret = ret
		default:
			x.checkExprTo(e, ret, "closure result type")
			fun.Ret = ret
		}
		return x.frame.needs
	}
	x.checkBlock(c.Body)
	switch {
	case ret != nil:
		fun.Ret = ret
	case len(x.frame.rets) > 0:
		fun.Ret = x.frame.rets[0]
	default:
		fun.Ret = voidType
	}
	return x.frame.needs
}

func singleExpr(b *parser.Block) parser.Expr {
	if len(b.Stmts) != 1 {
		return nil
	}
	if s, ok := b.Stmts[0].(*parser.ExprStmt); ok {
		return s.Expr
	}
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
