package checker

import "github.com/eaburns/effck/loc"

// A CallContext is the ambient state at a call site.
type CallContext struct {
	// AmbientSuspendCapable is whether the enclosing body may suspend.
	AmbientSuspendCapable bool
	// AmbientFailCapable is whether the enclosing body may fail.
	AmbientFailCapable bool
	// MarkedSuspend is whether the call is covered by await.
	MarkedSuspend bool
	// MarkedFail is whether the call is covered by try.
	MarkedFail bool
	// Handled is whether failures are handled before reaching the body,
	// by a do/catch statement or by try?.
	Handled bool
}

// Ambient returns the capabilities of the enclosing body.
func (cc CallContext) Ambient() EffectSet {
	var e EffectSet
	if cc.AmbientSuspendCapable {
		e |= Suspends
	}
	if cc.AmbientFailCapable {
		e |= Fails
	}
	return e
}

// Marked returns the capabilities acknowledged by markers at the call site.
func (cc CallContext) Marked() EffectSet {
	var e EffectSet
	if cc.MarkedSuspend {
		e |= Suspends
	}
	if cc.MarkedFail {
		e |= Fails
	}
	return e
}

// A Tracker is a stack of CallContexts
// maintained during the traversal of a single declaration.
// The zero value is an empty stack, with a zero CallContext current.
type Tracker struct {
	stack []CallContext
}

// Current returns the innermost CallContext.
func (t *Tracker) Current() CallContext {
	if len(t.stack) == 0 {
		return CallContext{}
	}
	return t.stack[len(t.stack)-1]
}

// Enter pushes cc and returns a function that restores the stack
// to its state before the push.
// The returned function is meant to be deferred,
// so that the context is restored on every exit from the scope.
func (t *Tracker) Enter(cc CallContext) (exit func()) {
	n := len(t.stack)
	t.stack = append(t.stack, cc)
	return func() { t.stack = t.stack[:n] }
}

// EnterBody enters a function or closure body with the given capabilities.
// Markers and handlers of the enclosing context do not carry into the body.
func (t *Tracker) EnterBody(ambient EffectSet) (exit func()) {
	return t.Enter(CallContext{
		AmbientSuspendCapable: ambient.Suspends(),
		AmbientFailCapable:    ambient.Fails(),
	})
}

// EnterMarker enters an expression covered by await, try, or both.
func (t *Tracker) EnterMarker(marks EffectSet) (exit func()) {
	cc := t.Current()
	cc.MarkedSuspend = cc.MarkedSuspend || marks.Suspends()
	cc.MarkedFail = cc.MarkedFail || marks.Fails()
	return t.Enter(cc)
}

// EnterHandler enters a scope whose failures are handled.
func (t *Tracker) EnterHandler() (exit func()) {
	cc := t.Current()
	cc.Handled = true
	return t.Enter(cc)
}

// CheckCall checks a call with the given effects at l
// against the current context.
// It returns the effects that the call contributes to the enclosing body,
// and diagnostics for any missing markers or capabilities.
// The contribution is the same whether or not there are diagnostics,
// so checking continues as if the call were correctly marked.
func (t *Tracker) CheckCall(effects EffectSet, l loc.Loc) (EffectSet, []*Diagnostic) {
	cc := t.Current()
	var diags []*Diagnostic
	if effects.Suspends() {
		if !cc.MarkedSuspend {
			diags = append(diags, unmarked(UnmarkedSuspendingCall, l, "async", "await"))
		}
		if !cc.AmbientSuspendCapable {
			diags = append(diags, newDiag(UnsupportedEffect, l,
				"'async' call in a function that does not support concurrency"))
		}
	}
	contributed := effects
	if effects.Fails() {
		switch {
		case !cc.Handled && !cc.AmbientFailCapable:
			diags = append(diags, newDiag(UnsupportedEffect, l,
				"errors thrown from here are not handled"))
		case !cc.MarkedFail:
			diags = append(diags, unmarked(UnmarkedFailingCall, l, "throws", "try"))
		}
		if cc.Handled {
			contributed &^= Fails
		}
	}
	return contributed, diags
}

func unmarked(kind Kind, l loc.Loc, effect, marker string) *Diagnostic {
	var d *Diagnostic
	if kind == UnmarkedSuspendingCall {
		d = newDiag(kind, l, "expression is 'async' but is not marked with '%s'", marker)
		d.note(l, "call is 'async'")
	} else {
		d = newDiag(kind, l, "call can throw but is not marked with '%s'", marker)
		d.note(l, "call is to '%s' function", effect)
	}
	return d.insert(l, marker+" ")
}
