package checker

import (
	"sort"
	"strconv"
	"strings"

	"github.com/eaburns/effck/loc"
	"github.com/eaburns/effck/parser"
	"golang.org/x/sync/errgroup"
)

// Result is the result of checking.
type Result struct {
	// Diags are all diagnostics sorted by location.
	Diags []*Diagnostic
	// Calls are the resolved calls in traversal order.
	Calls []ResolvedCall
	// Closures are the final types of closure literals.
	Closures []ClosureInfo
	// Files are the checked files, for resolving locations.
	Files loc.Files
}

// A ResolvedCall is a call expression and its selected candidate.
type ResolvedCall struct {
	L         loc.Loc
	Candidate *Candidate
}

// ClosureInfo is the inferred type of a closure literal.
type ClosureInfo struct {
	L    loc.Loc
	Type *FuncType
	// Mismatch is whether the closure's body needs
	// effects that its expected type does not allow.
	// In that case Type has the needed effects.
	Mismatch bool
}

// Errors returns the diagnostics with Error severity.
func (r *Result) Errors() []*Diagnostic {
	var errs []*Diagnostic
	for _, d := range r.Diags {
		if d.Severity == Error {
			errs = append(errs, d)
		}
	}
	return errs
}

type global struct {
	typ Type // nil if the declared type is invalid
	l   loc.Loc
}

// topScope holds the global declarations.
// It is built before any declaration is checked,
// and it is read-only afterwards.
type topScope struct {
	files loc.Files
	funcs map[string][]*Candidate
	vars  map[string]*global
	cands map[*parser.FuncDecl]*Candidate
}

var prelude = []*Candidate{
	{Name: "print", Func: &FuncType{Parms: []Type{stringType}, Ret: voidType}},
}

// Check checks the declarations of the files.
//
// Function bodies are checked independently,
// up to cfg.Parallelism at a time.
// A failure in one declaration never prevents checking another.
func Check(files []*parser.File, cfg Config) *Result {
	var locFiles loc.Files
	for _, f := range files {
		locFiles = append(locFiles, f)
	}
	var em emitter
	top := collect(&em, locFiles, files)

	var decls []*parser.FuncDecl
	for _, f := range files {
		for _, d := range f.Decls {
			if d, ok := d.(*parser.FuncDecl); ok {
				decls = append(decls, d)
			}
		}
	}
	xs := make([]*declChecker, len(decls))
	var g errgroup.Group
	g.SetLimit(cfg.parallelism())
	for i, d := range decls {
		i, d := i, d
		g.Go(func() error {
			xs[i] = checkDecl(top, cfg, d)
			return nil
		})
	}
	// The goroutines never return an error.
	_ = g.Wait()

	res := &Result{Diags: em.diags, Files: locFiles}
	for _, x := range xs {
		res.Diags = append(res.Diags, x.em.diags...)
		res.Calls = append(res.Calls, x.calls...)
		res.Closures = append(res.Closures, x.closures...)
	}
	sort.SliceStable(res.Diags, func(i, j int) bool {
		return res.Diags[i].L[0] < res.Diags[j].L[0]
	})
	return res
}

func collect(em *emitter, files loc.Files, parserFiles []*parser.File) *topScope {
	top := &topScope{
		files: files,
		funcs: make(map[string][]*Candidate),
		vars:  make(map[string]*global),
		cands: make(map[*parser.FuncDecl]*Candidate),
	}
	for _, c := range prelude {
		top.funcs[c.Name] = append(top.funcs[c.Name], c)
	}
	for _, f := range parserFiles {
		for _, d := range f.Decls {
			switch d := d.(type) {
			case *parser.FuncDecl:
				c := makeCandidate(em, d)
				top.cands[d] = c
				if prev, ok := top.vars[c.Name]; ok {
					em.emit(redeclared(c.Name, d.Name.L, prev.l))
					continue
				}
				if prev := findSame(top.funcs[c.Name], c); prev != nil {
					em.emit(redeclared(c.Name, d.Name.L, prev.L))
					continue
				}
				top.funcs[c.Name] = append(top.funcs[c.Name], c)
			case *parser.VarDecl:
				name := d.Name.Name
				if prev, ok := top.vars[name]; ok {
					em.emit(redeclared(name, d.Name.L, prev.l))
					continue
				}
				if cs := top.funcs[name]; len(cs) > 0 {
					em.emit(redeclared(name, d.Name.L, cs[0].L))
					continue
				}
				top.vars[name] = &global{typ: makeType(em, d.Type), l: d.Name.L}
			default:
				panic("impossible parser.Decl type")
			}
		}
	}
	return top
}

func makeCandidate(em *emitter, d *parser.FuncDecl) *Candidate {
	c := &Candidate{
		Name: d.Name.Name,
		Func: &FuncType{
			Parms:   make([]Type, len(d.Parms)),
			Ret:     voidType,
			Effects: makeEffects(d.Effects),
		},
		L: d.Name.L,
	}
	for i, p := range d.Parms {
		c.Func.Parms[i] = makeType(em, p.Type)
		if p.Default != nil {
			c.Defaults++
		} else {
			c.Defaults = 0
		}
	}
	if d.Ret != nil {
		c.Func.Ret = makeType(em, d.Ret)
	}
	if attr := d.Deprecated(); attr != nil {
		c.Avail = &Availability{Severity: Warning}
		if attr.Msg != nil {
			c.Avail.Msg = attr.Msg.Data
		}
	}
	return c
}

// findSame returns the candidate with the same full signature as c, if any.
func findSame(cands []*Candidate, c *Candidate) *Candidate {
	for _, prev := range cands {
		if eqType(prev.Func, c.Func) {
			return prev
		}
	}
	return nil
}

// declChecker checks a single function declaration.
// It is not safe for concurrent use;
// each declaration has its own declChecker.
type declChecker struct {
	top     *topScope
	decl    *parser.FuncDecl
	em      emitter
	tracker Tracker
	tr      *tracer
	locals  *local
	frame   *frame

	calls      []ResolvedCall
	closures   []ClosureInfo
	mismatched map[*parser.Closure]bool
}

// A frame is a function or closure body being checked.
type frame struct {
	closure bool
	// ret is the result type,
	// or nil for a closure with an inferred result type.
	ret Type
	// rets are the types of return statements,
	// for inferring a closure result type.
	rets []Type
	// needs are the effects of each sub-expression
	// that reach the body.
	needs []EffectSet
	// performed are the effects of all calls,
	// including those whose failures are handled.
	performed EffectSet
}

func (f *frame) need(e EffectSet) {
	if e != NoEffects {
		f.needs = append(f.needs, e)
	}
}

type local struct {
	up      *local
	name    string
	typ     Type
	mutable bool
	l       loc.Loc
}

func checkDecl(top *topScope, cfg Config, d *parser.FuncDecl) *declChecker {
	x := &declChecker{
		top:        top,
		decl:       d,
		tr:         newTracer(cfg, top.files, d.Name.Name),
		mismatched: make(map[*parser.Closure]bool),
	}
	fun := top.cands[d].Func
	tr := x.tr.item("func %s%s (%v)", d.Name.Name, fun, d.L)
	defer tr.done()

	for i, p := range d.Parms {
		if p.Default != nil {
			x.checkDefault(p.Default, fun.Parms[i])
		}
	}
	if d.Body == nil {
		return x
	}
	exit := x.tracker.EnterBody(fun.Effects)
	defer exit()
	x.frame = &frame{ret: fun.Ret}
	for i, p := range d.Parms {
		if p.Name != nil && p.Name.Name != "_" {
			x.bind(p.Name.Name, fun.Parms[i], false, p.Name.L)
		}
	}
	x.checkBlock(d.Body)
	return x
}

func (x *declChecker) checkDefault(e parser.Expr, t Type) {
	exit := x.tracker.EnterBody(NoEffects)
	defer exit()
	x.frame = &frame{ret: t}
	x.checkExprTo(e, t, "parameter type")
}

func (x *declChecker) bind(name string, t Type, mutable bool, l loc.Loc) {
	x.locals = &local{up: x.locals, name: name, typ: t, mutable: mutable, l: l}
}

func (x *declChecker) lookup(name string) *local {
	for l := x.locals; l != nil; l = l.up {
		if l.name == name {
			return l
		}
	}
	return nil
}

func (x *declChecker) checkBlock(b *parser.Block) {
	defer func(saved *local) { x.locals = saved }(x.locals)
	for _, s := range b.Stmts {
		x.checkStmt(s)
	}
}

func (x *declChecker) checkStmt(s parser.Stmt) {
	switch s := s.(type) {
	case *parser.LetStmt:
		x.checkLet(s)
	case *parser.AssignStmt:
		x.checkAssign(s)
	case *parser.ReturnStmt:
		x.checkReturn(s)
	case *parser.DoStmt:
		x.checkDo(s)
	case *parser.ExprStmt:
		x.checkExpr(s.Expr, nil)
	default:
		panic("impossible parser.Stmt type")
	}
}

func (x *declChecker) checkLet(s *parser.LetStmt) {
	var want Type
	if s.Type != nil {
		want = makeType(&x.em, s.Type)
	}
	t := x.checkExprTo(s.Expr, want, "specified type")
	if s.Type != nil {
		t = want
	}
	if s.Name.Name != "_" {
		x.bind(s.Name.Name, t, s.Var, s.Name.L)
	}
}

func (x *declChecker) checkAssign(s *parser.AssignStmt) {
	name := s.Target.Name
	if name == "_" {
		x.checkExpr(s.Expr, nil)
		return
	}
	var want Type
	switch l := x.lookup(name); {
	case l != nil && !l.mutable:
		x.em.emit(newDiag(Immutable, s.Target.L, "cannot assign to value: '%s' is a 'let' constant", name)).
			note(l.l, "change 'let' to 'var' to make it mutable")
		want = l.typ
	case l != nil:
		want = l.typ
	case x.top.vars[name] != nil:
		want = x.top.vars[name].typ
	case len(x.top.funcs[name]) > 0:
		x.em.emit(newDiag(Immutable, s.Target.L, "cannot assign to value: '%s' is a function", name))
	default:
		x.em.emit(notFound(name, s.Target.L))
	}
	x.checkExprTo(s.Expr, want, "type")
}

func (x *declChecker) checkReturn(s *parser.ReturnStmt) {
	f := x.frame
	if f.closure && f.ret == nil {
		t := Type(voidType)
		if s.Expr != nil {
			t = x.checkExpr(s.Expr, nil)
		}
		f.rets = append(f.rets, t)
		return
	}
	switch {
	case f.ret == nil:
		if s.Expr != nil {
			x.checkExpr(s.Expr, nil)
		}
	case s.Expr == nil && !eqType(f.ret, voidType):
		x.em.emit(newDiag(TypeMismatch, s.L, "non-void function should return a value"))
	case s.Expr != nil && eqType(f.ret, voidType):
		x.checkExpr(s.Expr, nil)
		x.em.emit(newDiag(TypeMismatch, s.Expr.Loc(), "unexpected non-void return value in void function"))
	case s.Expr != nil:
		x.checkExprTo(s.Expr, f.ret, "return type")
	}
}

func (x *declChecker) checkDo(s *parser.DoStmt) {
	func() {
		exit := x.tracker.EnterHandler()
		defer exit()
		saved := x.frame.performed
		x.frame.performed = NoEffects
		x.checkBlock(s.Body)
		if !x.frame.performed.Fails() {
			x.em.emit(newDiag(UselessMarker, s.Catch.L,
				"'catch' block is unreachable because no errors are thrown in 'do' block"))
		}
		x.frame.performed |= saved
	}()
	x.checkBlock(s.Catch)
}

// checkExprTo checks e and reports an error if its type does not convert to want.
// It returns the type of e.
func (x *declChecker) checkExprTo(e parser.Expr, want Type, what string) Type {
	t := x.checkExpr(e, want)
	if want != nil {
		x.convertTo(e, t, want, what)
	}
	return t
}

// convertTo reports an error if src does not convert to dst.
// The expression e is the source of the conversion.
func (x *declChecker) convertTo(e parser.Expr, src, dst Type, what string) bool {
	cvt, removed := convertType(src, dst)
	if cvt != noConvert {
		return true
	}
	if c, ok := e.(*parser.Closure); ok && x.mismatched[c] {
		return false
	}
	if removed != NoEffects {
		x.em.emit(narrowing(src, dst, removed, e.Loc()))
	} else {
		x.em.emit(typeMismatch(src, dst, what, e.Loc()))
	}
	return false
}

// checkExpr returns the type of e, or nil if it cannot be determined.
// If want is non-nil, it is the type expected by the context;
// it guides inference, but the result need not convert to it.
func (x *declChecker) checkExpr(e parser.Expr, want Type) (t Type) {
	tr := x.tr.item("expr (%v) want %s", e.Loc(), typeString(want))
	defer func() {
		tr.trace("type %s", typeString(t))
		tr.done()
	}()
	if _, ok := want.(effectsOpen); ok {
		if _, ok := e.(*parser.Closure); !ok {
			want = nil
		}
	}
	switch e := e.(type) {
	case parser.Ident:
		return x.checkIdent(e, want)
	case *parser.Call:
		return x.checkCall(e, want)
	case *parser.Closure:
		return x.checkClosure(e, want)
	case *parser.Await:
		return x.checkMarked(e.Expr, Suspends, want)
	case *parser.Try:
		if e.Opt {
			return x.checkTryOpt(e, want)
		}
		return x.checkMarked(e.Expr, Fails, want)
	case *parser.Neg:
		t := x.checkExpr(e.Expr, want)
		if t != nil && !isNumeric(t) {
			x.em.emit(newDiag(TypeMismatch, e.L, "unary operator '-' cannot be applied to an operand of type '%s'", t.String()))
			return nil
		}
		return t
	case *parser.IntLit:
		if eqType(unoptional(want), doubleType) {
			return doubleType
		}
		return intType
	case *parser.FloatLit:
		return doubleType
	case *parser.StrLit:
		return stringType
	case *parser.BoolLit:
		return boolType
	default:
		panic("impossible parser.Expr type")
	}
}

func unoptional(t Type) Type {
	if o, ok := t.(*OptType); ok {
		return o.Elem
	}
	return t
}

// checkMarked checks an expression covered by await or try.
func (x *declChecker) checkMarked(e parser.Expr, marks EffectSet, want Type) Type {
	exit := x.tracker.EnterMarker(marks)
	defer exit()
	saved := x.frame.performed
	x.frame.performed = NoEffects
	t := x.checkExpr(e, want)
	performed := x.frame.performed
	x.frame.performed |= saved

	if marks.Suspends() {
		// An await makes the enclosing closure async
		// even if nothing within it suspends.
		x.frame.need(Suspends)
		if !performed.Suspends() {
			x.em.emit(newDiag(UselessMarker, e.Loc(), "no 'async' operations occur within 'await' expression"))
		}
	}
	if marks.Fails() && !performed.Fails() {
		x.em.emit(newDiag(UselessMarker, e.Loc(), "no calls to throwing functions occur within 'try' expression"))
	}
	return t
}

func (x *declChecker) checkTryOpt(e *parser.Try, want Type) Type {
	exit := x.tracker.EnterHandler()
	defer exit()
	return optional(x.checkMarked(e.Expr, Fails, unoptional(want)))
}

func (x *declChecker) checkIdent(id parser.Ident, want Type) Type {
	if l := x.lookup(id.Name); l != nil {
		return l.typ
	}
	if g, ok := x.top.vars[id.Name]; ok {
		return g.typ
	}
	cands := x.top.funcs[id.Name]
	if len(cands) == 0 {
		if strings.HasPrefix(id.Name, "$") {
			x.em.emit(newDiag(CannotInfer, id.L, "cannot infer type of closure parameter '%s' without a contextual type", id.Name))
		} else {
			x.em.emit(notFound(id.Name, id.L))
		}
		return nil
	}
	switch want.(type) {
	case *FuncType, *OptType:
	default:
		want = nil
	}
	res := ResolveRef(cands, want)
	switch res.Outcome {
	case Selected:
		x.deprecation(res.Selected, id.L)
		return res.Selected.Func
	case Ambiguous:
		x.em.emit(ambiguity(id.Name, id.L, res.Tied))
		return nil
	default:
		if len(cands) == 1 {
			// The caller reports the failed conversion.
			return cands[0].Func
		}
		d := newDiag(NoMatch, id.L, "no '%s' candidates produce the expected contextual type '%s'", id.Name, want.String())
		d.Notes = append(d.Notes, res.Notes...)
		x.em.emit(d)
		return nil
	}
}

func (x *declChecker) checkCall(call *parser.Call, want Type) Type {
	tr := x.tr.item("call (%v)", call.L)
	defer tr.done()

	var name string
	var cands []*Candidate
	switch fun := call.Fun.(type) {
	case parser.Ident:
		name = fun.Name
		switch l := x.lookup(name); {
		case l != nil:
			cands = x.valueCandidate(name, l.typ, l.l, fun.L)
		case x.top.vars[name] != nil:
			g := x.top.vars[name]
			cands = x.valueCandidate(name, g.typ, g.l, fun.L)
		case len(x.top.funcs[name]) > 0:
			cands = x.top.funcs[name]
		default:
			x.em.emit(notFound(name, fun.L))
		}
	default:
		t := x.checkExpr(call.Fun, nil)
		cands = x.valueCandidate("", t, loc.Loc{}, call.Fun.Loc())
	}
	if len(cands) == 0 {
		for _, a := range call.Args {
			x.checkExpr(a, nil)
		}
		return nil
	}

	wants := argWants(cands, len(call.Args))
	args := make([]Type, len(call.Args))
	for i, a := range call.Args {
		args[i] = x.checkExpr(a, wants[i])
	}
	cc := x.tracker.Current()
	res := Resolve(cands, args, want, cc)
	if res.Outcome == NoMatching && want != nil {
		// The caller reports the failed result conversion.
		if r := Resolve(cands, args, nil, cc); r.Outcome != NoMatching {
			res = r
		}
	}
	switch res.Outcome {
	case Ambiguous:
		tr.trace("ambiguous: %d candidates", len(res.Tied))
		x.em.emit(ambiguity(name, call.L, res.Tied))
		return nil
	case NoMatching:
		tr.trace("no match")
		if len(cands) == 1 {
			x.explain(call, cands[0], args)
		} else {
			d := newDiag(NoMatch, call.L, "no exact matches in call to '%s'", name)
			d.Notes = append(d.Notes, res.Notes...)
			x.em.emit(d)
		}
		return nil
	}

	sel := res.Selected
	tr.trace("selected %s", sel)
	x.calls = append(x.calls, ResolvedCall{L: call.L, Candidate: sel})
	x.deprecation(sel, call.Fun.Loc())
	contributed, diags := x.tracker.CheckCall(sel.Func.Effects, call.L)
	for _, d := range diags {
		x.em.emit(d)
	}
	x.frame.need(contributed)
	x.frame.performed |= sel.Func.Effects
	return sel.Func.Ret
}

// valueCandidate returns the candidate for calling a function-typed value.
func (x *declChecker) valueCandidate(name string, t Type, decl, use loc.Loc) []*Candidate {
	switch t := t.(type) {
	case nil:
		return nil
	case *FuncType:
		return []*Candidate{{Name: name, Func: t, L: decl}}
	default:
		x.em.emit(newDiag(TypeMismatch, use, "cannot call value of non-function type '%s'", t.String()))
		return nil
	}
}

// effectsOpen is an expected function type
// that determines only parameter and result types.
// A closure checked against it infers its effects from its body alone.
type effectsOpen struct{ *FuncType }

// argWants returns the expected type of each of n arguments,
// agreed on by all candidates accepting n arguments.
func argWants(cands []*Candidate, n int) []Type {
	wants := make([]Type, n)
	for i := range wants {
		var ts []Type
		for _, c := range cands {
			if c.acceptsArity(n) {
				ts = append(ts, c.Func.Parms[i])
			}
		}
		wants[i] = commonType(ts)
	}
	return wants
}

func commonType(ts []Type) Type {
	if len(ts) == 0 {
		return nil
	}
	same := true
	for _, t := range ts[1:] {
		if !eqType(t, ts[0]) {
			same = false
			break
		}
	}
	if same {
		return ts[0]
	}
	f0, ok := ts[0].(*FuncType)
	if !ok {
		return nil
	}
	for _, t := range ts[1:] {
		if f, ok := t.(*FuncType); !ok || !sameBase(f, f0) {
			return nil
		}
	}
	return effectsOpen{f0}
}

// explain reports why the only candidate does not accept the call.
func (x *declChecker) explain(call *parser.Call, c *Candidate, args []Type) {
	n := len(c.Func.Parms)
	switch {
	case len(args) < n-c.Defaults:
		x.em.emit(newDiag(NoMatch, call.L, "missing argument for parameter #%s in call", strconv.Itoa(len(args)+1))).
			note(c.L, "'%s' declared here", c.Name)
	case len(args) > n:
		x.em.emit(newDiag(NoMatch, call.Args[n].Loc(), "extra argument in call")).
			note(c.L, "'%s' declared here", c.Name)
	default:
		for i, a := range args {
			x.convertTo(call.Args[i], a, c.Func.Parms[i], "expected argument type")
		}
	}
}

func ambiguity(name string, l loc.Loc, tied []*Candidate) *Diagnostic {
	d := newDiag(Ambiguity, l, "ambiguous use of '%s'", name)
	for _, c := range tied {
		d.note(c.L, "found candidate %s", c)
	}
	return d
}

// deprecation reports use of a candidate with an availability note.
// Uses within a deprecated declaration are not reported.
func (x *declChecker) deprecation(c *Candidate, l loc.Loc) {
	if c.Avail == nil || x.decl.Deprecated() != nil {
		return
	}
	var d *Diagnostic
	if c.Avail.Msg == "" {
		d = newDiag(Deprecated, l, "'%s' is deprecated", c.Name)
	} else {
		d = newDiag(Deprecated, l, "'%s' is deprecated: %s", c.Name, c.Avail.Msg)
	}
	d.Severity = c.Avail.Severity
	d.insert(x.decl.L, "@deprecated ")
	if c.L != (loc.Loc{}) {
		d.verboseNote(c.L, "'%s' declared here", c.Name)
	}
	x.em.emit(d)
}
