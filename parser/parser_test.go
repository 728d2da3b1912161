package parser

import (
	"strings"
	"testing"

	"github.com/eaburns/effck/loc"
	"github.com/google/go-cmp/cmp"
)

func parse(t *testing.T, src string) *File {
	t.Helper()
	p := NewParser()
	if err := p.Parse("test.eff", strings.NewReader(src)); err != nil {
		t.Log(src)
		t.Fatalf("failed to parse: %s", err.Error())
	}
	return p.Files[0]
}

func TestExpr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		expr string
		want Expr
	}{
		{"a", Ident{Name: "a"}},
		{"_a123", Ident{Name: "_a123"}},
		{"$0", Ident{Name: "$0"}},
		{"α", Ident{Name: "α"}},
		{"try_it", Ident{Name: "try_it"}}, // reserved word prefix

		{"0", &IntLit{Text: "0"}},
		{"123456", &IntLit{Text: "123456"}},
		{"3.14159", &FloatLit{Text: "3.14159"}},
		{`"abc\"\t\nxyz"`, &StrLit{Data: "abc\"\t\nxyz"}},
		{"true", &BoolLit{Value: true}},
		{"false", &BoolLit{Value: false}},
		{"-x", &Neg{Expr: Ident{Name: "x"}}},
		{"(x)", Ident{Name: "x"}},

		{"f()", &Call{Fun: Ident{Name: "f"}}},
		{
			"f(a, 1)",
			&Call{Fun: Ident{Name: "f"}, Args: []Expr{Ident{Name: "a"}, &IntLit{Text: "1"}}},
		},
		{
			"f()()",
			&Call{Fun: &Call{Fun: Ident{Name: "f"}}},
		},
		{
			"await f()",
			&Await{Expr: &Call{Fun: Ident{Name: "f"}}},
		},
		{
			"try f()",
			&Try{Expr: &Call{Fun: Ident{Name: "f"}}},
		},
		{
			"try? f()",
			&Try{Opt: true, Expr: &Call{Fun: Ident{Name: "f"}}},
		},
		{
			"try await f()",
			&Try{Expr: &Await{Expr: &Call{Fun: Ident{Name: "f"}}}},
		},
		{
			"{ f() }",
			&Closure{Body: &Block{Stmts: []Stmt{
				&ExprStmt{Expr: &Call{Fun: Ident{Name: "f"}}},
			}}},
		},
		{
			"{ x, y in x }",
			&Closure{
				Parms: []Ident{{Name: "x"}, {Name: "y"}},
				Body:  &Block{Stmts: []Stmt{&ExprStmt{Expr: Ident{Name: "x"}}}},
			},
		},
		{
			"{ x in }",
			&Closure{Parms: []Ident{{Name: "x"}}, Body: &Block{}},
		},
		{
			"f { -$0 }",
			&Call{
				Fun: Ident{Name: "f"},
				Args: []Expr{&Closure{Body: &Block{Stmts: []Stmt{
					&ExprStmt{Expr: &Neg{Expr: Ident{Name: "$0"}}},
				}}}},
				Trailing: true,
			},
		},
		{
			"f(1) { }",
			&Call{
				Fun:      Ident{Name: "f"},
				Args:     []Expr{&IntLit{Text: "1"}, &Closure{Body: &Block{}}},
				Trailing: true,
			},
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.expr, func(t *testing.T) {
			t.Parallel()
			src := "func main() {\n" + test.expr + "\n}"
			f := parse(t, src)
			got := f.Decls[0].(*FuncDecl).Body.Stmts[0].(*ExprStmt).Expr
			opts := []cmp.Option{
				cmp.FilterPath(isLoc, cmp.Ignore()),
			}
			if diff := cmp.Diff(test.want, got, opts...); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestStmt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		stmt string
		want []Stmt
	}{
		{
			"let x = 1",
			[]Stmt{&LetStmt{Name: Ident{Name: "x"}, Expr: &IntLit{Text: "1"}}},
		},
		{
			"var x: Int = 1",
			[]Stmt{&LetStmt{
				Var:  true,
				Name: Ident{Name: "x"},
				Type: &NamedType{Name: Ident{Name: "Int"}},
				Expr: &IntLit{Text: "1"},
			}},
		},
		{
			"_ = f()",
			[]Stmt{&AssignStmt{Target: Ident{Name: "_"}, Expr: &Call{Fun: Ident{Name: "f"}}}},
		},
		{
			"return",
			[]Stmt{&ReturnStmt{}},
		},
		{
			"return 5",
			[]Stmt{&ReturnStmt{Expr: &IntLit{Text: "5"}}},
		},
		{
			// A newline ends a return statement.
			"return\nf()",
			[]Stmt{&ReturnStmt{}, &ExprStmt{Expr: &Call{Fun: Ident{Name: "f"}}}},
		},
		{
			// A call must start on the callee's line.
			"f\n(x)",
			[]Stmt{&ExprStmt{Expr: Ident{Name: "f"}}, &ExprStmt{Expr: Ident{Name: "x"}}},
		},
		{
			"f(); g()",
			[]Stmt{
				&ExprStmt{Expr: &Call{Fun: Ident{Name: "f"}}},
				&ExprStmt{Expr: &Call{Fun: Ident{Name: "g"}}},
			},
		},
		{
			"do { try f() } catch { }",
			[]Stmt{&DoStmt{
				Body: &Block{Stmts: []Stmt{
					&ExprStmt{Expr: &Try{Expr: &Call{Fun: Ident{Name: "f"}}}},
				}},
				Catch: &Block{},
			}},
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.stmt, func(t *testing.T) {
			t.Parallel()
			f := parse(t, "func main() {\n"+test.stmt+"\n}")
			got := f.Decls[0].(*FuncDecl).Body.Stmts
			opts := []cmp.Option{
				cmp.FilterPath(isLoc, cmp.Ignore()),
			}
			if diff := cmp.Diff(test.want, got, opts...); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		want string
	}{
		{"Int", "Int"},
		{"()", "Void"},
		{"(Int)", "Int"},
		{"String?", "String?"},
		{"String??", "String??"},
		{"() -> Void", "() -> Void"},
		{"() -> ()", "() -> Void"},
		{"(Int, String) async -> Int", "(Int, String) async -> Int"},
		{"() throws -> Void", "() throws -> Void"},
		{"() async throws -> Void", "() async throws -> Void"},
		{"(() -> Int)?", "(() -> Int)?"},
		{"() -> String?", "() -> String?"},
		{"((Int) async -> Int) -> Int", "((Int) async -> Int) -> Int"},
	}
	for _, test := range tests {
		test := test
		t.Run(test.src, func(t *testing.T) {
			t.Parallel()
			f := parse(t, "var x: "+test.src)
			got := f.Decls[0].(*VarDecl).Type.String()
			if got != test.want {
				t.Errorf("got %s, want %s", got, test.want)
			}
		})
	}
}

func TestFuncDecl(t *testing.T) {
	t.Parallel()
	const src = `
		@deprecated("synchronous is no fun")
		func overloadedSame(Int = 0) -> String
		func overloadedSame() async -> String
		func takes(f: () async -> String) -> Int { }
	`
	f := parse(t, src)
	want := []Decl{
		&FuncDecl{
			Attrs: []Attr{{
				Name: Ident{Name: "deprecated"},
				Msg:  &StrLit{Data: "synchronous is no fun"},
			}},
			Name: Ident{Name: "overloadedSame"},
			Parms: []Parm{{
				Type:    &NamedType{Name: Ident{Name: "Int"}},
				Default: &IntLit{Text: "0"},
			}},
			Ret: &NamedType{Name: Ident{Name: "String"}},
		},
		&FuncDecl{
			Name:    Ident{Name: "overloadedSame"},
			Effects: Effects{Async: true},
			Ret:     &NamedType{Name: Ident{Name: "String"}},
		},
		&FuncDecl{
			Name: Ident{Name: "takes"},
			Parms: []Parm{{
				Name: &Ident{Name: "f"},
				Type: &FuncType{
					Effects: Effects{Async: true},
					Ret:     &NamedType{Name: Ident{Name: "String"}},
				},
			}},
			Ret:  &NamedType{Name: Ident{Name: "Int"}},
			Body: &Block{},
		},
	}
	opts := []cmp.Option{
		cmp.FilterPath(isLoc, cmp.Ignore()),
	}
	if diff := cmp.Diff(want, f.Decls, opts...); diff != "" {
		t.Error(diff)
	}
	if f.Decls[0].(*FuncDecl).Deprecated() == nil {
		t.Error("first declaration is not deprecated")
	}
	if f.Decls[1].(*FuncDecl).Deprecated() != nil {
		t.Error("second declaration is deprecated")
	}
}

func TestLocs(t *testing.T) {
	t.Parallel()
	const src = "func f() {\n\tlet x = await g(1)\n}"
	p := NewParser()
	if err := p.Parse("test.eff", strings.NewReader(src)); err != nil {
		t.Fatalf("failed to parse: %s", err)
	}
	files := p.LocFiles()
	let := p.Files[0].Decls[0].(*FuncDecl).Body.Stmts[0].(*LetStmt)
	tests := []struct {
		l    loc.Loc
		want string
	}{
		{let.L, "test.eff:2.2-2.20"},
		{let.Name.L, "test.eff:2.6-2.7"},
		{let.Expr.Loc(), "test.eff:2.10-2.20"},
		{let.Expr.(*Await).Expr.Loc(), "test.eff:2.16-2.20"},
		{let.Expr.(*Await).Expr.Loc().Start(), "test.eff:2.16"},
	}
	for _, test := range tests {
		if got := files.Location(test.l).String(); got != test.want {
			t.Errorf("got %s, want %s", got, test.want)
		}
	}
}

func TestMultipleFilesOffsets(t *testing.T) {
	t.Parallel()
	p := NewParser()
	if err := p.Parse("a.eff", strings.NewReader("func a()\n")); err != nil {
		t.Fatalf("failed to parse: %s", err)
	}
	if err := p.Parse("b.eff", strings.NewReader("func b()")); err != nil {
		t.Fatalf("failed to parse: %s", err)
	}
	b := p.Files[1].Decls[0].(*FuncDecl)
	if got := p.LocFiles().Location(b.Name.L).String(); got != "b.eff:1.6-1.7" {
		t.Errorf("got %s, want b.eff:1.6-1.7", got)
	}
}

func TestComments(t *testing.T) {
	t.Parallel()
	f := parse(t, "// one\nfunc f() // two\n")
	var got []string
	for _, c := range f.Comments {
		got = append(got, c.Text)
	}
	if diff := cmp.Diff([]string{" one", " two"}, got); diff != "" {
		t.Error(diff)
	}
}

func TestParseError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src string
		pos int
	}{
		{src: "func", pos: 4},
		{src: "func f(", pos: 7},
		{src: "@deprecated var x: Int", pos: 12},
		{src: "var x: (Int, Int)", pos: 17},
		{src: "func f() { let }", pos: 15},
		{src: `func f() { "abc }`, pos: 17},
		{src: "func f() { # }", pos: 11},
		{src: "let x = 1", pos: 0},
	}
	for _, test := range tests {
		p := NewParser()
		err := p.Parse("test.eff", strings.NewReader(test.src))
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", test.src)
			continue
		}
		perr, ok := err.(parseError)
		if !ok {
			t.Errorf("Parse(%q) error is %T, want parseError", test.src, err)
			continue
		}
		if got := perr.Tree().Kids[0].Pos; got != test.pos {
			t.Errorf("Parse(%q) failed at %d, want %d", test.src, got, test.pos)
		}
		if err.Error() == "" {
			t.Errorf("Parse(%q) has an empty error message", test.src)
		}
	}
}

func isLoc(path cmp.Path) bool {
	for _, s := range path {
		if s.String() == ".L" {
			return true
		}
	}
	return false
}
