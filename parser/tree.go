package parser

import (
	"strings"

	"github.com/eaburns/effck/loc"
)

type File struct {
	Decls []Decl
	// All comments sorted by their start location.
	Comments []Comment

	P      string
	NLs    []int
	Length int
}

func (f *File) Path() string    { return f.P }
func (f *File) NewLines() []int { return f.NLs }
func (f *File) Len() int        { return f.Length }

type Comment struct {
	// Text is the comment text, excluding the leading //.
	Text string
	L    loc.Loc
}

type Decl interface {
	Loc() loc.Loc
}

type FuncDecl struct {
	Attrs   []Attr
	Name    Ident
	Parms   []Parm
	Effects Effects
	Ret     Type   // nil if no return
	Body    *Block // nil for a declaration without a body
	L       loc.Loc
}

func (d *FuncDecl) Loc() loc.Loc { return d.L }

// Deprecated returns the deprecated attribute of the declaration,
// or nil if it is not deprecated.
func (d *FuncDecl) Deprecated() *Attr {
	for i := range d.Attrs {
		if d.Attrs[i].Name.Name == "deprecated" {
			return &d.Attrs[i]
		}
	}
	return nil
}

// An Attr is a declaration attribute: @name or @name("message").
type Attr struct {
	Name Ident
	Msg  *StrLit // nil if unspecified
	L    loc.Loc
}

type Parm struct {
	Name    *Ident // nil if unnamed
	Type    Type
	Default Expr // nil if no default value
	L       loc.Loc
}

// VarDecl is a global variable declaration.
type VarDecl struct {
	Name Ident
	Type Type
	L    loc.Loc
}

func (d *VarDecl) Loc() loc.Loc { return d.L }

// Effects are the effect keywords of a function or function type.
// L is the zero Loc if neither keyword is present.
type Effects struct {
	Async  bool
	Throws bool
	L      loc.Loc
}

type Type interface {
	// String returns a string representation suitable for debugging.
	String() string
	buildString(*strings.Builder) *strings.Builder
	Loc() loc.Loc
}

// NamedType is a type name.
// The empty tuple type () is a NamedType named Void.
type NamedType struct {
	Name Ident
	L    loc.Loc
}

func (t *NamedType) Loc() loc.Loc { return t.L }

type OptType struct {
	Type Type
	L    loc.Loc
}

func (t *OptType) Loc() loc.Loc { return t.L }

type FuncType struct {
	Parms   []Type
	Effects Effects
	Ret     Type
	L       loc.Loc
}

func (t *FuncType) Loc() loc.Loc { return t.L }

type Block struct {
	Stmts []Stmt
	L     loc.Loc
}

func (b *Block) Loc() loc.Loc { return b.L }

type Stmt interface {
	Loc() loc.Loc
}

// LetStmt is a let or var local definition.
type LetStmt struct {
	Var  bool
	Name Ident // Name.Name is _ for a discarded value
	Type Type  // nil if unspecified
	Expr Expr
	L    loc.Loc
}

func (s *LetStmt) Loc() loc.Loc { return s.L }

type AssignStmt struct {
	Target Ident // Target.Name is _ for a discarded value
	Expr   Expr
	L      loc.Loc
}

func (s *AssignStmt) Loc() loc.Loc { return s.L }

type ReturnStmt struct {
	Expr Expr // nil if unspecified
	L    loc.Loc
}

func (s *ReturnStmt) Loc() loc.Loc { return s.L }

// DoStmt is a do block with a catch block handling errors thrown by the do block.
type DoStmt struct {
	Body  *Block
	Catch *Block
	L     loc.Loc
}

func (s *DoStmt) Loc() loc.Loc { return s.L }

type ExprStmt struct {
	Expr Expr
}

func (s *ExprStmt) Loc() loc.Loc { return s.Expr.Loc() }

type Expr interface {
	Loc() loc.Loc
}

type Ident struct {
	Name string
	L    loc.Loc
}

func (id Ident) Loc() loc.Loc { return id.L }

type Call struct {
	Fun  Expr
	Args []Expr
	// Trailing is whether the last argument is a trailing closure.
	Trailing bool
	L        loc.Loc
}

func (c *Call) Loc() loc.Loc { return c.L }

// Closure is a closure literal.
// Parms is nil for a closure without a parameter list;
// such a closure may refer to its parameters as $0, $1, and so on.
type Closure struct {
	Parms []Ident
	Body  *Block
	L     loc.Loc
}

func (c *Closure) Loc() loc.Loc { return c.L }

// Await marks the expression as possibly suspending.
type Await struct {
	Expr Expr
	L    loc.Loc
}

func (a *Await) Loc() loc.Loc { return a.L }

// Try marks the expression as possibly failing.
// If Opt is set, it is try? which handles the failure by returning nil.
type Try struct {
	Opt  bool
	Expr Expr
	L    loc.Loc
}

func (t *Try) Loc() loc.Loc { return t.L }

type Neg struct {
	Expr Expr
	L    loc.Loc
}

func (n *Neg) Loc() loc.Loc { return n.L }

type IntLit struct {
	Text string
	L    loc.Loc
}

func (l *IntLit) Loc() loc.Loc { return l.L }

type FloatLit struct {
	Text string
	L    loc.Loc
}

func (l *FloatLit) Loc() loc.Loc { return l.L }

type StrLit struct {
	Data string
	L    loc.Loc
}

func (l *StrLit) Loc() loc.Loc { return l.L }

type BoolLit struct {
	Value bool
	L     loc.Loc
}

func (l *BoolLit) Loc() loc.Loc { return l.L }
