package parser

import (
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/eaburns/effck/loc"
	"github.com/eaburns/peggy/peg"
)

// A Parser parses source code files.
type Parser struct {
	Files []*File
	offs  int
}

// NewParser returns a new parser.
func NewParser() *Parser {
	return &Parser{offs: 1}
}

// NewParserOffset returns a new parser with the given location offset.
func NewParserOffset(offs int) *Parser {
	return &Parser{offs: offs}
}

// Parse parses a file from an io.Reader.
// The first argument is the file path or "" if unspecified.
//
// Locations of each parsed file follow those of the previously parsed file,
// so the Files of a Parser can be used as a loc.Files.
func (p *Parser) Parse(path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	file := &File{P: path, Length: len(data)}
	for i, r := range data {
		if r == '\n' {
			file.NLs = append(file.NLs, i)
		}
	}
	_p := &parser{text: string(data), offs: p.offs, file: file}
	if fail := _p.parseFile(); fail != nil {
		return parseError{path: path, text: _p.text, fail: fail}
	}
	p.Files = append(p.Files, file)
	p.offs += len(data)
	return nil
}

// ParseFile parses the source from a file path.
func (p *Parser) ParseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.Parse(path, f)
}

// LocFiles returns the parsed files as a loc.Files.
func (p *Parser) LocFiles() loc.Files {
	var fs loc.Files
	for _, f := range p.Files {
		fs = append(fs, f)
	}
	return fs
}

type parseError struct {
	path string
	text string
	fail *peg.Fail
}

func (err parseError) Tree() *peg.Fail { return err.fail }

func (err parseError) Error() string {
	e := peg.SimpleError(err.text, err.fail)
	e.FilePath = err.path
	return e.Error()
}

type tokKind int

const (
	tEOF tokKind = iota
	tIdent
	tInt
	tFloat
	tStr
	tPunct
)

type token struct {
	kind tokKind
	text string
	// data is the unquoted value of a string token.
	data string
	// start and end are byte offsets into the parsed text.
	start, end int
	// nl is whether a newline precedes the token.
	nl bool
}

var keywords = map[string]bool{
	"func":   true,
	"var":    true,
	"let":    true,
	"async":  true,
	"throws": true,
	"await":  true,
	"try":    true,
	"do":     true,
	"catch":  true,
	"return": true,
	"in":     true,
	"true":   true,
	"false":  true,
}

// bailout is panicked to abandon the parse.
type bailout struct{ fail *peg.Fail }

type parser struct {
	text string
	offs int
	file *File
	toks []token
	i    int
}

func (p *parser) parseFile() (fail *peg.Fail) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			fail = b.fail
		}
	}()
	p.lex()
	for p.peek().kind != tEOF {
		p.file.Decls = append(p.file.Decls, p.parseDecl())
	}
	return nil
}

func (p *parser) failAt(pos int, want string) {
	panic(bailout{fail: &peg.Fail{
		Name: "File",
		Pos:  0,
		Kids: []*peg.Fail{{Pos: pos, Want: want}},
	}})
}

func (p *parser) fail(want string) { p.failAt(p.peek().start, want) }

func (p *parser) loc(start, end int) loc.Loc {
	return loc.Loc{p.offs + start, p.offs + end}
}

func (p *parser) tokLoc(t token) loc.Loc { return p.loc(t.start, t.end) }

func (p *parser) lex() {
	pos := 0
	nl := false
	for {
		for pos < len(p.text) {
			r, w := peg.DecodeRuneInString(p.text[pos:])
			if r == '\n' {
				nl = true
			} else if !unicode.IsSpace(r) {
				break
			}
			pos += w
		}
		if strings.HasPrefix(p.text[pos:], "//") {
			end := strings.IndexByte(p.text[pos:], '\n')
			if end < 0 {
				end = len(p.text)
			} else {
				end += pos
			}
			p.file.Comments = append(p.file.Comments, Comment{
				Text: p.text[pos+2 : end],
				L:    p.loc(pos, end),
			})
			pos = end
			continue
		}
		if pos == len(p.text) {
			p.toks = append(p.toks, token{kind: tEOF, start: pos, end: pos, nl: nl})
			return
		}
		t := p.lexToken(pos)
		t.nl = nl
		nl = false
		p.toks = append(p.toks, t)
		pos = t.end
	}
}

func (p *parser) lexToken(pos int) token {
	r, w := peg.DecodeRuneInString(p.text[pos:])
	switch {
	case r == '_' || r == '$' || unicode.IsLetter(r):
		end := pos + w
		for end < len(p.text) {
			r, w := peg.DecodeRuneInString(p.text[end:])
			if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				break
			}
			end += w
		}
		return token{kind: tIdent, text: p.text[pos:end], start: pos, end: end}
	case '0' <= r && r <= '9':
		end := digits(p.text, pos)
		kind := tInt
		if end+1 < len(p.text) && p.text[end] == '.' && isDigit(p.text[end+1]) {
			kind = tFloat
			end = digits(p.text, end+1)
		}
		return token{kind: kind, text: p.text[pos:end], start: pos, end: end}
	case r == '"':
		return p.lexString(pos)
	case strings.HasPrefix(p.text[pos:], "->"):
		return token{kind: tPunct, text: "->", start: pos, end: pos + 2}
	case strings.ContainsRune("(){},:=?@-;", r):
		return token{kind: tPunct, text: string(r), start: pos, end: pos + w}
	}
	p.failAt(pos, "token")
	panic("impossible")
}

func (p *parser) lexString(pos int) token {
	var s strings.Builder
	end := pos + 1
	for {
		if end >= len(p.text) || p.text[end] == '\n' {
			p.failAt(end, `"\""`)
		}
		r, w := peg.DecodeRuneInString(p.text[end:])
		end += w
		switch r {
		case '"':
			return token{kind: tStr, text: p.text[pos:end], data: s.String(), start: pos, end: end}
		case '\\':
			if end >= len(p.text) {
				p.failAt(end, "escape")
			}
			switch p.text[end] {
			case 'n':
				s.WriteRune('\n')
			case 't':
				s.WriteRune('\t')
			case '"', '\\':
				s.WriteByte(p.text[end])
			default:
				p.failAt(end, "escape")
			}
			end++
		default:
			s.WriteRune(r)
		}
	}
}

func digits(text string, pos int) int {
	for pos < len(text) && isDigit(text[pos]) {
		pos++
	}
	return pos
}

func isDigit(b byte) bool { return '0' <= b && b <= '9' }

func (p *parser) peek() token { return p.peekN(0) }

func (p *parser) peekN(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() token {
	t := p.peek()
	if t.kind != tEOF {
		p.i++
	}
	return t
}

// is returns whether the next token is the given punctuation or keyword.
func (p *parser) is(text string) bool { return isTok(p.peek(), text) }

func isTok(t token, text string) bool {
	return (t.kind == tPunct || t.kind == tIdent) && t.text == text
}

func (p *parser) accept(text string) (token, bool) {
	if !p.is(text) {
		return token{}, false
	}
	return p.next(), true
}

func (p *parser) expect(text string) token {
	if !p.is(text) {
		p.fail(strconv.Quote(text))
	}
	return p.next()
}

func isIdent(t token) bool { return t.kind == tIdent && !keywords[t.text] }

func (p *parser) parseIdent() Ident {
	t := p.peek()
	if !isIdent(t) {
		p.fail("identifier")
	}
	p.next()
	return Ident{Name: t.text, L: p.tokLoc(t)}
}

func (p *parser) parseDecl() Decl {
	var attrs []Attr
	for p.is("@") {
		attrs = append(attrs, p.parseAttr())
	}
	switch {
	case p.is("func"):
		return p.parseFuncDecl(attrs)
	case p.is("var") && len(attrs) == 0:
		return p.parseVarDecl()
	case len(attrs) > 0:
		p.fail(`"func"`)
	default:
		p.fail(`"func" or "var"`)
	}
	panic("impossible")
}

func (p *parser) parseAttr() Attr {
	at := p.expect("@")
	attr := Attr{Name: p.parseIdent()}
	attr.L = p.tokLoc(at).Join(attr.Name.L)
	if _, ok := p.accept("("); ok {
		t := p.peek()
		if t.kind != tStr {
			p.fail("string")
		}
		p.next()
		attr.Msg = &StrLit{Data: t.data, L: p.tokLoc(t)}
		attr.L = attr.L.Join(p.tokLoc(p.expect(")")))
	}
	return attr
}

func (p *parser) parseFuncDecl(attrs []Attr) *FuncDecl {
	kw := p.expect("func")
	d := &FuncDecl{Attrs: attrs, L: p.tokLoc(kw)}
	if len(attrs) > 0 {
		d.L = attrs[0].L.Join(d.L)
	}
	d.Name = p.parseIdent()
	p.expect("(")
	for !p.is(")") {
		if len(d.Parms) > 0 {
			p.expect(",")
		}
		d.Parms = append(d.Parms, p.parseParm())
	}
	d.L = d.L.Join(p.tokLoc(p.expect(")")))
	d.Effects = p.parseEffects()
	d.L = d.L.Join(d.Effects.L)
	if _, ok := p.accept("->"); ok {
		d.Ret = p.parseType()
		d.L = d.L.Join(d.Ret.Loc())
	}
	if p.is("{") {
		d.Body = p.parseBlock()
		d.L = d.L.Join(d.Body.L)
	}
	return d
}

func (p *parser) parseParm() Parm {
	var parm Parm
	if isIdent(p.peek()) && isTok(p.peekN(1), ":") {
		id := p.parseIdent()
		parm.Name = &id
		p.next()
	}
	parm.Type = p.parseType()
	parm.L = parm.Type.Loc()
	if parm.Name != nil {
		parm.L = parm.Name.L.Join(parm.L)
	}
	if _, ok := p.accept("="); ok {
		parm.Default = p.parseExpr()
		parm.L = parm.L.Join(parm.Default.Loc())
	}
	return parm
}

func (p *parser) parseVarDecl() *VarDecl {
	kw := p.expect("var")
	d := &VarDecl{Name: p.parseIdent()}
	p.expect(":")
	d.Type = p.parseType()
	d.L = p.tokLoc(kw).Join(d.Type.Loc())
	return d
}

func (p *parser) parseEffects() Effects {
	var effs Effects
	if t, ok := p.accept("async"); ok {
		effs.Async = true
		effs.L = p.tokLoc(t)
	}
	if t, ok := p.accept("throws"); ok {
		effs.Throws = true
		effs.L = effs.L.Join(p.tokLoc(t))
	}
	return effs
}

func (p *parser) parseType() Type {
	typ := p.parsePrimaryType()
	for p.is("?") {
		q := p.next()
		typ = &OptType{Type: typ, L: typ.Loc().Join(p.tokLoc(q))}
	}
	return typ
}

func (p *parser) parsePrimaryType() Type {
	if !p.is("(") {
		id := p.parseIdent()
		return &NamedType{Name: id, L: id.L}
	}
	open := p.next()
	var parms []Type
	for !p.is(")") {
		if len(parms) > 0 {
			p.expect(",")
		}
		parms = append(parms, p.parseType())
	}
	l := p.tokLoc(open).Join(p.tokLoc(p.expect(")")))
	effs := p.parseEffects()
	if _, ok := p.accept("->"); ok {
		ret := p.parseType()
		return &FuncType{Parms: parms, Effects: effs, Ret: ret, L: l.Join(ret.Loc())}
	}
	switch {
	case effs.Async || effs.Throws || len(parms) > 1:
		p.fail(`"->"`)
	case len(parms) == 0:
		return &NamedType{Name: Ident{Name: "Void", L: l}, L: l}
	}
	return parms[0]
}

func (p *parser) parseBlock() *Block {
	return p.parseBlockTail(p.expect("{"))
}

func (p *parser) parseStmt() Stmt {
	switch t := p.peek(); {
	case isTok(t, "let") || isTok(t, "var"):
		p.next()
		s := &LetStmt{Var: t.text == "var", Name: p.parseIdent()}
		if _, ok := p.accept(":"); ok {
			s.Type = p.parseType()
		}
		p.expect("=")
		s.Expr = p.parseExpr()
		s.L = p.tokLoc(t).Join(s.Expr.Loc())
		return s
	case isTok(t, "return"):
		p.next()
		s := &ReturnStmt{L: p.tokLoc(t)}
		if n := p.peek(); !n.nl && !isTok(n, "}") && !isTok(n, ";") && n.kind != tEOF {
			s.Expr = p.parseExpr()
			s.L = s.L.Join(s.Expr.Loc())
		}
		return s
	case isTok(t, "do"):
		p.next()
		s := &DoStmt{Body: p.parseBlock()}
		p.expect("catch")
		s.Catch = p.parseBlock()
		s.L = p.tokLoc(t).Join(s.Catch.L)
		return s
	case isIdent(t) && isTok(p.peekN(1), "="):
		s := &AssignStmt{Target: p.parseIdent()}
		p.next()
		s.Expr = p.parseExpr()
		s.L = s.Target.L.Join(s.Expr.Loc())
		return s
	default:
		return &ExprStmt{Expr: p.parseExpr()}
	}
}

func (p *parser) parseExpr() Expr {
	switch t := p.peek(); {
	case isTok(t, "await"):
		p.next()
		e := p.parseExpr()
		return &Await{Expr: e, L: p.tokLoc(t).Join(e.Loc())}
	case isTok(t, "try"):
		p.next()
		_, opt := p.accept("?")
		e := p.parseExpr()
		return &Try{Opt: opt, Expr: e, L: p.tokLoc(t).Join(e.Loc())}
	case isTok(t, "-"):
		p.next()
		e := p.parseExpr()
		return &Neg{Expr: e, L: p.tokLoc(t).Join(e.Loc())}
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parsePostfix() Expr {
	e := p.parsePrimary()
	for {
		t := p.peek()
		switch {
		case isTok(t, "(") && !t.nl:
			p.next()
			call := &Call{Fun: e}
			for !p.is(")") {
				if len(call.Args) > 0 {
					p.expect(",")
				}
				call.Args = append(call.Args, p.parseExpr())
			}
			call.L = e.Loc().Join(p.tokLoc(p.expect(")")))
			e = call
		case isTok(t, "{") && !t.nl && callable(e):
			closure := p.parseClosure()
			call, ok := e.(*Call)
			if !ok || call.Trailing {
				call = &Call{Fun: e}
			}
			call.Args = append(call.Args, closure)
			call.Trailing = true
			call.L = e.Loc().Join(closure.L)
			e = call
		default:
			return e
		}
	}
}

// callable returns whether a trailing closure may follow e.
func callable(e Expr) bool {
	switch e.(type) {
	case Ident, *Call:
		return true
	}
	return false
}

func (p *parser) parsePrimary() Expr {
	t := p.peek()
	switch {
	case isTok(t, "true") || isTok(t, "false"):
		p.next()
		return &BoolLit{Value: t.text == "true", L: p.tokLoc(t)}
	case isIdent(t):
		return p.parseIdent()
	case t.kind == tInt:
		p.next()
		return &IntLit{Text: t.text, L: p.tokLoc(t)}
	case t.kind == tFloat:
		p.next()
		return &FloatLit{Text: t.text, L: p.tokLoc(t)}
	case t.kind == tStr:
		p.next()
		return &StrLit{Data: t.data, L: p.tokLoc(t)}
	case isTok(t, "{"):
		return p.parseClosure()
	case isTok(t, "("):
		p.next()
		e := p.parseExpr()
		p.expect(")")
		return e
	}
	p.fail("expression")
	panic("impossible")
}

func (p *parser) parseClosure() *Closure {
	open := p.peek()
	c := &Closure{}
	if isTok(open, "{") && isIdent(p.peekN(1)) && (isTok(p.peekN(2), ",") || isTok(p.peekN(2), "in")) {
		p.next()
		c.Parms = []Ident{}
		for {
			c.Parms = append(c.Parms, p.parseIdent())
			if _, ok := p.accept(","); !ok {
				break
			}
		}
		p.expect("in")
		c.Body = p.parseBlockTail(open)
	} else {
		c.Body = p.parseBlock()
	}
	c.L = c.Body.L
	return c
}

// parseBlockTail parses the statements and closing } of a block
// whose opening { was already consumed.
func (p *parser) parseBlockTail(open token) *Block {
	b := &Block{}
	for !p.is("}") {
		if _, ok := p.accept(";"); ok {
			continue
		}
		if p.peek().kind == tEOF {
			p.fail(`"}"`)
		}
		b.Stmts = append(b.Stmts, p.parseStmt())
	}
	b.L = p.tokLoc(open).Join(p.tokLoc(p.expect("}")))
	return b
}
