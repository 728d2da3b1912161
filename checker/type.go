package checker

import (
	"strings"

	"github.com/eaburns/effck/parser"
)

type Type interface {
	// String returns the type as written in source.
	String() string
	buildString(*strings.Builder) *strings.Builder
}

// BasicType is a built-in named type.
type BasicType struct {
	Name string
}

// OptType is an optional type: either a value of Elem or nil.
type OptType struct {
	Elem Type
}

// FuncType is a function signature.
type FuncType struct {
	Parms   []Type
	Ret     Type
	Effects EffectSet
}

var (
	intType    = &BasicType{Name: "Int"}
	doubleType = &BasicType{Name: "Double"}
	stringType = &BasicType{Name: "String"}
	boolType   = &BasicType{Name: "Bool"}
	voidType   = &BasicType{Name: "Void"}

	basicTypes = map[string]*BasicType{
		intType.Name:    intType,
		doubleType.Name: doubleType,
		stringType.Name: stringType,
		boolType.Name:   boolType,
		voidType.Name:   voidType,
	}
)

func (t *BasicType) String() string { return t.buildString(new(strings.Builder)).String() }
func (t *OptType) String() string   { return t.buildString(new(strings.Builder)).String() }
func (t *FuncType) String() string  { return t.buildString(new(strings.Builder)).String() }

func (t *BasicType) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(t.Name)
	return s
}

func (t *OptType) buildString(s *strings.Builder) *strings.Builder {
	if _, ok := t.Elem.(*FuncType); ok {
		s.WriteString("(")
		t.Elem.buildString(s)
		s.WriteString(")")
	} else {
		t.Elem.buildString(s)
	}
	s.WriteString("?")
	return s
}

func (t *FuncType) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("(")
	for i, p := range t.Parms {
		if i > 0 {
			s.WriteString(", ")
		}
		buildTypeString(p, s)
	}
	s.WriteString(")")
	if t.Effects != NoEffects {
		s.WriteString(" ")
		s.WriteString(t.Effects.String())
	}
	s.WriteString(" -> ")
	buildTypeString(t.Ret, s)
	return s
}

// buildTypeString writes _ for an unknown type.
func buildTypeString(t Type, s *strings.Builder) {
	if t == nil {
		s.WriteString("_")
		return
	}
	t.buildString(s)
}

// eqType returns whether the types are identical, including effects.
func eqType(a, b Type) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case *BasicType:
		b, ok := b.(*BasicType)
		return ok && a.Name == b.Name
	case *OptType:
		b, ok := b.(*OptType)
		return ok && eqType(a.Elem, b.Elem)
	case *FuncType:
		b, ok := b.(*FuncType)
		return ok && a.Effects == b.Effects && sameBase(a, b)
	default:
		return false
	}
}

// sameBase returns whether the function types are identical
// except possibly for their own effects.
// Effects of function-typed parameters and results must still be identical.
func sameBase(a, b *FuncType) bool {
	if len(a.Parms) != len(b.Parms) || !eqType(a.Ret, b.Ret) {
		return false
	}
	for i := range a.Parms {
		if !eqType(a.Parms[i], b.Parms[i]) {
			return false
		}
	}
	return true
}

func isNumeric(t Type) bool {
	return eqType(t, intType) || eqType(t, doubleType)
}

// optional returns t? unless t is already optional.
func optional(t Type) Type {
	if t == nil {
		return nil
	}
	if _, ok := t.(*OptType); ok {
		return t
	}
	return &OptType{Elem: t}
}

// makeType returns the checker type of a parsed type
// or nil with diagnostics if it names an unknown type.
func makeType(em *emitter, parserType parser.Type) Type {
	switch parserType := parserType.(type) {
	case nil:
		return nil
	case *parser.NamedType:
		t, ok := basicTypes[parserType.Name.Name]
		if !ok {
			em.emit(newDiag(NotFound, parserType.L, "cannot find type '%s' in scope", parserType.Name.Name))
			return nil
		}
		return t
	case *parser.OptType:
		elem := makeType(em, parserType.Type)
		if elem == nil {
			return nil
		}
		return &OptType{Elem: elem}
	case *parser.FuncType:
		fun := &FuncType{
			Parms:   make([]Type, len(parserType.Parms)),
			Effects: makeEffects(parserType.Effects),
		}
		ok := true
		for i, p := range parserType.Parms {
			if fun.Parms[i] = makeType(em, p); fun.Parms[i] == nil {
				ok = false
			}
		}
		if fun.Ret = makeType(em, parserType.Ret); fun.Ret == nil || !ok {
			return nil
		}
		return fun
	default:
		panic("impossible parser.Type type")
	}
}

func makeEffects(effs parser.Effects) EffectSet {
	var e EffectSet
	if effs.Async {
		e |= Suspends
	}
	if effs.Throws {
		e |= Fails
	}
	return e
}
