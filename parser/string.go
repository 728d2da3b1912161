package parser

import (
	"strings"
)

func (x *NamedType) String() string { return x.buildString(new(strings.Builder)).String() }
func (x *OptType) String() string   { return x.buildString(new(strings.Builder)).String() }
func (x *FuncType) String() string  { return x.buildString(new(strings.Builder)).String() }
func (x Effects) String() string    { return x.buildString(new(strings.Builder)).String() }

func (x *NamedType) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(x.Name.Name)
	return s
}

func (x *OptType) buildString(s *strings.Builder) *strings.Builder {
	if _, ok := x.Type.(*FuncType); ok {
		s.WriteString("(")
		x.Type.buildString(s)
		s.WriteString(")")
	} else {
		x.Type.buildString(s)
	}
	s.WriteString("?")
	return s
}

func (x *FuncType) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("(")
	for i, p := range x.Parms {
		if i > 0 {
			s.WriteString(", ")
		}
		p.buildString(s)
	}
	s.WriteString(")")
	if x.Effects.Async || x.Effects.Throws {
		s.WriteString(" ")
		x.Effects.buildString(s)
	}
	s.WriteString(" -> ")
	x.Ret.buildString(s)
	return s
}

func (x Effects) buildString(s *strings.Builder) *strings.Builder {
	switch {
	case x.Async && x.Throws:
		s.WriteString("async throws")
	case x.Async:
		s.WriteString("async")
	case x.Throws:
		s.WriteString("throws")
	}
	return s
}
