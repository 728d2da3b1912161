package checker

import (
	"fmt"

	"github.com/eaburns/effck/loc"
)

// Availability is an advisory note attached to a Candidate,
// reported when the candidate is selected.
// It is never consulted when ranking candidates.
type Availability struct {
	Msg      string
	Severity Severity
}

// A Candidate is one member of an overload set.
type Candidate struct {
	Name string
	Func *FuncType
	// Defaults is the number of trailing parameters with default values.
	Defaults int
	// Avail is nil if the candidate has no availability note.
	Avail *Availability
	// L is the location of the declaration,
	// or the zero Loc for built-in declarations.
	L loc.Loc
}

func (c *Candidate) String() string { return c.Name + c.Func.String() }

func (c *Candidate) acceptsArity(n int) bool {
	return n <= len(c.Func.Parms) && n >= len(c.Func.Parms)-c.Defaults
}

// Outcome is the kind of result of overload resolution.
type Outcome int

const (
	// Selected is a resolution that picked exactly one candidate.
	Selected Outcome = iota
	// Ambiguous is a resolution with multiple tied candidates.
	Ambiguous
	// NoMatching is a resolution where no candidate applies.
	NoMatching
)

func (o Outcome) String() string {
	switch o {
	case Selected:
		return "selected"
	case Ambiguous:
		return "ambiguous"
	case NoMatching:
		return "no match"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// A Resolution is the result of overload resolution.
type Resolution struct {
	Outcome Outcome
	// Selected is the selected candidate if Outcome is Selected.
	Selected *Candidate
	// Tied are the tied candidates if Outcome is Ambiguous.
	Tied []*Candidate
	// Notes explain why candidates were filtered.
	Notes []Note
}

type viable struct {
	cand *Candidate
	// widened is the number of arguments converted by widening effects.
	widened int
}

// Resolve picks the candidate for a call with the given argument types.
// A nil argument type is unknown and converts to any parameter type.
// If want is non-nil, the candidate result must convert to it.
//
// Candidates are filtered by arity, argument convertibility,
// and result convertibility.
// The survivors are ranked, keeping at each step only the best:
// first, for each of await and try marking the call,
// those with the marked capability;
// then, those widening the fewest arguments;
// and finally, those with no other survivor's effects strictly below theirs.
//
// Resolve is a pure function of its arguments.
func Resolve(cands []*Candidate, args []Type, want Type, cc CallContext) Resolution {
	var res Resolution
	var vs []viable
	for _, c := range cands {
		v, ok := filter(c, args, want, &res)
		if ok {
			vs = append(vs, v)
		}
	}
	if len(vs) == 0 {
		res.Outcome = NoMatching
		return res
	}
	for _, e := range []EffectSet{Suspends, Fails} {
		if e.Leq(cc.Marked()) {
			vs = keepWith(vs, e)
		}
	}
	vs = keepFewestWidened(vs)
	vs = keepMinimalEffects(vs)
	return decide(res, vs)
}

func filter(c *Candidate, args []Type, want Type, res *Resolution) (viable, bool) {
	v := viable{cand: c}
	if !c.acceptsArity(len(args)) {
		res.Notes = append(res.Notes, Note{
			L:   c.L,
			Msg: fmt.Sprintf("%s: expected %s, got %d", c, arityString(c), len(args)),
		})
		return v, false
	}
	for i, a := range args {
		p := c.Func.Parms[i]
		switch cvt, removed := convertType(a, p); {
		case cvt == noConvert && removed != NoEffects:
			res.Notes = append(res.Notes, Note{
				L: c.L,
				Msg: fmt.Sprintf("%s: argument %d of type %s cannot be used as %s; it is %s",
					c, i, typeString(a), p, removed),
			})
			return v, false
		case cvt == noConvert:
			res.Notes = append(res.Notes, Note{
				L:   c.L,
				Msg: fmt.Sprintf("%s: argument %d of type %s does not convert to %s", c, i, typeString(a), p),
			})
			return v, false
		case cvt == widen:
			v.widened++
		}
	}
	if want != nil {
		if cvt, _ := convertType(c.Func.Ret, want); cvt == noConvert {
			res.Notes = append(res.Notes, Note{
				L:   c.L,
				Msg: fmt.Sprintf("%s: result type %s does not convert to %s", c, c.Func.Ret, want),
			})
			return v, false
		}
	}
	return v, true
}

func arityString(c *Candidate) string {
	n := len(c.Func.Parms)
	switch {
	case c.Defaults > 0:
		return fmt.Sprintf("%d to %d arguments", n-c.Defaults, n)
	case n == 1:
		return "1 argument"
	default:
		return fmt.Sprintf("%d arguments", n)
	}
}

func typeString(t Type) string {
	if t == nil {
		return "_"
	}
	return t.String()
}

// keepWith returns the viables whose effects include e,
// or all of them if there are none.
func keepWith(vs []viable, e EffectSet) []viable {
	var with []viable
	for _, v := range vs {
		if e.Leq(v.cand.Func.Effects) {
			with = append(with, v)
		}
	}
	if len(with) == 0 {
		return vs
	}
	return with
}

func keepFewestWidened(vs []viable) []viable {
	min := vs[0].widened
	for _, v := range vs[1:] {
		if v.widened < min {
			min = v.widened
		}
	}
	var fewest []viable
	for _, v := range vs {
		if v.widened == min {
			fewest = append(fewest, v)
		}
	}
	return fewest
}

// keepMinimalEffects returns the viables whose effects
// are not a strict superset of those of another viable.
// Viables with incomparable effects remain tied.
func keepMinimalEffects(vs []viable) []viable {
	var minimal []viable
	for _, v := range vs {
		e := v.cand.Func.Effects
		dominated := false
		for _, w := range vs {
			f := w.cand.Func.Effects
			if f != e && f.Leq(e) {
				dominated = true
				break
			}
		}
		if !dominated {
			minimal = append(minimal, v)
		}
	}
	return minimal
}

func decide(res Resolution, vs []viable) Resolution {
	if len(vs) == 1 {
		res.Outcome = Selected
		res.Selected = vs[0].cand
		return res
	}
	res.Outcome = Ambiguous
	for _, v := range vs {
		res.Tied = append(res.Tied, v.cand)
	}
	return res
}

// ResolveRef picks the candidate for a function name used as a value.
// If want is non-nil, the candidate type must convert to it,
// and candidates of exactly the wanted type are preferred.
// Remaining ties are broken by fewest effects, as with Resolve.
func ResolveRef(cands []*Candidate, want Type) Resolution {
	var res Resolution
	var vs []viable
	for _, c := range cands {
		v := viable{cand: c}
		if want != nil {
			switch cvt, removed := convertType(c.Func, want); {
			case cvt == noConvert && removed != NoEffects:
				res.Notes = append(res.Notes, Note{
					L:   c.L,
					Msg: fmt.Sprintf("%s: cannot be used as %s; it is %s", c, want, removed),
				})
				continue
			case cvt == noConvert:
				res.Notes = append(res.Notes, Note{
					L:   c.L,
					Msg: fmt.Sprintf("%s: does not convert to %s", c, want),
				})
				continue
			case cvt == widen:
				v.widened++
			}
		}
		vs = append(vs, v)
	}
	if len(vs) == 0 {
		res.Outcome = NoMatching
		return res
	}
	vs = keepFewestWidened(vs)
	vs = keepMinimalEffects(vs)
	return decide(res, vs)
}
