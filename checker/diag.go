package checker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eaburns/effck/loc"
)

// Kind is the kind of a Diagnostic.
type Kind int

const (
	// EffectNarrowing is a conversion that drops an effect capability.
	EffectNarrowing Kind = iota
	// UnmarkedSuspendingCall is a call to an async function without await.
	UnmarkedSuspendingCall
	// ClosureEffectMismatch is a closure whose body needs
	// more capabilities than its expected type allows.
	ClosureEffectMismatch
	// Ambiguity is a call or reference with multiple tied candidates.
	Ambiguity
	// NoMatch is a call or reference with no applicable candidate.
	NoMatch
	// Deprecated is the use of a deprecated candidate.
	Deprecated
	// UnmarkedFailingCall is a call to a throwing function without try.
	UnmarkedFailingCall
	// UnsupportedEffect is an effect in a body that does not allow it.
	UnsupportedEffect
	// UselessMarker is an await or try that covers no such call.
	UselessMarker
	// TypeMismatch is a conversion between unrelated base types.
	TypeMismatch
	// NotFound is an undefined name.
	NotFound
	// Redeclared is a declaration with the same signature as a previous one.
	Redeclared
	// Immutable is an assignment to a constant.
	Immutable
	// CannotInfer is a type that cannot be inferred from context.
	CannotInfer
)

var kindNames = [...]string{
	EffectNarrowing:        "EffectNarrowing",
	UnmarkedSuspendingCall: "UnmarkedSuspendingCall",
	ClosureEffectMismatch:  "ClosureEffectMismatch",
	Ambiguity:              "Ambiguity",
	NoMatch:                "NoMatch",
	Deprecated:             "Deprecated",
	UnmarkedFailingCall:    "UnmarkedFailingCall",
	UnsupportedEffect:      "UnsupportedEffect",
	UselessMarker:          "UselessMarker",
	TypeMismatch:           "TypeMismatch",
	NotFound:               "NotFound",
	Redeclared:             "Redeclared",
	Immutable:              "Immutable",
	CannotInfer:            "CannotInfer",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Severity returns the default severity of diagnostics of this kind.
func (k Kind) Severity() Severity {
	switch k {
	case Deprecated, UselessMarker:
		return Warning
	default:
		return Error
	}
}

type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// A Diagnostic is a structured finding of the checker.
// It is an error, even if its Severity is Warning.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	L        loc.Loc
	Msg      string
	// Args are the message template parameters,
	// such as the names of the offending types.
	Args  []string
	Notes []Note
	// Edit is a suggested fix or nil.
	Edit *Edit
}

// A Note is additional information attached to a Diagnostic.
type Note struct {
	Msg string
	L   loc.Loc // zero if the note has no location
	// Verbose is whether this note should be displayed
	// only in verbose mode.
	Verbose bool
}

// An Edit is the insertion of Text at the point At.
type Edit struct {
	At   loc.Loc
	Text string
}

func newDiag(kind Kind, l loc.Loc, f string, args ...string) *Diagnostic {
	if l == (loc.Loc{}) {
		panic("impossible no location")
	}
	vs := make([]interface{}, len(args))
	for i, a := range args {
		vs[i] = a
	}
	return &Diagnostic{
		Kind:     kind,
		Severity: kind.Severity(),
		L:        l,
		Msg:      fmt.Sprintf(f, vs...),
		Args:     args,
	}
}

func (d *Diagnostic) Error() string { return d.Msg }
func (d *Diagnostic) Loc() loc.Loc  { return d.L }

func (d *Diagnostic) note(l loc.Loc, f string, vs ...interface{}) *Diagnostic {
	d.Notes = append(d.Notes, Note{Msg: fmt.Sprintf(f, vs...), L: l})
	return d
}

func (d *Diagnostic) verboseNote(l loc.Loc, f string, vs ...interface{}) *Diagnostic {
	d.note(l, f, vs...)
	d.Notes[len(d.Notes)-1].Verbose = true
	return d
}

func (d *Diagnostic) insert(at loc.Loc, text string) *Diagnostic {
	d.Edit = &Edit{At: at.Start(), Text: text}
	return d
}

// FormatOptions control Diagnostic.Format.
type FormatOptions struct {
	// TrimPathPrefix is removed from the start of file paths.
	TrimPathPrefix string
	// Verbose is whether to include verbose notes.
	Verbose bool
}

// Format returns the diagnostic with its notes and suggested edit,
// with locations resolved against files.
func (d *Diagnostic) Format(files loc.Files, opts FormatOptions) string {
	var s strings.Builder
	location := func(l loc.Loc) string {
		lo := files.Location(l)
		lo.Path = strings.TrimPrefix(lo.Path, opts.TrimPathPrefix)
		return lo.String()
	}
	s.WriteString(location(d.L))
	s.WriteString(": ")
	if d.Severity == Warning {
		s.WriteString("warning: ")
	}
	s.WriteString(d.Msg)
	for _, n := range d.Notes {
		if n.Verbose && !opts.Verbose {
			continue
		}
		s.WriteString("\n\t")
		s.WriteString(n.Msg)
		if n.L != (loc.Loc{}) {
			s.WriteString(" (")
			s.WriteString(location(n.L))
			s.WriteString(")")
		}
	}
	if d.Edit != nil {
		fmt.Fprintf(&s, "\n\tfix: insert %q at %s", d.Edit.Text, location(d.Edit.At))
	}
	return s.String()
}

// emitter collects the diagnostics of a single traversal.
type emitter struct {
	diags []*Diagnostic
}

func (em *emitter) emit(d *Diagnostic) *Diagnostic {
	em.diags = append(em.diags, d)
	return d
}

func notFound(name string, l loc.Loc) *Diagnostic {
	return newDiag(NotFound, l, "cannot find '%s' in scope", name)
}

func redeclared(name string, l, prev loc.Loc) *Diagnostic {
	d := newDiag(Redeclared, l, "invalid redeclaration of '%s'", name)
	if prev != (loc.Loc{}) {
		d.note(prev, "'%s' previously declared here", name)
	}
	return d
}

func typeMismatch(src, dst Type, what string, l loc.Loc) *Diagnostic {
	return newDiag(TypeMismatch, l, "cannot convert value of type '%s' to "+what+" '%s'",
		src.String(), dst.String())
}

// narrowing returns the error for converting src to dst,
// which drops the removed capabilities.
func narrowing(src, dst Type, removed EffectSet, l loc.Loc) *Diagnostic {
	return newDiag(EffectNarrowing, l, "invalid conversion from %s function of type '%s' to %s function type '%s'",
		fromAdjective(removed), src.String(), toAdjective(removed), dst.String())
}

// fromAdjective describes a function having the removed capabilities.
func fromAdjective(removed EffectSet) string {
	switch removed {
	case Suspends:
		return "'async'"
	case Fails:
		return "throwing"
	default:
		return "'async' throwing"
	}
}

// toAdjective describes a function type lacking the removed capabilities.
func toAdjective(removed EffectSet) string {
	switch removed {
	case Suspends:
		return "synchronous"
	case Fails:
		return "non-throwing"
	default:
		return "synchronous non-throwing"
	}
}
