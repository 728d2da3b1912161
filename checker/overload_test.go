package checker

import (
	"regexp"
	"strings"
	"testing"

	"github.com/eaburns/effck/loc"
)

var (
	deprecatedSync = &Candidate{
		Name:  "f",
		Func:  fn(NoEffects, stringType),
		Avail: &Availability{Msg: "synchronous is no fun", Severity: Warning},
		L:     loc.Loc{1, 2},
	}
	plainAsync = &Candidate{Name: "f", Func: fn(Suspends, stringType), L: loc.Loc{3, 4}}
)

func TestResolve(t *testing.T) {
	t.Parallel()
	syncCtx := CallContext{}
	asyncCtx := CallContext{AmbientSuspendCapable: true}
	awaitCtx := CallContext{AmbientSuspendCapable: true, MarkedSuspend: true}
	tryAwaitCtx := CallContext{
		AmbientSuspendCapable: true,
		AmbientFailCapable:    true,
		MarkedSuspend:         true,
		MarkedFail:            true,
	}
	throwsCand := &Candidate{Name: "f", Func: fn(Fails, stringType)}
	allCand := &Candidate{Name: "f", Func: fn(AllEffects, stringType)}
	takesSync := &Candidate{Name: "g", Func: fn(NoEffects, intType, fn(NoEffects, intType, intType))}
	takesAsync := &Candidate{Name: "g", Func: fn(Suspends, intType, fn(Suspends, intType, intType))}
	withDefault := &Candidate{Name: "h", Func: fn(NoEffects, stringType, intType), Defaults: 1}
	tests := []struct {
		name    string
		cands   []*Candidate
		args    []Type
		want    Type
		cc      CallContext
		outcome Outcome
		// selected is the selected candidate if outcome is Selected.
		selected *Candidate
		// notes is a regexp matching the joined note messages.
		notes string
	}{
		{
			name:     "scenario A: synchronous context",
			cands:    []*Candidate{deprecatedSync, plainAsync},
			cc:       syncCtx,
			outcome:  Selected,
			selected: deprecatedSync,
		},
		{
			name:     "scenario B: await in async context",
			cands:    []*Candidate{deprecatedSync, plainAsync},
			cc:       awaitCtx,
			outcome:  Selected,
			selected: plainAsync,
		},
		{
			name:     "scenario C: no await in async context",
			cands:    []*Candidate{deprecatedSync, plainAsync},
			cc:       asyncCtx,
			outcome:  Selected,
			selected: deprecatedSync,
		},
		{
			name:     "candidate order does not matter",
			cands:    []*Candidate{plainAsync, deprecatedSync},
			cc:       asyncCtx,
			outcome:  Selected,
			selected: deprecatedSync,
		},
		{
			name:     "await prefers async over fewer effects",
			cands:    []*Candidate{allCand, throwsCand},
			cc:       awaitCtx,
			outcome:  Selected,
			selected: allCand,
		},
		{
			name:     "fewest effects among async candidates",
			cands:    []*Candidate{allCand, plainAsync},
			cc:       awaitCtx,
			outcome:  Selected,
			selected: plainAsync,
		},
		{
			name:     "try await selects async without a throwing candidate",
			cands:    []*Candidate{deprecatedSync, plainAsync},
			cc:       tryAwaitCtx,
			outcome:  Selected,
			selected: plainAsync,
		},
		{
			name:     "try await selects async throws",
			cands:    []*Candidate{deprecatedSync, plainAsync, allCand},
			cc:       tryAwaitCtx,
			outcome:  Selected,
			selected: allCand,
		},
		{
			name:     "try selects throws",
			cands:    []*Candidate{deprecatedSync, throwsCand},
			cc:       CallContext{AmbientFailCapable: true, MarkedFail: true},
			outcome:  Selected,
			selected: throwsCand,
		},
		{
			name:    "incomparable effects are ambiguous",
			cands:   []*Candidate{plainAsync, throwsCand},
			cc:      syncCtx,
			outcome: Ambiguous,
		},
		{
			name:     "exact effects beat fewer effects",
			cands:    []*Candidate{deprecatedSync, allCand},
			cc:       CallContext{MarkedSuspend: true, MarkedFail: true},
			outcome:  Selected,
			selected: allCand,
		},
		{
			name:     "result type filters",
			cands:    []*Candidate{deprecatedSync, {Name: "f", Func: fn(Suspends, doubleType)}},
			want:     doubleType,
			cc:       syncCtx,
			outcome:  Selected,
			selected: &Candidate{Name: "f", Func: fn(Suspends, doubleType)},
			notes:    `f\(\) -> String: result type String does not convert to Double`,
		},
		{
			name:     "result promotes to optional",
			cands:    []*Candidate{deprecatedSync},
			want:     &OptType{Elem: stringType},
			cc:       syncCtx,
			outcome:  Selected,
			selected: deprecatedSync,
		},
		{
			name:    "no match",
			cands:   []*Candidate{deprecatedSync, plainAsync},
			want:    intType,
			outcome: NoMatching,
			notes:   `f\(\) -> String: result type String does not convert to Int\nf\(\) async -> String: result type`,
		},
		{
			name:     "fewer widened arguments",
			cands:    []*Candidate{takesSync, takesAsync},
			args:     []Type{fn(NoEffects, intType, intType)},
			cc:       asyncCtx,
			outcome:  Selected,
			selected: takesSync,
		},
		{
			name:     "async argument filters synchronous parameter",
			cands:    []*Candidate{takesSync, takesAsync},
			args:     []Type{fn(Suspends, intType, intType)},
			cc:       asyncCtx,
			outcome:  Selected,
			selected: takesAsync,
			notes:    `g\(\(Int\) -> Int\) -> Int: argument 0 of type \(Int\) async -> Int cannot be used as \(Int\) -> Int; it is async`,
		},
		{
			name:     "unknown argument type",
			cands:    []*Candidate{takesSync},
			args:     []Type{nil},
			outcome:  Selected,
			selected: takesSync,
		},
		{
			name:     "defaulted parameter omitted",
			cands:    []*Candidate{withDefault},
			outcome:  Selected,
			selected: withDefault,
		},
		{
			name:     "defaulted parameter given",
			cands:    []*Candidate{withDefault},
			args:     []Type{intType},
			outcome:  Selected,
			selected: withDefault,
		},
		{
			name:    "too many arguments",
			cands:   []*Candidate{withDefault},
			args:    []Type{intType, intType},
			outcome: NoMatching,
			notes:   `h\(Int\) -> String: expected 0 to 1 arguments, got 2`,
		},
		{
			name:    "argument type mismatch",
			cands:   []*Candidate{withDefault},
			args:    []Type{stringType},
			outcome: NoMatching,
			notes:   `argument 0 of type String does not convert to Int`,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			res := Resolve(test.cands, test.args, test.want, test.cc)
			if res.Outcome != test.outcome {
				t.Fatalf("Outcome=%s, want %s", res.Outcome, test.outcome)
			}
			if test.outcome == Selected && res.Selected.String() != test.selected.String() {
				t.Errorf("Selected=%s, want %s", res.Selected, test.selected)
			}
			if test.outcome == Ambiguous && len(res.Tied) != len(test.cands) {
				t.Errorf("Tied=%v, want %v", res.Tied, test.cands)
			}
			if test.notes != "" && !regexp.MustCompile(test.notes).MatchString(noteStr(res.Notes)) {
				t.Errorf("notes do not match %s:\n%s", test.notes, noteStr(res.Notes))
			}
		})
	}
}

// TestResolveDeterministic tests that a tie between
// no effects and async is always broken the same way,
// regardless of candidate order or context.
func TestResolveDeterministic(t *testing.T) {
	t.Parallel()
	contexts := []CallContext{
		{},
		{AmbientSuspendCapable: true},
		{AmbientSuspendCapable: true, AmbientFailCapable: true},
	}
	orders := [][]*Candidate{
		{deprecatedSync, plainAsync},
		{plainAsync, deprecatedSync},
	}
	for _, cc := range contexts {
		for _, cands := range orders {
			for i := 0; i < 10; i++ {
				res := Resolve(cands, nil, nil, cc)
				if res.Outcome != Selected || res.Selected != deprecatedSync {
					t.Fatalf("Resolve in %+v: %s %v, want %s", cc, res.Outcome, res.Selected, deprecatedSync)
				}
			}
		}
	}
}

func TestResolveIgnoresAvailability(t *testing.T) {
	t.Parallel()
	a := &Candidate{Name: "f", Func: fn(NoEffects, stringType)}
	b := &Candidate{Name: "f", Func: fn(NoEffects, stringType), Avail: &Availability{Msg: "old"}}
	res := Resolve([]*Candidate{a, b}, nil, nil, CallContext{})
	if res.Outcome != Ambiguous {
		t.Errorf("Outcome=%s, want ambiguous", res.Outcome)
	}
}

func TestResolveRef(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		cands    []*Candidate
		want     Type
		outcome  Outcome
		selected *Candidate
	}{
		{
			name:     "no expected type",
			cands:    []*Candidate{deprecatedSync, plainAsync},
			outcome:  Selected,
			selected: deprecatedSync,
		},
		{
			name:     "exact expected type",
			cands:    []*Candidate{deprecatedSync, plainAsync},
			want:     fn(Suspends, stringType),
			outcome:  Selected,
			selected: plainAsync,
		},
		{
			name:     "widened expected type",
			cands:    []*Candidate{deprecatedSync, plainAsync},
			want:     fn(AllEffects, stringType),
			outcome:  Selected,
			selected: deprecatedSync,
		},
		{
			name:    "narrowed expected type",
			cands:   []*Candidate{plainAsync},
			want:    fn(NoEffects, stringType),
			outcome: NoMatching,
		},
		{
			name:     "optional expected type",
			cands:    []*Candidate{plainAsync},
			want:     &OptType{Elem: fn(Suspends, stringType)},
			outcome:  Selected,
			selected: plainAsync,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			res := ResolveRef(test.cands, test.want)
			if res.Outcome != test.outcome {
				t.Fatalf("Outcome=%s, want %s", res.Outcome, test.outcome)
			}
			if test.outcome == Selected && res.Selected != test.selected {
				t.Errorf("Selected=%s, want %s", res.Selected, test.selected)
			}
		})
	}
}

func noteStr(notes []Note) string {
	var s strings.Builder
	for i, n := range notes {
		if i > 0 {
			s.WriteRune('\n')
		}
		s.WriteString(n.Msg)
	}
	return s.String()
}
