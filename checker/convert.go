package checker

// Convertible returns whether a function with effects from
// may be used where a function with effects to is expected.
// That is the case exactly when to has every capability of from:
// a caller prepared for an effect need not observe it.
func Convertible(from, to EffectSet) bool { return from.Leq(to) }

// ConvertibleSignature returns whether a function of type from
// may be used where a function of type to is expected.
// Parameter and return types must be identical;
// only the effects may widen.
func ConvertibleSignature(from, to *FuncType) bool {
	return sameBase(from, to) && Convertible(from.Effects, to.Effects)
}

// Narrowed returns the capabilities of from that are missing in to.
func Narrowed(from, to EffectSet) EffectSet { return from &^ to }

// A conversion is the kind of an implicit value conversion.
type conversion int

const (
	noConvert conversion = iota
	// identity converts a type to itself.
	identity
	// promote converts a value to an optional of its type.
	promote
	// widen converts a function to a function type with more effects.
	widen
)

// convertType returns the conversion from src to dst.
// If src does not convert to dst only because the conversion
// would remove effects, the removed effects are returned too.
// A nil type is unknown, and it converts to and from anything.
func convertType(src, dst Type) (conversion, EffectSet) {
	if src == nil || dst == nil || eqType(src, dst) {
		return identity, NoEffects
	}
	if srcFunc, ok := src.(*FuncType); ok {
		if dstFunc, ok := dst.(*FuncType); ok && sameBase(srcFunc, dstFunc) {
			if Convertible(srcFunc.Effects, dstFunc.Effects) {
				return widen, NoEffects
			}
			return noConvert, Narrowed(srcFunc.Effects, dstFunc.Effects)
		}
	}
	if dstOpt, ok := dst.(*OptType); ok {
		if _, ok := src.(*OptType); !ok {
			cvt, removed := convertType(src, dstOpt.Elem)
			if cvt != noConvert {
				return promote, NoEffects
			}
			return noConvert, removed
		}
	}
	return noConvert, NoEffects
}
