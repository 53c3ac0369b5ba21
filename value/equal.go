package value

import "bytes"

// Equal reports whether a and b are structurally equal, including map key
// order, which the codec round-trip guarantee is stated in terms of. Float
// NaN is never equal to itself, matching IEEE-754 semantics.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.boolVal == b.boolVal
	case KindInt:
		return a.intVal == b.intVal
	case KindUint:
		return a.uintVal == b.uintVal
	case KindFloat:
		return a.floatVal == b.floatVal
	case KindString:
		return a.stringVal == b.stringVal
	case KindBinary:
		return bytes.Equal(a.binVal, b.binVal)
	case KindArray:
		if len(a.arrayVal) != len(b.arrayVal) {
			return false
		}
		for i := range a.arrayVal {
			if !Equal(a.arrayVal[i], b.arrayVal[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.mapVal) != len(b.mapVal) {
			return false
		}
		for i := range a.mapVal {
			if a.mapVal[i].Key != b.mapVal[i].Key || !Equal(a.mapVal[i].Val, b.mapVal[i].Val) {
				return false
			}
		}
		return true
	case KindExtension:
		return a.extType == b.extType && bytes.Equal(a.extData, b.extData)
	case KindDate:
		return a.dateVal == b.dateVal
	case KindBigInt:
		return bytes.Equal(a.bigIntVal, b.bigIntVal)
	default:
		return false
	}
}
