package variant

// Equal reports whether a and b hold the same kind and the same content.
// Composite kinds compare element-wise. A Go nil equals Nil{}.
func Equal(a, b Value) bool {
	a, b = Normalize(a), Normalize(b)

	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Color:
		bv, ok := b.(Color)
		return ok && av == bv
	case Vector2:
		bv, ok := b.(Vector2)
		return ok && av == bv
	case ObjectRef:
		bv, ok := b.(ObjectRef)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Dictionary:
		bv, ok := b.(Dictionary)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// EqualApprox is Equal with approximate comparison for Float, Color and
// Vector2, applied recursively through Array and Dictionary.
func EqualApprox(a, b Value) bool {
	a, b = Normalize(a), Normalize(b)

	switch av := a.(type) {
	case Float:
		bv, ok := b.(Float)
		return ok && approxEqual(float32(av), float32(bv))
	case Color:
		bv, ok := b.(Color)
		return ok && av.IsEqualApprox(bv)
	case Vector2:
		bv, ok := b.(Vector2)
		return ok && av.IsEqualApprox(bv)
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !EqualApprox(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Dictionary:
		bv, ok := b.(Dictionary)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !EqualApprox(v, other) {
				return false
			}
		}
		return true
	default:
		return Equal(a, b)
	}
}
