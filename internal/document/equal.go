package document

// Equal reports whether two documents hold the same data. Mapping key order
// is ignored; sequence order is not. A RawExpr equals a string with the same text.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case *Map:
		bv, ok := b.(*Map)
		if !ok {
			return false
		}
		return av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case RawExpr:
		return textEqual(string(av), b)
	case string:
		return textEqual(av, b)
	case int64:
		switch bv := b.(type) {
		case int64:
			return av == bv
		case float64:
			return float64(av) == bv
		}
		return false
	case float64:
		switch bv := b.(type) {
		case float64:
			return av == bv
		case int64:
			return av == float64(bv)
		}
		return false
	default:
		return a == b
	}
}

func textEqual(s string, b any) bool {
	switch bv := b.(type) {
	case string:
		return s == bv
	case RawExpr:
		return s == string(bv)
	}
	return false
}

// Equal reports whether m and other hold the same pairs, in any order.
// go-cmp picks this method up when comparing documents.
func (m *Map) Equal(other *Map) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Len() != other.Len() {
		return false
	}
	for _, item := range m.items {
		ov, ok := other.Get(item.Key)
		if !ok || !Equal(item.Value, ov) {
			return false
		}
	}
	return true
}
