package inventory

const (
	// FieldPrice is the required price key of an item snapshot
	FieldPrice = "price"
	// FieldAvailability is the required availability key of an item snapshot
	FieldAvailability = "availability"
)

// Fields is a flat snapshot of an inventory item. Values are JSON compatible.
type Fields map[string]any

// Clone returns a deep copy of the snapshot
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case Fields:
		return val.Clone()
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// Merge returns {...f, ...other}: keys from other win on overlap
func (f Fields) Merge(other Fields) Fields {
	out := f.Clone()
	if out == nil {
		out = make(Fields, len(other))
	}
	for k, v := range other {
		out[k] = cloneValue(v)
	}
	return out
}
