package dsl

// Literal values produced by the grammar layer. Object fields preserve
// declaration order so node and edge construction stays deterministic
// with respect to the source text.

type value interface {
	pos() (line, col int)
}

type stringValue struct {
	val       string
	line, col int
}

type numberValue struct {
	// isInt records whether the literal had integral syntax, so that
	// round-tripping keeps 3 as 3 rather than 3.0.
	f         float64
	i         int64
	isInt     bool
	line, col int
}

type boolValue struct {
	val       bool
	line, col int
}

type nullValue struct {
	line, col int
}

// refValue is a bare identifier used in value position, such as the
// environment name in "env: staging".
type refValue struct {
	name      string
	line, col int
}

type arrayValue struct {
	items     []value
	line, col int
}

type objectValue struct {
	fields    []objectField
	line, col int
}

type objectField struct {
	key       string
	value     value
	line, col int
}

func (v stringValue) pos() (int, int) { return v.line, v.col }
func (v numberValue) pos() (int, int) { return v.line, v.col }
func (v boolValue) pos() (int, int)   { return v.line, v.col }
func (v nullValue) pos() (int, int)   { return v.line, v.col }
func (v refValue) pos() (int, int)    { return v.line, v.col }
func (v arrayValue) pos() (int, int)  { return v.line, v.col }
func (v objectValue) pos() (int, int) { return v.line, v.col }

// get returns the field with the given key, or false when absent.
func (o objectValue) get(key string) (objectField, bool) {
	for _, f := range o.fields {
		if f.key == key {
			return f, true
		}
	}
	return objectField{}, false
}

// toAny converts a literal to the plain Go representation stored in
// workflow context maps and config Extra maps.
func toAny(v value) any {
	switch t := v.(type) {
	case stringValue:
		return t.val
	case numberValue:
		if t.isInt {
			return int(t.i)
		}
		return t.f
	case boolValue:
		return t.val
	case nullValue:
		return nil
	case refValue:
		return t.name
	case arrayValue:
		out := make([]any, 0, len(t.items))
		for _, item := range t.items {
			out = append(out, toAny(item))
		}
		return out
	case objectValue:
		out := make(map[string]any, len(t.fields))
		for _, f := range t.fields {
			out[f.key] = toAny(f.value)
		}
		return out
	default:
		return nil
	}
}
