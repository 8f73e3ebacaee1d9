package value

// Equal reports deep equality of two values. Sets compare without regard to
// element order.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Boolean, String, Path, File, Directory, Enum, NoneValue:
		return a == b
	case List:
		b, ok := b.(List)
		return ok && valuesEqual(a.Values, b.Values)
	case Tuple:
		b, ok := b.(Tuple)
		return ok && valuesEqual(a.Values, b.Values)
	case Set:
		b, ok := b.(Set)
		return ok && setEqual(a.Values, b.Values)
	case NamedTuple:
		b, ok := b.(NamedTuple)
		if !ok || len(a.Pairs) != len(b.Pairs) {
			return false
		}
		for i := range a.Pairs {
			if a.Pairs[i].Name != b.Pairs[i].Name || !Equal(a.Pairs[i].Value, b.Pairs[i].Value) {
				return false
			}
		}
		return true
	case ClassInstance:
		b, ok := b.(ClassInstance)
		return ok && a.Package == b.Package && a.Class == b.Class && fieldsEqual(a.Fields, b.Fields)
	case NClassInstance:
		b, ok := b.(NClassInstance)
		if !ok || len(a.NameTokens) != len(b.NameTokens) {
			return false
		}
		for i := range a.NameTokens {
			if a.NameTokens[i] != b.NameTokens[i] {
				return false
			}
		}
		return fieldsEqual(a.Fields, b.Fields)
	case BuildRuleDef:
		b, ok := b.(BuildRuleDef)
		return ok && a.Name == b.Name && a.Impl == b.Impl && a.ImplClass == b.ImplClass &&
			a.ImplMethod == b.ImplMethod && paramsEqual(a.Params, b.Params)
	case ActionRuleDef:
		b, ok := b.(ActionRuleDef)
		return ok && a.Name == b.Name && a.Impl == b.Impl && a.ImplClass == b.ImplClass &&
			a.ImplMethod == b.ImplMethod && paramsEqual(a.Params, b.Params)
	case TypeValue:
		b, ok := b.(TypeValue)
		return ok && TypeEqual(a.Type, b.Type)
	}
	return false
}

func valuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func setEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		found := false
		for _, y := range b {
			if Equal(x, y) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func fieldsEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

func paramsEqual(a, b []RuleParam) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Optional != b[i].Optional || !TypeEqual(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}
