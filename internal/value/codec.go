package value

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers of value kinds. They are part of the persisted format
// and of every object hash, so they must never be renumbered.
const (
	kindBoolean protowire.Number = iota + 1
	kindString
	kindPath
	kindFile
	kindDirectory
	kindEnum
	kindList
	kindSet
	kindTuple
	kindNamedTuple
	kindClassInstance
	kindNClassInstance
	kindNone
	kindBuildRuleDef
	kindActionRuleDef
	kindType
)

const (
	typeBasic protowire.Number = iota + 1
	typeList
	typeSet
	typeTuple
	typeNamedTuple
	typeDataClass
	typeSuperClass
	typeEnum
	typeUnion
)

// Encode returns the canonical binary form of v. Equal values always encode
// to the same bytes: set elements and class fields are written in sorted
// order.
func Encode(v Value) []byte {
	return appendValue(nil, v)
}

// AppendEncoded appends the canonical form of v to b.
func AppendEncoded(b []byte, v Value) []byte {
	return appendValue(b, v)
}

func appendValue(b []byte, v Value) []byte {
	switch v := v.(type) {
	case Boolean:
		n := uint64(0)
		if v {
			n = 1
		}
		b = protowire.AppendTag(b, kindBoolean, protowire.VarintType)
		return protowire.AppendVarint(b, n)
	case String:
		return appendString(b, kindString, string(v))
	case Path:
		return appendString(b, kindPath, string(v))
	case File:
		return appendString(b, kindFile, string(v))
	case Directory:
		return appendString(b, kindDirectory, string(v))
	case Enum:
		var body []byte
		body = appendString(body, 1, v.Package)
		body = appendString(body, 2, v.Enum)
		body = appendString(body, 3, v.Value)
		return appendBytes(b, kindEnum, body)
	case List:
		return appendBytes(b, kindList, appendElems(nil, v.Values, false))
	case Set:
		return appendBytes(b, kindSet, appendElems(nil, v.Values, true))
	case Tuple:
		return appendBytes(b, kindTuple, appendElems(nil, v.Values, false))
	case NamedTuple:
		var body []byte
		for _, p := range v.Pairs {
			body = appendBytes(body, 1, appendField(nil, p.Name, p.Value))
		}
		return appendBytes(b, kindNamedTuple, body)
	case ClassInstance:
		var body []byte
		body = appendString(body, 1, v.Package)
		body = appendString(body, 2, v.Class)
		body = appendFields(body, 3, v.Fields)
		return appendBytes(b, kindClassInstance, body)
	case NClassInstance:
		var body []byte
		for _, tok := range v.NameTokens {
			body = appendString(body, 1, tok)
		}
		body = appendFields(body, 2, v.Fields)
		return appendBytes(b, kindNClassInstance, body)
	case NoneValue:
		return appendBytes(b, kindNone, nil)
	case BuildRuleDef:
		return appendBytes(b, kindBuildRuleDef, appendRuleDef(nil, v.Name, v.Params, v.Impl, v.ImplClass, v.ImplMethod))
	case ActionRuleDef:
		return appendBytes(b, kindActionRuleDef, appendRuleDef(nil, v.Name, v.Params, v.Impl, v.ImplClass, v.ImplMethod))
	case TypeValue:
		return appendBytes(b, kindType, appendType(nil, v.Type))
	}
	panic(fmt.Sprintf("value: cannot encode %T", v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

func appendElems(b []byte, values []Value, sorted bool) []byte {
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = Encode(v)
	}
	if sorted {
		sort.Slice(encoded, func(i, j int) bool { return bytes.Compare(encoded[i], encoded[j]) < 0 })
	}
	for _, e := range encoded {
		b = appendBytes(b, 1, e)
	}
	return b
}

func appendField(b []byte, name string, v Value) []byte {
	b = appendString(b, 1, name)
	return appendBytes(b, 2, Encode(v))
}

func appendFields(b []byte, num protowire.Number, fields map[string]Value) []byte {
	for _, k := range sortedKeys(fields) {
		b = appendBytes(b, num, appendField(nil, k, fields[k]))
	}
	return b
}

func appendRuleDef(b []byte, name CName, params []RuleParam, impl CName, class, method string) []byte {
	b = appendString(b, 1, name.Package)
	b = appendString(b, 2, name.Name)
	for _, p := range params {
		var pb []byte
		pb = appendString(pb, 1, p.Name)
		pb = appendBytes(pb, 2, appendType(nil, p.Type))
		if p.Optional {
			pb = protowire.AppendTag(pb, 3, protowire.VarintType)
			pb = protowire.AppendVarint(pb, 1)
		}
		b = appendBytes(b, 3, pb)
	}
	b = appendString(b, 4, impl.Package)
	b = appendString(b, 5, impl.Name)
	b = appendString(b, 6, class)
	return appendString(b, 7, method)
}

// EncodeType returns the canonical binary form of t.
func EncodeType(t Type) []byte {
	return appendType(nil, t)
}

func appendType(b []byte, t Type) []byte {
	switch t := t.(type) {
	case BasicType:
		b = protowire.AppendTag(b, typeBasic, protowire.VarintType)
		return protowire.AppendVarint(b, uint64(t))
	case ListType:
		return appendBytes(b, typeList, appendType(nil, t.Elem))
	case SetType:
		return appendBytes(b, typeSet, appendType(nil, t.Elem))
	case TupleType:
		var body []byte
		for _, e := range t.Elems {
			body = appendBytes(body, 1, appendType(nil, e))
		}
		return appendBytes(b, typeTuple, body)
	case NamedTupleType:
		var body []byte
		for _, p := range t.Pairs {
			var pb []byte
			pb = appendString(pb, 1, p.Name)
			pb = appendBytes(pb, 2, appendType(nil, p.Type))
			body = appendBytes(body, 1, pb)
		}
		return appendBytes(b, typeNamedTuple, body)
	case DataClassType:
		return appendBytes(b, typeDataClass, appendQualified(t.Package, t.Name))
	case SuperClassType:
		return appendBytes(b, typeSuperClass, appendQualified(t.Package, t.Name))
	case EnumType:
		return appendBytes(b, typeEnum, appendQualified(t.Package, t.Name))
	case UnionType:
		var body []byte
		for _, e := range t.Types {
			body = appendBytes(body, 1, appendType(nil, e))
		}
		return appendBytes(b, typeUnion, body)
	}
	panic(fmt.Sprintf("value: cannot encode type %T", t))
}

func appendQualified(pkg, name string) []byte {
	b := appendString(nil, 1, pkg)
	return appendString(b, 2, name)
}

// ErrMalformed is returned when decoding bytes that were not produced by Encode.
var ErrMalformed = errors.New("malformed value encoding")

type field struct {
	num    protowire.Number
	varint uint64
	bytes  []byte
}

// readFields splits a message into its fields.
func readFields(b []byte) ([]field, error) {
	var fields []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			f.varint = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			f.bytes = v
			b = b[n:]
		default:
			return nil, fmt.Errorf("%w: unexpected wire type %d", ErrMalformed, typ)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Decode parses bytes produced by Encode.
func Decode(b []byte) (Value, error) {
	fields, err := readFields(b)
	if err != nil {
		return nil, err
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("%w: expected a single value, found %d fields", ErrMalformed, len(fields))
	}
	return decodeField(fields[0])
}

func decodeField(f field) (Value, error) {
	switch f.num {
	case kindBoolean:
		return Boolean(f.varint != 0), nil
	case kindString:
		return String(f.bytes), nil
	case kindPath:
		return Path(f.bytes), nil
	case kindFile:
		return File(f.bytes), nil
	case kindDirectory:
		return Directory(f.bytes), nil
	case kindNone:
		return None, nil
	case kindEnum:
		strs, err := decodeStrings(f.bytes, 3)
		if err != nil {
			return nil, err
		}
		return Enum{Package: strs[0], Enum: strs[1], Value: strs[2]}, nil
	case kindList:
		elems, err := decodeElems(f.bytes)
		return List{Values: elems}, err
	case kindSet:
		elems, err := decodeElems(f.bytes)
		return Set{Values: elems}, err
	case kindTuple:
		elems, err := decodeElems(f.bytes)
		return Tuple{Values: elems}, err
	case kindNamedTuple:
		sub, err := readFields(f.bytes)
		if err != nil {
			return nil, err
		}
		t := NamedTuple{}
		for _, s := range sub {
			name, v, err := decodeNamedField(s.bytes)
			if err != nil {
				return nil, err
			}
			t.Pairs = append(t.Pairs, NamedPair{Name: name, Value: v})
		}
		return t, nil
	case kindClassInstance:
		sub, err := readFields(f.bytes)
		if err != nil {
			return nil, err
		}
		c := ClassInstance{Fields: map[string]Value{}}
		for _, s := range sub {
			switch s.num {
			case 1:
				c.Package = string(s.bytes)
			case 2:
				c.Class = string(s.bytes)
			case 3:
				name, v, err := decodeNamedField(s.bytes)
				if err != nil {
					return nil, err
				}
				c.Fields[name] = v
			}
		}
		return c, nil
	case kindNClassInstance:
		sub, err := readFields(f.bytes)
		if err != nil {
			return nil, err
		}
		c := NClassInstance{Fields: map[string]Value{}}
		for _, s := range sub {
			switch s.num {
			case 1:
				c.NameTokens = append(c.NameTokens, string(s.bytes))
			case 2:
				name, v, err := decodeNamedField(s.bytes)
				if err != nil {
					return nil, err
				}
				c.Fields[name] = v
			}
		}
		return c, nil
	case kindBuildRuleDef:
		name, params, impl, class, method, err := decodeRuleDef(f.bytes)
		if err != nil {
			return nil, err
		}
		return BuildRuleDef{Name: name, Params: params, Impl: impl, ImplClass: class, ImplMethod: method}, nil
	case kindActionRuleDef:
		name, params, impl, class, method, err := decodeRuleDef(f.bytes)
		if err != nil {
			return nil, err
		}
		return ActionRuleDef{Name: name, Params: params, Impl: impl, ImplClass: class, ImplMethod: method}, nil
	case kindType:
		t, err := DecodeType(f.bytes)
		if err != nil {
			return nil, err
		}
		return TypeValue{Type: t}, nil
	}
	return nil, fmt.Errorf("%w: unknown value kind %d", ErrMalformed, f.num)
}

func decodeStrings(b []byte, n int) ([]string, error) {
	sub, err := readFields(b)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for _, s := range sub {
		if int(s.num) < 1 || int(s.num) > n {
			return nil, fmt.Errorf("%w: unexpected field %d", ErrMalformed, s.num)
		}
		out[s.num-1] = string(s.bytes)
	}
	return out, nil
}

func decodeElems(b []byte) ([]Value, error) {
	sub, err := readFields(b)
	if err != nil {
		return nil, err
	}
	values := make([]Value, 0, len(sub))
	for _, s := range sub {
		v, err := Decode(s.bytes)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func decodeNamedField(b []byte) (string, Value, error) {
	sub, err := readFields(b)
	if err != nil {
		return "", nil, err
	}
	var name string
	var v Value
	for _, s := range sub {
		switch s.num {
		case 1:
			name = string(s.bytes)
		case 2:
			if v, err = Decode(s.bytes); err != nil {
				return "", nil, err
			}
		}
	}
	if v == nil {
		return "", nil, fmt.Errorf("%w: field %q has no value", ErrMalformed, name)
	}
	return name, v, nil
}

func decodeRuleDef(b []byte) (name CName, params []RuleParam, impl CName, class, method string, err error) {
	sub, err := readFields(b)
	if err != nil {
		return
	}
	for _, s := range sub {
		switch s.num {
		case 1:
			name.Package = string(s.bytes)
		case 2:
			name.Name = string(s.bytes)
		case 3:
			var p RuleParam
			pf, perr := readFields(s.bytes)
			if perr != nil {
				err = perr
				return
			}
			for _, x := range pf {
				switch x.num {
				case 1:
					p.Name = string(x.bytes)
				case 2:
					if p.Type, err = DecodeType(x.bytes); err != nil {
						return
					}
				case 3:
					p.Optional = x.varint != 0
				}
			}
			params = append(params, p)
		case 4:
			impl.Package = string(s.bytes)
		case 5:
			impl.Name = string(s.bytes)
		case 6:
			class = string(s.bytes)
		case 7:
			method = string(s.bytes)
		}
	}
	return
}

// DecodeType parses bytes produced by EncodeType.
func DecodeType(b []byte) (Type, error) {
	fields, err := readFields(b)
	if err != nil {
		return nil, err
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("%w: expected a single type, found %d fields", ErrMalformed, len(fields))
	}
	f := fields[0]
	switch f.num {
	case typeBasic:
		if _, ok := basicTypeNames[BasicType(f.varint)]; !ok {
			return nil, fmt.Errorf("%w: unknown basic type %d", ErrMalformed, f.varint)
		}
		return BasicType(f.varint), nil
	case typeList, typeSet:
		elem, err := DecodeType(f.bytes)
		if err != nil {
			return nil, err
		}
		if f.num == typeList {
			return ListType{Elem: elem}, nil
		}
		return SetType{Elem: elem}, nil
	case typeTuple, typeUnion:
		sub, err := readFields(f.bytes)
		if err != nil {
			return nil, err
		}
		var elems []Type
		for _, s := range sub {
			e, err := DecodeType(s.bytes)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if f.num == typeTuple {
			return TupleType{Elems: elems}, nil
		}
		return UnionType{Types: elems}, nil
	case typeNamedTuple:
		sub, err := readFields(f.bytes)
		if err != nil {
			return nil, err
		}
		var t NamedTupleType
		for _, s := range sub {
			pf, err := readFields(s.bytes)
			if err != nil {
				return nil, err
			}
			var p NamedType
			for _, x := range pf {
				switch x.num {
				case 1:
					p.Name = string(x.bytes)
				case 2:
					if p.Type, err = DecodeType(x.bytes); err != nil {
						return nil, err
					}
				}
			}
			t.Pairs = append(t.Pairs, p)
		}
		return t, nil
	case typeDataClass, typeSuperClass, typeEnum:
		strs, err := decodeStrings(f.bytes, 2)
		if err != nil {
			return nil, err
		}
		switch f.num {
		case typeDataClass:
			return DataClassType{Package: strs[0], Name: strs[1]}, nil
		case typeSuperClass:
			return SuperClassType{Package: strs[0], Name: strs[1]}, nil
		default:
			return EnumType{Package: strs[0], Name: strs[1]}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown type kind %d", ErrMalformed, f.num)
}
