package objhash

import (
	"encoding/hex"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/bibixgo/internal/value"
	"google.golang.org/protobuf/encoding/protowire"
	"lukechampine.com/blake3"
)

// SourceKind tells where a definition comes from.
type SourceKind int

const (
	MainSource SourceKind = iota + 1
	PreludeSource
	PreloadedSource
	ExternalSource
)

// SourceID identifies the project a rule or its caller is defined in,
// independently of project ids, which are only stable within one run.
type SourceID struct {
	Kind SourceKind
	// Name is the plugin name of a preloaded source.
	Name string
	// Root and Script locate an external project. Root is relative to the
	// main project when it lies inside it.
	Root   string
	Script string
}

func (s SourceID) String() string {
	switch s.Kind {
	case MainSource:
		return "main"
	case PreludeSource:
		return "prelude"
	case PreloadedSource:
		return "preloaded:" + s.Name
	}
	return "external:" + filepath.Join(s.Root, s.Script)
}

// TargetIDData describes one rule invocation.
type TargetIDData struct {
	CallerSource SourceID
	RuleSource   SourceID
	RuleName     string
	// ImplHash is empty for native rules. Otherwise it is the object hash of
	// the value naming the implementation.
	ImplHash   []byte
	ImplClass  string
	ImplMethod string
	Args       map[string]value.Value
}

const (
	fieldCallerSource protowire.Number = iota + 1
	fieldRuleSource
	fieldRuleName
	fieldNative
	fieldImplHash
	fieldImplClass
	fieldImplMethod
	fieldArg
)

// Encode returns the canonical encoding of d. Paths under mainBase are
// written relative to it so ids survive moving the workspace. Arguments are
// always written sorted by name.
func (d *TargetIDData) Encode(mainBase string) []byte {
	var b []byte
	b = appendBytes(b, fieldCallerSource, appendSource(nil, d.CallerSource))
	b = appendBytes(b, fieldRuleSource, appendSource(nil, d.RuleSource))
	b = appendString(b, fieldRuleName, d.RuleName)
	if len(d.ImplHash) == 0 {
		b = protowire.AppendTag(b, fieldNative, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	} else {
		b = appendBytes(b, fieldImplHash, d.ImplHash)
	}
	b = appendString(b, fieldImplClass, d.ImplClass)
	b = appendString(b, fieldImplMethod, d.ImplMethod)

	names := make([]string, 0, len(d.Args))
	for name := range d.Args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var arg []byte
		arg = appendString(arg, 1, name)
		arg = appendBytes(arg, 2, value.Encode(RelativizePaths(d.Args[name], mainBase)))
		b = appendBytes(b, fieldArg, arg)
	}
	return b
}

func appendSource(b []byte, s SourceID) []byte {
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Kind))
	if s.Name != "" {
		b = appendString(b, 2, s.Name)
	}
	if s.Root != "" {
		b = appendString(b, 3, s.Root)
	}
	if s.Script != "" {
		b = appendString(b, 4, s.Script)
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

// Sum returns the BLAKE3 digest of data.
func Sum(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

// Hex returns the hex form of the BLAKE3 digest of data.
func Hex(data []byte) string {
	return hex.EncodeToString(Sum(data))
}

// TargetID returns the target id of an invocation.
func TargetID(d *TargetIDData, mainBase string) (data []byte, id string) {
	data = d.Encode(mainBase)
	return data, Hex(data)
}

// ValueHash returns the object hash of a value.
func ValueHash(v value.Value) []byte {
	return Sum(value.Encode(v))
}

// RelativizePaths rewrites paths under base as paths relative to it,
// prefixed with "$main/". Other values are returned unchanged.
func RelativizePaths(v value.Value, base string) value.Value {
	if base == "" {
		return v
	}
	rel := func(p string) string {
		r, err := filepath.Rel(base, p)
		if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return p
		}
		return "$main/" + filepath.ToSlash(r)
	}
	switch v := v.(type) {
	case value.Path:
		return value.Path(rel(string(v)))
	case value.File:
		return value.File(rel(string(v)))
	case value.Directory:
		return value.Directory(rel(string(v)))
	case value.List:
		return value.List{Values: relativizeAll(v.Values, base)}
	case value.Set:
		return value.Set{Values: relativizeAll(v.Values, base)}
	case value.Tuple:
		return value.Tuple{Values: relativizeAll(v.Values, base)}
	case value.NamedTuple:
		pairs := make([]value.NamedPair, len(v.Pairs))
		for i, p := range v.Pairs {
			pairs[i] = value.NamedPair{Name: p.Name, Value: RelativizePaths(p.Value, base)}
		}
		return value.NamedTuple{Pairs: pairs}
	case value.ClassInstance:
		return value.ClassInstance{Package: v.Package, Class: v.Class, Fields: relativizeFields(v.Fields, base)}
	case value.NClassInstance:
		return value.NClassInstance{NameTokens: v.NameTokens, Fields: relativizeFields(v.Fields, base)}
	}
	return v
}

func relativizeAll(values []value.Value, base string) []value.Value {
	out := make([]value.Value, len(values))
	for i, v := range values {
		out[i] = RelativizePaths(v, base)
	}
	return out
}

func relativizeFields(fields map[string]value.Value, base string) map[string]value.Value {
	out := make(map[string]value.Value, len(fields))
	for k, v := range fields {
		out[k] = RelativizePaths(v, base)
	}
	return out
}
