package ast

// ImportAll imports a whole project: `import a.b as n` or `import "../x" as n`.
type ImportAll struct {
	Base
	Source Expr
	Rename string
}

// ImportFrom imports a single name from a project: `from src import a.b as n`.
type ImportFrom struct {
	Base
	Source    Expr
	Importing []string
	Rename    string
}

type NamespaceDef struct {
	Base
	Name string
	Body []Def
}

type TargetDef struct {
	Base
	Name  string
	Value Expr
}

type VarDef struct {
	Base
	Name    string
	Type    TypeExpr
	Default Expr
}

// VarRedefs overrides variables of imported projects: `var lib.version = "2"`.
type VarRedefs struct {
	Base
	Redefs []*VarRedef
}

type VarRedef struct {
	Base
	NameTokens []string
	Value      Expr
}

// MethodRef names the implementation of a rule: `target:Class:method`.
type MethodRef struct {
	Base
	TargetName []string
	ClassName  []string
	// MethodName is empty when omitted.
	MethodName string
}

type BuildRuleDef struct {
	Base
	Name       string
	Params     []*ParamDef
	ReturnType TypeExpr
	Impl       *MethodRef
}

type ActionRuleDef struct {
	Base
	Name   string
	Params []*ParamDef
	Impl   *MethodRef
}

type ParamDef struct {
	Base
	Name     string
	Optional bool
	Type     TypeExpr
	Default  Expr
}

type DataClassDef struct {
	Base
	Name   string
	Fields []*ParamDef
	Casts  []*ClassCastDef
}

// ClassCastDef is a custom cast body entry: `as string = this.name`.
type ClassCastDef struct {
	Base
	CastTo TypeExpr
	Expr   Expr
}

type SuperClassDef struct {
	Base
	Name string
	Subs []string
}

type EnumDef struct {
	Base
	Name   string
	Values []string
}

type ActionDef struct {
	Base
	Name string
	// ArgsName is the optional name bound to command line arguments.
	ArgsName string
	Body     []ActionStmt
}

type LetStmt struct {
	Base
	Name string
	Expr Expr
}

func (*ImportAll) isDef()     {}
func (*ImportFrom) isDef()    {}
func (*NamespaceDef) isDef()  {}
func (*TargetDef) isDef()     {}
func (*VarDef) isDef()        {}
func (*VarRedefs) isDef()     {}
func (*BuildRuleDef) isDef()  {}
func (*ActionRuleDef) isDef() {}
func (*DataClassDef) isDef()  {}
func (*SuperClassDef) isDef() {}
func (*EnumDef) isDef()       {}
func (*ActionDef) isDef()     {}

func (*LetStmt) isActionStmt()  {}
func (*CallExpr) isActionStmt() {}

// ImportName returns the name an import binds in its scope.
func ImportName(def Def) (string, bool) {
	switch d := def.(type) {
	case *ImportAll:
		if d.Rename != "" {
			return d.Rename, true
		}
		switch src := d.Source.(type) {
		case *NameRef:
			return src.Name, true
		case *MemberAccess:
			return src.Name, true
		}
		return "", false
	case *ImportFrom:
		if d.Rename != "" {
			return d.Rename, true
		}
		return d.Importing[len(d.Importing)-1], true
	}
	return "", false
}
