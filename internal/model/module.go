// Package model defines the in-memory representation of compiled host modules
// and the results produced while patching and loading them.
package model

import "strings"

// TypeFlags describe a type definition.
type TypeFlags uint32

// Type flags.
const (
	TypePublic TypeFlags = 1 << iota
	TypeSealed
	TypeAbstract
	TypeCompilerGenerated
)

// MethodFlags describe a method definition.
type MethodFlags uint32

// Method flags.
const (
	MethodPublic MethodFlags = 1 << iota
	MethodStatic
	MethodAbstract
	MethodExtern
	MethodVirtual
)

// FieldFlags describe a field definition.
type FieldFlags uint32

// Field flags.
const (
	FieldPublic FieldFlags = 1 << iota
	FieldStatic
	FieldLiteral
	FieldInitOnly
)

// VoidType is the return type name of methods that return nothing.
const VoidType = "System.Void"

// Module is the ownership root of a compiled module.
type Module struct {
	Name       string
	Flags      uint16
	References []string
	Types      []*TypeDef
}

// TypeDef is a type declared in a module. Nested types carry their simple
// name and a pointer to the declaring type.
type TypeDef struct {
	Name          string
	Flags         TypeFlags
	Fields        []*FieldDef
	Methods       []*MethodDef
	Nested        []*TypeDef
	DeclaringType *TypeDef
}

// MethodDef is a method declared on a type. Body is nil for abstract and
// extern methods.
type MethodDef struct {
	Name          string
	ReturnType    string
	Flags         MethodFlags
	Params        []Param
	Body          *Body
	DeclaringType *TypeDef
}

// Param is a declared method parameter.
type Param struct {
	Name string
	Type string
}

// FieldDef is a field declared on a type. Literal fields carry a Constant.
type FieldDef struct {
	Name     string
	Type     string
	Flags    FieldFlags
	Constant *Constant
}

// ConstantKind tags the value stored in a Constant.
type ConstantKind uint8

// Constant kinds as stored on disk.
const (
	ConstNone ConstantKind = iota
	ConstInt
	ConstString
)

// Constant is the compile-time value of a literal field.
type Constant struct {
	Kind ConstantKind
	Int  int64
	Str  string
}

// FullName returns the type name including its declaring types, separated
// by '/'.
func (t *TypeDef) FullName() string {
	if t.DeclaringType == nil {
		return t.Name
	}

	return t.DeclaringType.FullName() + "/" + t.Name
}

// Namespace returns the dotted prefix of a top-level type name.
func (t *TypeDef) Namespace() string {
	root := t
	for root.DeclaringType != nil {
		root = root.DeclaringType
	}

	idx := strings.LastIndexByte(root.Name, '.')
	if idx < 0 {
		return ""
	}

	return root.Name[:idx]
}

// Method returns the first method declared with the given name.
func (t *TypeDef) Method(name string) *MethodDef {
	for _, method := range t.Methods {
		if method.Name == name {
			return method
		}
	}

	return nil
}

// MethodsNamed returns every overload declared with the given name.
func (t *TypeDef) MethodsNamed(name string) []*MethodDef {
	var out []*MethodDef

	for _, method := range t.Methods {
		if method.Name == name {
			out = append(out, method)
		}
	}

	return out
}

// Field returns the field declared with the given name.
func (t *TypeDef) Field(name string) *FieldDef {
	for _, field := range t.Fields {
		if field.Name == name {
			return field
		}
	}

	return nil
}

// AddMethod appends a method and sets its declaring type.
func (t *TypeDef) AddMethod(method *MethodDef) *MethodDef {
	method.DeclaringType = t
	t.Methods = append(t.Methods, method)

	return method
}

// AddNested appends a nested type and sets its declaring type.
func (t *TypeDef) AddNested(nested *TypeDef) *TypeDef {
	nested.DeclaringType = t
	t.Nested = append(t.Nested, nested)

	return nested
}

// FullName renders the method as "RetType Decl::Name(P1,P2)".
func (md *MethodDef) FullName() string {
	decl := ""
	if md.DeclaringType != nil {
		decl = md.DeclaringType.FullName()
	}

	types := make([]string, 0, len(md.Params))
	for _, p := range md.Params {
		types = append(types, p.Type)
	}

	return formatSignature(md.ReturnType, decl, md.Name, types)
}

// IsStatic reports whether the method has no instance receiver.
func (md *MethodDef) IsStatic() bool { return md.Flags&MethodStatic != 0 }

// IsPublic reports whether the method is visible outside its type.
func (md *MethodDef) IsPublic() bool { return md.Flags&MethodPublic != 0 }

// Type returns the top-level type with the given full name.
func (mod *Module) Type(name string) *TypeDef {
	for _, t := range mod.Types {
		if t.Name == name {
			return t
		}
	}

	return nil
}

// AddType appends a top-level type.
func (mod *Module) AddType(t *TypeDef) *TypeDef {
	t.DeclaringType = nil
	mod.Types = append(mod.Types, t)

	return t
}

// AddReference records a referenced module name once.
func (mod *Module) AddReference(name string) {
	if name == "" || name == mod.Name {
		return
	}

	for _, ref := range mod.References {
		if ref == name {
			return
		}
	}

	mod.References = append(mod.References, name)
}

// Walk visits every type, nested types included, in declaration order. It
// stops when fn returns false.
func (mod *Module) Walk(fn func(t *TypeDef) bool) {
	var visit func(types []*TypeDef) bool

	visit = func(types []*TypeDef) bool {
		for _, t := range types {
			if !fn(t) {
				return false
			}

			if !visit(t.Nested) {
				return false
			}
		}

		return true
	}

	visit(mod.Types)
}
