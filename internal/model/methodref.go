package model

import (
	"fmt"
	"strings"
)

// MethodRef is the operand of call-like instructions. Scope names the module
// that declares the method and is not part of the signature.
type MethodRef struct {
	Scope         string
	DeclaringType string
	Name          string
	ReturnType    string
	Params        []string
}

// String renders the fully qualified signature "RetType Decl::Name(P1,P2)".
func (r MethodRef) String() string {
	return formatSignature(r.ReturnType, r.DeclaringType, r.Name, r.Params)
}

// Equal compares signatures; scope is ignored.
func (r MethodRef) Equal(other MethodRef) bool {
	return r.String() == other.String()
}

// RefTo builds a reference to a declared method.
func RefTo(module *Module, md *MethodDef) MethodRef {
	params := make([]string, 0, len(md.Params))
	for _, p := range md.Params {
		params = append(params, p.Type)
	}

	decl := ""
	if md.DeclaringType != nil {
		decl = md.DeclaringType.FullName()
	}

	scope := ""
	if module != nil {
		scope = module.Name
	}

	return MethodRef{
		Scope:         scope,
		DeclaringType: decl,
		Name:          md.Name,
		ReturnType:    md.ReturnType,
		Params:        params,
	}
}

// ParseMethodRef parses a "RetType Decl::Name(P1,P2)" signature.
func ParseMethodRef(signature string) (MethodRef, error) {
	sig := strings.TrimSpace(signature)

	space := strings.IndexByte(sig, ' ')
	if space <= 0 {
		return MethodRef{}, fmt.Errorf("signature %q: missing return type", signature)
	}

	ret, rest := sig[:space], sig[space+1:]

	sep := strings.Index(rest, "::")
	if sep <= 0 {
		return MethodRef{}, fmt.Errorf("signature %q: missing declaring type", signature)
	}

	decl, rest := rest[:sep], rest[sep+2:]

	open := strings.IndexByte(rest, '(')
	if open <= 0 || !strings.HasSuffix(rest, ")") {
		return MethodRef{}, fmt.Errorf("signature %q: malformed parameter list", signature)
	}

	name := rest[:open]
	inner := strings.TrimSpace(rest[open+1 : len(rest)-1])

	var params []string
	if inner != "" {
		for _, p := range strings.Split(inner, ",") {
			params = append(params, strings.TrimSpace(p))
		}
	}

	return MethodRef{DeclaringType: decl, Name: name, ReturnType: ret, Params: params}, nil
}

func formatSignature(ret, decl, name string, params []string) string {
	return ret + " " + decl + "::" + name + "(" + strings.Join(params, ",") + ")"
}
