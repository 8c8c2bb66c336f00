package domain

import (
	"strings"

	m "modhook.dev/pkg/modhook/internal/model"
)

// Anchor is the call instruction the hook is inserted after.
type Anchor struct {
	Index int
	Call  m.MethodRef
}

// ScanAnchor returns the last direct call whose target name contains
// pattern. Earlier matches are often helpers with similar names; the real
// initialisation call is the final one.
func ScanAnchor(body *m.Body, pattern string) (Anchor, bool) {
	found := false

	var anchor Anchor

	for pos, ins := range body.All() {
		if !ins.IsCall() || !strings.Contains(ins.Method.Name, pattern) {
			continue
		}

		anchor = Anchor{Index: pos, Call: *ins.Method}
		found = true
	}

	return anchor, found
}
