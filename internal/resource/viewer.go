// Package resource turns Rep aggregates into the public "rep" API resource.
//
// Nothing in this package does I/O. Given the same Rep and Viewer it always
// produces the same output, which is why the HTTP handler, the CSV/XLSX
// exporter and the tests can all share it.
//
// THE PIECES:
//
//	Viewer     who is asking (anonymous or a user with groups)
//	Policy     field name → predicate deciding who may see a restricted field
//	Projector  Rep + Viewer → Object, dropping fields the policy denies
//	Schema     static description of the resource; the filter parser reads it
//	ListParams query string → repository.RepFilter + format + paging
package resource

import "github.com/samber/lo"

// Viewer is the identity a projection is computed for. The zero value is
// the anonymous viewer.
type Viewer struct {
	UserID string
	Groups []string
}

// Anonymous returns the viewer used when no valid session is present.
func Anonymous() Viewer {
	return Viewer{}
}

// Authenticated reports whether the viewer is a signed-in user.
func (v Viewer) Authenticated() bool {
	return v.UserID != ""
}

// InGroup reports whether the viewer belongs to the named group.
func (v Viewer) InGroup(name string) bool {
	return lo.Contains(v.Groups, name)
}
