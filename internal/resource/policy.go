package resource

import (
	"github.com/sakif/remo/internal/model"
)

// Predicate decides whether viewer may see a restricted field of owner.
// Predicates never fail; a denied field is simply left out.
type Predicate func(viewer Viewer, owner *model.Rep) bool

// Policy maps field names to the predicate guarding them. Nested fields are
// addressed as "profile.<name>". A field without an entry is public.
type Policy map[string]Predicate

// DefaultPolicy is the policy the API serves with.
//
//	email                  owner, owner's mentor, or an Admin
//	profile.private_email  owner, or any signed-in user when the owner
//	                       opted in with private_email_visible
var DefaultPolicy = Policy{
	"email":                 AnyOf(Self, MentorOf, InGroup(model.GroupAdmin)),
	"profile.private_email": AnyOf(Self, PrivateEmailShared),
}

// Allows reports whether viewer may see field on owner.
func (p Policy) Allows(field string, viewer Viewer, owner *model.Rep) bool {
	pred, restricted := p[field]
	if !restricted {
		return true
	}
	return pred(viewer, owner)
}

// Restricted reports whether field has a predicate at all.
func (p Policy) Restricted(field string) bool {
	_, ok := p[field]
	return ok
}

// Self matches a signed-in viewer looking at their own rep.
func Self(viewer Viewer, owner *model.Rep) bool {
	return viewer.Authenticated() && viewer.UserID == owner.User.ID
}

// MentorOf matches the owner's mentor.
func MentorOf(viewer Viewer, owner *model.Rep) bool {
	mentor := owner.Profile.MentorID
	return viewer.Authenticated() && mentor != nil && *mentor == viewer.UserID
}

// PrivateEmailShared matches any signed-in viewer when the owner made their
// private email visible.
func PrivateEmailShared(viewer Viewer, owner *model.Rep) bool {
	return viewer.Authenticated() && owner.Profile.PrivateEmailVisible
}

// InGroup matches signed-in viewers in the named group.
func InGroup(name string) Predicate {
	return func(viewer Viewer, _ *model.Rep) bool {
		return viewer.Authenticated() && viewer.InGroup(name)
	}
}

// AnyOf matches when at least one of preds matches.
func AnyOf(preds ...Predicate) Predicate {
	return func(viewer Viewer, owner *model.Rep) bool {
		for _, p := range preds {
			if p(viewer, owner) {
				return true
			}
		}
		return false
	}
}
