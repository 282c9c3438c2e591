package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/sakif/remo/internal/model"
)

// URI prefixes of the resources this API links to.
const (
	RepURIPrefix     = "/api/v1/rep/"
	ProfileURIPrefix = "/api/v1/profile/"
)

// RepURI is the canonical address of one rep.
func RepURI(userID string) string {
	return RepURIPrefix + userID + "/"
}

// ProfileURI is the canonical address of one profile.
func ProfileURI(profileID string) string {
	return ProfileURIPrefix + profileID + "/"
}

// Field is one name/value pair of an Object.
type Field struct {
	Name  string
	Value any
}

// Object is an ordered set of fields.
//
// WHY NOT map[string]any?
// Go maps have no order, and encoding/json sorts map keys. Clients (and the
// CSV exporter) get the fields in the order the resource declares them.
// A field that is not in the Object is absent from the JSON; it is never
// written as null.
type Object []Field

// Get returns the value of name and whether the field is present.
func (o Object) Get(name string) (any, bool) {
	f, ok := lo.Find(o, func(f Field) bool { return f.Name == name })
	return f.Value, ok
}

// Has reports whether name is present.
func (o Object) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

// Names lists the field names in order.
func (o Object) Names() []string {
	return lo.Map(o, func(f Field, _ int) string { return f.Name })
}

// MarshalJSON writes the fields in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("resource: encoding field %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Projector builds rep Objects under a Policy.
type Projector struct {
	policy Policy
}

func NewProjector(policy Policy) *Projector {
	return &Projector{policy: policy}
}

// Project returns the fields of rep that viewer may see, in schema order:
// email, first_name, last_name, fullname, profile, resource_uri.
func (p *Projector) Project(rep *model.Rep, viewer Viewer) Object {
	all := Object{
		{"email", rep.User.Email},
		{"first_name", rep.User.FirstName},
		{"last_name", rep.User.LastName},
		{"fullname", strings.TrimSpace(rep.User.FullName())},
		{"profile", p.projectProfile(rep, viewer)},
		{"resource_uri", RepURI(rep.User.ID)},
	}
	return p.visible(all, "", rep, viewer)
}

// ProjectAll projects every rep for the same viewer.
func (p *Projector) ProjectAll(reps []model.Rep, viewer Viewer) []Object {
	return lo.Map(reps, func(r model.Rep, _ int) Object {
		return p.Project(&r, viewer)
	})
}

func (p *Projector) projectProfile(rep *model.Rep, viewer Viewer) Object {
	pr := rep.Profile

	var mentor any
	if pr.MentorID != nil {
		mentor = RepURI(*pr.MentorID)
	}

	all := Object{
		{"resource_uri", ProfileURI(pr.ID)},
		{"display_name", opt(pr.DisplayName)},
		{"city", opt(pr.City)},
		{"region", opt(pr.Region)},
		{"country", opt(pr.Country)},
		{"lat", optFloat(pr.Lat)},
		{"lon", optFloat(pr.Lon)},
		{"irc_name", opt(pr.IRCName)},
		{"irc_channels", lo.Map(rep.Channels, func(c model.IRCChannel, _ int) string { return c.Name })},
		{"twitter_account", opt(pr.TwitterAccount)},
		{"mozillians_profile_url", pr.MozilliansURL},
		{"linkedin_url", opt(pr.LinkedInURL)},
		{"facebook_url", opt(pr.FacebookURL)},
		{"diaspora_url", opt(pr.DiasporaURL)},
		{"personal_website_url", opt(pr.PersonalWebsiteURL)},
		{"personal_blog_feed", opt(pr.PersonalBlogFeed)},
		{"private_email", opt(pr.PrivateEmail)},
		{"mentor", mentor},
		{"initial_council", pr.InitialCouncil},
	}
	return p.visible(all, "profile.", rep, viewer)
}

// visible drops the fields the policy denies. Each field's predicate is
// evaluated once.
func (p *Projector) visible(all Object, prefix string, rep *model.Rep, viewer Viewer) Object {
	return lo.Filter(all, func(f Field, _ int) bool {
		return p.policy.Allows(prefix+f.Name, viewer, rep)
	})
}

// opt unwraps a nullable column so the JSON shows the value or null.
func opt(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
