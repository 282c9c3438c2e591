package resource

import (
	"maps"
	"slices"
)

// Filtering levels.
//
//	FilterAll       every lookup on the field itself
//	FilterRelated   FilterAll, plus one hop into the related resource
const (
	FilterAll     = 1
	FilterRelated = 2
)

// DefaultLimit is the page size when ?limit= is absent; MaxLimit caps it.
const (
	DefaultLimit = 20
	MaxLimit     = 1000
)

// FieldSchema describes one field of the resource.
type FieldSchema struct {
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	Readonly   bool   `json:"readonly"`
	HelpText   string `json:"help_text"`
	Restricted bool   `json:"restricted"`
}

// Schema is the self-description served at /api/v1/rep/schema/.
type Schema struct {
	AllowedDetailHTTPMethods []string               `json:"allowed_detail_http_methods"`
	AllowedListHTTPMethods   []string               `json:"allowed_list_http_methods"`
	DefaultFormat            string                 `json:"default_format"`
	DefaultLimit             int                    `json:"default_limit"`
	Fields                   map[string]FieldSchema `json:"fields"`
	Filtering                map[string]int         `json:"filtering"`
}

// FieldNames returns the field names sorted, matching the JSON output.
func (s Schema) FieldNames() []string {
	return slices.Sorted(maps.Keys(s.Fields))
}

// relatedFilterFields lists, per FilterRelated field, which fields of the
// related resource can be filtered on.
var relatedFilterFields = map[string][]string{
	"profile": {"display_name", "city", "region", "country", "irc_name"},
}

// lookups are the accepted "__<lookup>" suffixes.
var lookups = []string{"exact", "iexact", "icontains", "istartswith"}

// RepSchema builds the rep schema. restricted flags come from policy so the
// schema cannot claim a field is public while the projection hides it.
//
// A fresh value is returned on each call; callers may not mutate a shared
// schema by accident.
func RepSchema(policy Policy) Schema {
	field := func(typ string, nullable bool, name, help string) FieldSchema {
		return FieldSchema{
			Type:       typ,
			Nullable:   nullable,
			Readonly:   true,
			HelpText:   help,
			Restricted: policy.Restricted(name),
		}
	}

	return Schema{
		AllowedDetailHTTPMethods: []string{"get"},
		AllowedListHTTPMethods:   []string{"get"},
		DefaultFormat:            "application/json",
		DefaultLimit:             DefaultLimit,
		Fields: map[string]FieldSchema{
			"email":        field("string", false, "email", "Unicode string data. Ex: \"Hello World\""),
			"first_name":   field("string", false, "first_name", "Unicode string data. Ex: \"Hello World\""),
			"last_name":    field("string", false, "last_name", "Unicode string data. Ex: \"Hello World\""),
			"fullname":     field("string", false, "fullname", "First and last name joined by a space."),
			"profile":      field("related", false, "profile", "A single related resource. Can be either a URI or set of nested resource data."),
			"resource_uri": field("string", false, "resource_uri", "Unicode string data. Ex: \"Hello World\""),
		},
		Filtering: map[string]int{
			"first_name": FilterAll,
			"last_name":  FilterAll,
			"profile":    FilterRelated,
		},
	}
}
