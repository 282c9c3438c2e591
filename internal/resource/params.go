package resource

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/sakif/remo/internal/apperror"
	"github.com/sakif/remo/internal/repository"
)

// Format is an output representation of the list endpoint.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Export reports whether the format is a file download.
func (f Format) Export() bool {
	return f == FormatCSV || f == FormatXLSX
}

// Reserved query parameters; every other parameter is a candidate filter.
const (
	ParamQuery  = "query"
	ParamLimit  = "limit"
	ParamOffset = "offset"
	ParamFormat = "format"
)

// ListParams is a parsed list request.
type ListParams struct {
	Filter repository.RepFilter
	Format Format
}

// ParseListParams reads the list query string against schema.
//
// Filters look like <field>[__<related>][__<lookup>]=<value>:
//
//	first_name=Anna                     exact match
//	last_name__icontains=smi            case-insensitive substring
//	profile__display_name__iexact=zig   one hop into the profile
//
// A parameter naming a resource field that does not allow filtering (email)
// or a lookup the field does not support is a validation error. Parameters
// that name no field at all are ignored, so cache-busting params such as
// "_=1699999" do not break clients.
func ParseListParams(values url.Values, schema Schema) (ListParams, error) {
	params := ListParams{
		Filter: repository.RepFilter{
			Query: strings.TrimSpace(values.Get(ParamQuery)),
			Limit: schema.DefaultLimit,
		},
		Format: FormatJSON,
	}

	if raw := values.Get(ParamFormat); raw != "" {
		switch f := Format(strings.ToLower(raw)); f {
		case FormatJSON, FormatCSV, FormatXLSX:
			params.Format = f
		default:
			return ListParams{}, apperror.ValidationFailed(ParamFormat,
				fmt.Sprintf("unsupported format %q: use json, csv or xlsx", raw))
		}
	}

	if raw := values.Get(ParamLimit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return ListParams{}, apperror.ValidationFailed(ParamLimit,
				fmt.Sprintf("invalid limit %q: must be a non-negative integer", raw))
		}
		// 0 means "everything"; anything else is capped.
		params.Filter.Limit = min(limit, MaxLimit)
	}

	if raw := values.Get(ParamOffset); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return ListParams{}, apperror.ValidationFailed(ParamOffset,
				fmt.Sprintf("invalid offset %q: must be a non-negative integer", raw))
		}
		params.Filter.Offset = offset
	}

	// Sorted so the same query string always yields the same filter order
	// (and the same error when several filters are bad).
	for _, key := range slices.Sorted(maps.Keys(values)) {
		switch key {
		case ParamQuery, ParamLimit, ParamOffset, ParamFormat:
			continue
		}
		ff, ok, err := parseFilter(key, values.Get(key), schema)
		if err != nil {
			return ListParams{}, err
		}
		if ok {
			params.Filter.Fields = append(params.Filter.Fields, ff)
		}
	}

	// Exports are never paginated.
	if params.Format.Export() {
		params.Filter.Limit = 0
		params.Filter.Offset = 0
	}

	return params, nil
}

// parseFilter turns one query parameter into a FieldFilter. ok is false
// when the parameter does not name a resource field.
func parseFilter(key, value string, schema Schema) (repository.FieldFilter, bool, error) {
	bits := strings.Split(key, "__")
	name := bits[0]

	if _, isField := schema.Fields[name]; !isField {
		return repository.FieldFilter{}, false, nil
	}

	level, allowed := schema.Filtering[name]
	if !allowed {
		return repository.FieldFilter{}, false, apperror.ValidationFailed(key,
			fmt.Sprintf("The '%s' field does not allow filtering.", name))
	}

	lookup := repository.LookupExact
	if last := bits[len(bits)-1]; len(bits) > 1 && slices.Contains(lookups, last) {
		lookup = last
		bits = bits[:len(bits)-1]
	}

	switch {
	case len(bits) == 1 && level == FilterAll:
		return repository.FieldFilter{Field: name, Lookup: lookup, Value: value}, true, nil

	case len(bits) == 2 && level == FilterRelated:
		if !slices.Contains(relatedFilterFields[name], bits[1]) {
			return repository.FieldFilter{}, false, apperror.ValidationFailed(key,
				fmt.Sprintf("The '%s' field does not allow filtering on '%s'.", name, bits[1]))
		}
		return repository.FieldFilter{Field: name + "__" + bits[1], Lookup: lookup, Value: value}, true, nil

	case level == FilterRelated:
		return repository.FieldFilter{}, false, apperror.ValidationFailed(key,
			fmt.Sprintf("Filtering on '%s' requires exactly one related field, e.g. %s__display_name.", name, name))

	default:
		return repository.FieldFilter{}, false, apperror.ValidationFailed(key,
			fmt.Sprintf("Lookups are not allowed more than one level deep on the '%s' field.", name))
	}
}

// Meta is the paging block of a list response.
type Meta struct {
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	TotalCount int     `json:"total_count"`
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
}

// PageMeta computes the paging block. next and previous keep every other
// query parameter of the request.
func PageMeta(path string, values url.Values, filter repository.RepFilter, total int) Meta {
	meta := Meta{Limit: filter.Limit, Offset: filter.Offset, TotalCount: total}
	if filter.Limit == 0 {
		return meta
	}

	link := func(offset int) *string {
		v := maps.Clone(values)
		if v == nil {
			v = url.Values{}
		}
		v.Set(ParamLimit, strconv.Itoa(filter.Limit))
		v.Set(ParamOffset, strconv.Itoa(offset))
		s := path + "?" + v.Encode()
		return &s
	}

	if filter.Offset+filter.Limit < total {
		meta.Next = link(filter.Offset + filter.Limit)
	}
	if filter.Offset > 0 {
		meta.Previous = link(max(filter.Offset-filter.Limit, 0))
	}
	return meta
}
