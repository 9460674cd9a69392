// Package search assembles search-service query parameters.
package search

import (
	"fmt"

	"dario.cat/mergo"
)

// DefaultPageSize is used when a builder is created without a page size.
const DefaultPageSize = 3

// reservedKeys are passthrough keys that would override fixed or typed fields.
var reservedKeys = map[string]struct{}{
	"environment_id":         {},
	"environmentId":          {},
	"collection_id":          {},
	"collectionId":           {},
	"passages":               {},
	"natural_language_query": {},
	"naturalLanguageQuery":   {},
	"count":                  {},
	"passages.count":         {},
	"passagesCount":          {},
}

// Identity pins every query to one deployment's environment and collection.
type Identity struct {
	EnvironmentID string
	CollectionID  string
}

// Overrides is what a caller may set on a query.
// Non-positive counts mean "not set".
type Overrides struct {
	Query         string
	Count         int
	PassagesCount int
	Offset        int
	Highlight     bool
	Filter        string
	// Extra holds additional flags passed through to the service as-is.
	Extra map[string]string
}

// Params is a fully assembled search request.
type Params struct {
	NaturalLanguageQuery string            `json:"naturalLanguageQuery"`
	Count                int               `json:"count"`
	PassagesCount        int               `json:"passagesCount"`
	Passages             bool              `json:"passages"`
	EnvironmentID        string            `json:"environmentId"`
	CollectionID         string            `json:"collectionId"`
	Offset               int               `json:"offset,omitempty"`
	Highlight            bool              `json:"highlight,omitempty"`
	Filter               string            `json:"filter,omitempty"`
	Extra                map[string]string `json:"extra,omitempty"`
}

// Builder merges caller overrides with deployment defaults.
type Builder struct {
	identity Identity
	pageSize int
}

// NewBuilder creates a builder. pageSize <= 0 falls back to DefaultPageSize.
func NewBuilder(identity Identity, pageSize int) *Builder {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Builder{identity: identity, pageSize: pageSize}
}

// PageSize returns the default count used when the caller sets none.
func (b *Builder) PageSize() int { return b.pageSize }

// Build assembles the request. Caller input never makes it fail: absent
// fields take the builder defaults. Identity and the passages flag come only
// from the builder. The error reports a failed defaults merge.
func (b *Builder) Build(o Overrides) (Params, error) {
	p := Params{
		NaturalLanguageQuery: o.Query,
		Highlight:            o.Highlight,
		Filter:               o.Filter,
		Extra:                passthrough(o.Extra),
	}
	if o.Count > 0 {
		p.Count = o.Count
	}
	if o.PassagesCount > 0 {
		p.PassagesCount = o.PassagesCount
	}
	if o.Offset > 0 {
		p.Offset = o.Offset
	}

	if err := mergo.Merge(&p, b.defaults(p.Count)); err != nil {
		return Params{}, fmt.Errorf("merge search defaults: %w", err)
	}
	return p, nil
}

// defaults are the builder-owned fields. Passages count follows the effective count.
func (b *Builder) defaults(count int) Params {
	if count <= 0 {
		count = b.pageSize
	}
	return Params{
		Count:         count,
		PassagesCount: count,
		Passages:      true,
		EnvironmentID: b.identity.EnvironmentID,
		CollectionID:  b.identity.CollectionID,
	}
}

func passthrough(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
