package model

import (
	"slices"
	"strings"
	"time"
)

// DefaultPageSize is used when a caller asks for a non-positive page size.
const DefaultPageSize = 20

// MaxPageSize is the largest page the transports hand out.
const MaxPageSize = 200

// Filter narrows a catalog query. Zero values mean "no constraint".
type Filter struct {
	Sectors    []string `json:"sectors,omitempty"`
	Type       string   `json:"type,omitempty"`
	Locations  []string `json:"locations,omitempty"`
	Experience string   `json:"experience,omitempty"`
	Search     string   `json:"search,omitempty"`
	Featured   *bool    `json:"featured,omitempty"`
	ActiveOnly bool     `json:"activeOnly,omitempty"`

	// CreatedBefore keeps only postings created strictly before it.
	CreatedBefore time.Time `json:"-"`
}

// IsZero reports whether f places no constraint at all.
func (f Filter) IsZero() bool {
	return len(f.Sectors) == 0 && f.Type == "" && len(f.Locations) == 0 &&
		f.Experience == "" && f.Search == "" && f.Featured == nil &&
		!f.ActiveOnly && f.CreatedBefore.IsZero()
}

// Matches applies every constraint of f to r.
func (f Filter) Matches(r JobRecord) bool {
	if f.ActiveOnly && !r.IsActive {
		return false
	}
	if len(f.Sectors) > 0 && !slices.Contains(f.Sectors, r.Sector) {
		return false
	}
	if f.Type != "" && f.Type != r.Type {
		return false
	}
	if len(f.Locations) > 0 && !slices.Contains(f.Locations, r.Location) {
		return false
	}
	if f.Experience != "" && f.Experience != r.Experience {
		return false
	}
	if f.Featured != nil && *f.Featured != r.Featured {
		return false
	}
	if !f.CreatedBefore.IsZero() && !r.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return f.MatchesSearch(r)
}

// MatchesSearch is the case-insensitive substring match on title, company
// and description. The remote store applies it after fetching.
func (f Filter) MatchesSearch(r JobRecord) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(r.Title), needle) ||
		strings.Contains(strings.ToLower(r.Company), needle) ||
		strings.Contains(strings.ToLower(r.Description), needle)
}

// SortNewestFirst orders records by CreatedAt descending, ties broken by ID
// so the order is stable across stores.
func SortNewestFirst(recs []JobRecord) {
	slices.SortStableFunc(recs, func(a, b JobRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}

// Source tells the caller which store answered a query.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

// Page is one slice of a filtered, newest-first result.
type Page struct {
	Jobs       []JobRecord `json:"jobs"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
	Source     Source      `json:"source"`
}

// Paginate slices an already filtered and sorted list. page is 1-based.
func Paginate(recs []JobRecord, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	total := len(recs)

	// (page-1)*pageSize can overflow; pages past the end are empty.
	start := total
	if page-1 <= total/pageSize {
		start = min((page-1)*pageSize, total)
	}
	end := start + min(pageSize, total-start)

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	jobs := make([]JobRecord, end-start)
	copy(jobs, recs[start:end])
	return Page{
		Jobs:       jobs,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Select filters, sorts and paginates an in-memory record list. It never
// mutates recs.
func Select(recs []JobRecord, f Filter, page, pageSize int) Page {
	matched := make([]JobRecord, 0, len(recs))
	for _, r := range recs {
		if f.Matches(r) {
			matched = append(matched, r)
		}
	}
	SortNewestFirst(matched)
	return Paginate(matched, page, pageSize)
}
