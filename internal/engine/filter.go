package engine

import (
	"sort"
	"strings"

	"fmcg-dashboard/internal/models"
)

// Selection holds the three optional filter sets. An empty set places no
// constraint on its dimension. A Selection is immutable once built.
type Selection struct {
	skus       map[string]struct{}
	categories map[string]struct{}
	years      map[int32]struct{}
}

// NewSelection builds a Selection, dropping blank values and duplicates.
func NewSelection(skus, categories []string, years []int) Selection {
	sel := Selection{
		skus:       stringSet(skus),
		categories: stringSet(categories),
		years:      make(map[int32]struct{}, len(years)),
	}
	for _, y := range years {
		sel.years[int32(y)] = struct{}{}
	}
	return sel
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// IsEmpty reports whether no dimension is constrained.
func (s Selection) IsEmpty() bool {
	return len(s.skus) == 0 && len(s.categories) == 0 && len(s.years) == 0
}

// Apply returns the records of ds passing every non-empty dimension of sel,
// in their original order. Dimensions are AND-combined; values within a
// dimension are OR-combined. ds is not modified.
func Apply(ds *Dataset, sel Selection) *Dataset {
	if ds == nil || sel.IsEmpty() {
		return ds
	}

	// Resolve string sets to dictionary IDs once
	allowSKU := allowedIDs(ds.SKUDict, sel.skus)
	allowCat := allowedIDs(ds.CategoryDict, sel.categories)

	n := ds.Len()
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if allowSKU != nil && !allowSKU[ds.SKUIDs[i]] {
			continue
		}
		if allowCat != nil && !allowCat[ds.CategoryIDs[i]] {
			continue
		}
		if len(sel.years) > 0 {
			if _, ok := sel.years[ds.Years[i]]; !ok {
				continue
			}
		}
		rows = append(rows, i)
	}
	return ds.take(rows)
}

// allowedIDs returns a lookup table by dictionary ID, or nil when the set is
// empty.
func allowedIDs(dict []string, set map[string]struct{}) []bool {
	if len(set) == 0 {
		return nil
	}
	allow := make([]bool, len(dict))
	for id, s := range dict {
		_, allow[id] = set[s]
	}
	return allow
}

// Options lists the values a caller can select: SKUs and categories in order
// of first appearance, years ascending.
func Options(ds *Dataset) models.Options {
	opts := models.Options{
		SKUs:       make([]string, 0),
		Categories: make([]string, 0),
		Years:      make([]int, 0),
	}
	if ds.Len() == 0 {
		return opts
	}

	seenSKU := make([]bool, len(ds.SKUDict))
	seenCat := make([]bool, len(ds.CategoryDict))
	seenYear := make(map[int32]bool)
	for i := 0; i < ds.Len(); i++ {
		if sid := ds.SKUIDs[i]; !seenSKU[sid] {
			seenSKU[sid] = true
			opts.SKUs = append(opts.SKUs, ds.SKUDict[sid])
		}
		if cid := ds.CategoryIDs[i]; !seenCat[cid] {
			seenCat[cid] = true
			opts.Categories = append(opts.Categories, ds.CategoryDict[cid])
		}
		if y := ds.Years[i]; !seenYear[y] {
			seenYear[y] = true
			opts.Years = append(opts.Years, int(y))
		}
	}
	sort.Ints(opts.Years)
	return opts
}
