package rollup

import (
	"strings"
	"time"

	"github.com/garyjia/record-review/internal/domain/entity"
)

// Filter selects which records take part in a rollup. The engine itself
// treats filters as opaque predicates supplied by the caller.
type Filter func(rec *entity.Record) bool

// ByType keeps records of any of the given types
func ByType(types ...entity.RecordType) Filter {
	set := make(map[entity.RecordType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return func(rec *entity.Record) bool {
		return set[rec.Type]
	}
}

// ByStatus keeps records in any of the given statuses
func ByStatus(statuses ...entity.Status) Filter {
	set := make(map[entity.Status]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return func(rec *entity.Record) bool {
		return set[rec.Status]
	}
}

// ByBranch matches the branch case-insensitively
func ByBranch(branch string) Filter {
	return func(rec *entity.Record) bool {
		return strings.EqualFold(rec.Branch, branch)
	}
}

// ByRegion matches the region case-insensitively
func ByRegion(region string) Filter {
	return func(rec *entity.Record) bool {
		return strings.EqualFold(rec.Region, region)
	}
}

// CreatedBetween keeps records created in [from, to). A zero bound is open.
func CreatedBetween(from, to time.Time) Filter {
	return func(rec *entity.Record) bool {
		if !from.IsZero() && rec.CreatedAt.Before(from) {
			return false
		}
		if !to.IsZero() && !rec.CreatedAt.Before(to) {
			return false
		}
		return true
	}
}

func apply(records []*entity.Record, filters []Filter) []*entity.Record {
	out := make([]*entity.Record, 0, len(records))
next:
	for _, rec := range records {
		if rec == nil {
			continue
		}
		for _, f := range filters {
			if f != nil && !f(rec) {
				continue next
			}
		}
		out = append(out, rec)
	}
	return out
}
