// Package rollup aggregates record snapshots into dashboard figures: grouped
// counts and sums, lifecycle super-groups, budget health tiers and due dates.
package rollup

import (
	"errors"
	"fmt"
	"sort"

	"github.com/garyjia/record-review/internal/domain/classification"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ErrUnknownGroupBy is returned for an unsupported grouping dimension
var ErrUnknownGroupBy = errors.New("unknown group by")

// GroupBy is the dimension records are grouped on
type GroupBy string

const (
	GroupByStatus     GroupBy = "status"
	GroupByCategory   GroupBy = "category"
	GroupBySuperGroup GroupBy = "super_group"
	GroupByRecordType GroupBy = "record_type"
)

// ParseGroupBy validates a grouping dimension. Empty means status.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(s); g {
	case "":
		return GroupByStatus, nil
	case GroupByStatus, GroupByCategory, GroupBySuperGroup, GroupByRecordType:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGroupBy, s)
	}
}

// Group is one bucket of a rollup
type Group struct {
	Key   string          `json:"key"`
	Count int             `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
}

// Result is safe to serialize directly. Groups are sorted by key; super-groups
// follow the fixed lifecycle order.
type Result struct {
	GroupBy     GroupBy         `json:"group_by"`
	Total       int             `json:"total"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Groups      []Group         `json:"groups"`
	SuperGroups []Group         `json:"super_groups"`
}

// Compute aggregates the records that pass every filter in a single pass.
// The sum of group counts always equals Total.
func Compute(records []*entity.Record, groupBy GroupBy, filters ...Filter) (Result, error) {
	if _, err := ParseGroupBy(string(groupBy)); err != nil {
		return Result{}, err
	}
	if groupBy == "" {
		groupBy = GroupByStatus
	}

	groups := make(map[string]*Group)
	supers := make(map[SuperGroup]*Group)
	res := Result{GroupBy: groupBy, TotalValue: decimal.Zero}

	for _, rec := range apply(records, filters) {
		value := rec.Value()
		sg := SuperGroupOf(rec.Type, rec.Status)

		accumulate(groups, keyOf(rec, groupBy, sg), value)
		accumulateSuper(supers, sg, value)

		res.Total++
		res.TotalValue = res.TotalValue.Add(value)
	}

	res.Groups = make([]Group, 0, len(groups))
	for _, g := range groups {
		res.Groups = append(res.Groups, *g)
	}
	sort.Slice(res.Groups, func(i, j int) bool {
		return res.Groups[i].Key < res.Groups[j].Key
	})

	res.SuperGroups = make([]Group, 0, len(supers))
	for _, sg := range superGroupOrder {
		if g, ok := supers[sg]; ok {
			res.SuperGroups = append(res.SuperGroups, *g)
		}
	}

	return res, nil
}

func keyOf(rec *entity.Record, groupBy GroupBy, sg SuperGroup) string {
	switch groupBy {
	case GroupByCategory:
		return string(classification.Resolve(rec.Category, rec.Code))
	case GroupBySuperGroup:
		return string(sg)
	case GroupByRecordType:
		return string(rec.Type)
	default:
		return string(rec.Status)
	}
}

func accumulate(groups map[string]*Group, key string, value decimal.Decimal) {
	g, ok := groups[key]
	if !ok {
		g = &Group{Key: key, Sum: decimal.Zero}
		groups[key] = g
	}
	g.Count++
	g.Sum = g.Sum.Add(value)
}

func accumulateSuper(supers map[SuperGroup]*Group, sg SuperGroup, value decimal.Decimal) {
	g, ok := supers[sg]
	if !ok {
		g = &Group{Key: string(sg), Sum: decimal.Zero}
		supers[sg] = g
	}
	g.Count++
	g.Sum = g.Sum.Add(value)
}
