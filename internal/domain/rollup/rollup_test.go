package rollup

import (
	"fmt"
	"testing"
	"time"

	"github.com/garyjia/record-review/internal/domain/classification"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

type opt func(*entity.Record)

func value(v string) opt {
	return func(r *entity.Record) {
		d := decimal.RequireFromString(v)
		r.MonetaryValue = &d
	}
}

func code(c string) opt     { return func(r *entity.Record) { r.Code = c } }
func branch(b string) opt   { return func(r *entity.Record) { r.Branch = b } }
func category(c string) opt { return func(r *entity.Record) { r.Category = c } }

func due(d time.Duration) opt {
	return func(r *entity.Record) {
		t := day0.Add(d)
		r.DueAt = &t
	}
}

var seq int

func rec(t entity.RecordType, s entity.Status, opts ...opt) *entity.Record {
	seq++
	r := entity.NewDraft(fmt.Sprintf("r-%d", seq), t, "owner", day0)
	r.Status = s
	for _, o := range opts {
		o(r)
	}
	return r
}

func fixture() []*entity.Record {
	return []*entity.Record{
		rec(entity.RecordTypeTender, entity.StatusSubmitted, value("100"), branch("north")),
		rec(entity.RecordTypeTender, entity.StatusUnderReview, value("250.50"), branch("south")),
		rec(entity.RecordTypeTender, entity.StatusApproved, value("1000"), branch("north")),
		rec(entity.RecordTypeTender, entity.StatusLost, value("80"), branch("north")),
		rec(entity.RecordTypeTrip, entity.StatusVerified),
		rec(entity.RecordTypeTrip, entity.StatusDraft),
		rec(entity.RecordTypeTrip, entity.StatusCancelled),
		rec(entity.RecordTypeExpenditure, entity.StatusApproved, value("45.25"), code("4410")),
		rec(entity.RecordTypeExpenditure, entity.StatusReopened, value("12"), code("4210")),
	}
}

func counts(groups []Group) map[string]int {
	out := make(map[string]int, len(groups))
	for _, g := range groups {
		out[g.Key] = g.Count
	}
	return out
}

func TestCompute_ByStatus(t *testing.T) {
	res, err := Compute(fixture(), GroupByStatus)
	require.NoError(t, err)

	assert.Equal(t, 9, res.Total)
	assert.True(t, decimal.RequireFromString("1487.75").Equal(res.TotalValue), res.TotalValue.String())
	assert.Equal(t, map[string]int{
		"APPROVED": 2, "CANCELLED": 1, "DRAFT": 1, "LOST": 1, "REOPENED": 1,
		"SUBMITTED": 1, "UNDER_REVIEW": 1, "VERIFIED": 1,
	}, counts(res.Groups))

	for i := 1; i < len(res.Groups); i++ {
		assert.Less(t, res.Groups[i-1].Key, res.Groups[i].Key)
	}
}

func TestCompute_SuperGroups(t *testing.T) {
	res, err := Compute(fixture(), GroupBySuperGroup)
	require.NoError(t, err)

	want := map[string]int{"draft": 2, "in_progress": 3, "closed_positive": 2, "closed_negative": 2}
	assert.Equal(t, want, counts(res.SuperGroups))
	assert.Equal(t, want, counts(res.Groups))

	keys := make([]string, 0, len(res.SuperGroups))
	for _, g := range res.SuperGroups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"draft", "in_progress", "closed_positive", "closed_negative"}, keys)
}

func TestCompute_Conservation(t *testing.T) {
	records := fixture()
	for _, g := range []GroupBy{GroupByStatus, GroupByCategory, GroupBySuperGroup, GroupByRecordType} {
		t.Run(string(g), func(t *testing.T) {
			res, err := Compute(records, g)
			require.NoError(t, err)

			total, superTotal := 0, 0
			sum := decimal.Zero
			for _, grp := range res.Groups {
				total += grp.Count
				sum = sum.Add(grp.Sum)
			}
			for _, grp := range res.SuperGroups {
				superTotal += grp.Count
			}
			assert.Equal(t, len(records), total)
			assert.Equal(t, len(records), superTotal)
			assert.True(t, sum.Equal(res.TotalValue))
		})
	}
}

func TestCompute_ByCategory(t *testing.T) {
	records := []*entity.Record{
		rec(entity.RecordTypeExpenditure, entity.StatusApproved, value("10"), code("4410")),
		rec(entity.RecordTypeExpenditure, entity.StatusApproved, value("5"), code("4499")),
		rec(entity.RecordTypeExpenditure, entity.StatusSubmitted, value("7"), category("travel")),
		rec(entity.RecordTypeExpenditure, entity.StatusSubmitted, value("1"), code("bogus")),
	}

	res, err := Compute(records, GroupByCategory)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"MEAL": 2, "TRAVEL": 1, "UNCLASSIFIED": 1}, counts(res.Groups))
}

func TestCompute_Filters(t *testing.T) {
	records := fixture()
	records[0].CreatedAt = day0.AddDate(0, 0, 5)

	res, err := Compute(records, GroupByStatus, ByType(entity.RecordTypeTender), ByBranch("NORTH"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)

	res, err = Compute(records, GroupByStatus, ByType(entity.RecordTypeTender), CreatedBetween(day0.AddDate(0, 0, 1), time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	res, err = Compute(append(records, nil), GroupByStatus)
	require.NoError(t, err)
	assert.Equal(t, len(records), res.Total, "nil records are skipped")
}

func TestCompute_EmptyInput(t *testing.T) {
	res, err := Compute(nil, "")
	require.NoError(t, err)
	assert.Equal(t, GroupByStatus, res.GroupBy)
	assert.Zero(t, res.Total)
	assert.NotNil(t, res.Groups)
	assert.NotNil(t, res.SuperGroups)
}

func TestCompute_UnknownGroupBy(t *testing.T) {
	_, err := Compute(fixture(), "branch")
	assert.ErrorIs(t, err, ErrUnknownGroupBy)
}

func TestSuperGroupOf(t *testing.T) {
	assert.Equal(t, SuperGroupClosedNegative, SuperGroupOf(entity.RecordTypeTender, entity.StatusLost))
	assert.Equal(t, SuperGroupInProgress, SuperGroupOf(entity.RecordTypeTrip, entity.StatusVerified))
	assert.Equal(t, SuperGroupOther, SuperGroupOf(entity.RecordTypeTrip, entity.StatusLost))
	assert.Equal(t, SuperGroupOther, SuperGroupOf("INVOICE", entity.StatusDraft))
}

func TestTierFor_Boundaries(t *testing.T) {
	ceiling := decimal.NewFromInt(1_000_000)

	tests := []struct {
		spent string
		want  Tier
	}{
		{"0", TierSafe},
		{"699999", TierSafe},
		{"700000", TierWarning},
		{"700001", TierWarning},
		{"900000", TierLow},
		{"910000", TierLow},
		{"999999.99", TierLow},
		{"1000000", TierOverBudget},
		{"1200000", TierOverBudget},
	}

	for _, tt := range tests {
		t.Run(tt.spent, func(t *testing.T) {
			assert.Equal(t, tt.want, TierFor(ceiling, decimal.RequireFromString(tt.spent)))
		})
	}
}

func TestBudgetTiers(t *testing.T) {
	records := []*entity.Record{
		rec(entity.RecordTypeExpenditure, entity.StatusApproved, value("600000"), code("4210")),
		rec(entity.RecordTypeExpenditure, entity.StatusApproved, value("310000"), code("4250")),
		rec(entity.RecordTypeExpenditure, entity.StatusSubmitted, value("500000"), code("4210")), // not yet spent
		rec(entity.RecordTypeExpenditure, entity.StatusApproved, value("700001"), code("4410")),
		rec(entity.RecordTypeExpenditure, entity.StatusApproved, value("50"), code("4810")),
	}
	ceilings := map[classification.Category]decimal.Decimal{
		classification.CategoryTravel:         decimal.NewFromInt(1_000_000),
		classification.CategoryMeal:           decimal.NewFromInt(1_000_000),
		classification.CategoryOfficeSupplies: decimal.Zero,
		classification.CategoryTraining:       decimal.NewFromInt(20_000),
	}

	lines := BudgetTiers(records, ceilings)
	require.Len(t, lines, 3, "zero ceiling is excluded")

	assert.Equal(t, classification.CategoryTravel, lines[0].Category)
	assert.Equal(t, TierLow, lines[0].Tier)
	assert.True(t, decimal.NewFromInt(90_000).Equal(lines[0].Remaining))
	assert.Equal(t, "差旅费", lines[0].DisplayName)

	assert.Equal(t, classification.CategoryMeal, lines[1].Category)
	assert.Equal(t, TierWarning, lines[1].Tier)

	assert.Equal(t, classification.CategoryTraining, lines[2].Category)
	assert.Equal(t, TierSafe, lines[2].Tier)
	assert.True(t, lines[2].Spent.IsZero())
}

func TestBudgetTiers_OverBudget(t *testing.T) {
	records := []*entity.Record{
		rec(entity.RecordTypeExpenditure, entity.StatusApproved, value("1000000"), code("4610")),
	}
	lines := BudgetTiers(records, map[classification.Category]decimal.Decimal{
		classification.CategoryEntertainment: decimal.NewFromInt(1_000_000),
	})
	require.Len(t, lines, 1)
	assert.Equal(t, TierOverBudget, lines[0].Tier)
}

func TestBudgetTiers_FilterSliceNotMutated(t *testing.T) {
	filters := make([]Filter, 1, 4)
	filters[0] = ByBranch("north")
	BudgetTiers(nil, nil, filters...)
	assert.Nil(t, filters[:cap(filters)][1])
}

func TestDueSoon(t *testing.T) {
	records := []*entity.Record{
		rec(entity.RecordTypeTrip, entity.StatusSubmitted, due(48*time.Hour)),
		rec(entity.RecordTypeTrip, entity.StatusSubmitted, due(-time.Hour)),
		rec(entity.RecordTypeTrip, entity.StatusApproved, due(time.Hour)),
		rec(entity.RecordTypeReport, entity.StatusDraft, due(10*24*time.Hour)),
		rec(entity.RecordTypeReport, entity.StatusDraft),
	}

	items := DueSoon(records, day0, 7*24*time.Hour)
	require.Len(t, items, 2)
	assert.True(t, items[0].Overdue)
	assert.Equal(t, records[1].ID, items[0].RecordID)
	assert.False(t, items[1].Overdue)
	assert.Equal(t, records[0].ID, items[1].RecordID)

	assert.Empty(t, DueSoon(records, day0, 7*24*time.Hour, ByType(entity.RecordTypeTender)))
}

func TestParseGroupBy(t *testing.T) {
	g, err := ParseGroupBy("category")
	require.NoError(t, err)
	assert.Equal(t, GroupByCategory, g)

	g, err = ParseGroupBy("")
	require.NoError(t, err)
	assert.Equal(t, GroupByStatus, g)

	_, err = ParseGroupBy("region")
	assert.ErrorIs(t, err, ErrUnknownGroupBy)
}
