package rollup

import (
	"github.com/garyjia/record-review/internal/domain/classification"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Tier is the health of a category budget
type Tier string

const (
	TierOverBudget Tier = "OVER_BUDGET"
	TierLow        Tier = "LOW"
	TierWarning    Tier = "WARNING"
	TierSafe       Tier = "SAFE"
)

var (
	lowRatio     = decimal.New(1, -1)
	warningRatio = decimal.New(3, -1)
)

// BudgetLine is the budget position of one category
type BudgetLine struct {
	Category    classification.Category `json:"category"`
	DisplayName string                  `json:"display_name"`
	Ceiling     decimal.Decimal         `json:"ceiling"`
	Spent       decimal.Decimal         `json:"spent"`
	Remaining   decimal.Decimal         `json:"remaining"`
	Tier        Tier                    `json:"tier"`
}

// TierFor classifies remaining budget against its ceiling. The ceiling must be positive.
func TierFor(ceiling, spent decimal.Decimal) Tier {
	remaining := ceiling.Sub(spent)
	switch {
	case remaining.LessThanOrEqual(decimal.Zero):
		return TierOverBudget
	case remaining.LessThanOrEqual(ceiling.Mul(lowRatio)):
		return TierLow
	case remaining.LessThanOrEqual(ceiling.Mul(warningRatio)):
		return TierWarning
	default:
		return TierSafe
	}
}

// BudgetTiers sums approved spend per category and tiers it against the ceilings.
// Categories with a ceiling of zero or less have no budget and are left out.
func BudgetTiers(records []*entity.Record, ceilings map[classification.Category]decimal.Decimal, filters ...Filter) []BudgetLine {
	approved := make([]Filter, 0, len(filters)+1)
	approved = append(approved, filters...)
	approved = append(approved, ByStatus(entity.StatusApproved))

	spent := make(map[classification.Category]decimal.Decimal)
	for _, rec := range apply(records, approved) {
		c := classification.Resolve(rec.Category, rec.Code)
		spent[c] = spent[c].Add(rec.Value())
	}

	order := append(classification.Categories(), classification.CategoryUnclassified)
	lines := make([]BudgetLine, 0, len(ceilings))
	for _, c := range order {
		ceiling, ok := ceilings[c]
		if !ok || !ceiling.IsPositive() {
			continue
		}
		s := spent[c]
		lines = append(lines, BudgetLine{
			Category:    c,
			DisplayName: classification.DisplayName(c),
			Ceiling:     ceiling,
			Spent:       s,
			Remaining:   ceiling.Sub(s),
			Tier:        TierFor(ceiling, s),
		})
	}
	return lines
}
