// Package classification maps numeric accounting codes to spending categories.
//
// A code belongs to the band of its hundreds: 4210 and 4299 are both TRAVEL.
// There is exactly one band table; every caller goes through it.
package classification

import (
	"strconv"
	"strings"
)

// Category is a spending category derived from an accounting code
type Category string

const (
	CategoryPersonnel            Category = "PERSONNEL"
	CategoryTravel               Category = "TRAVEL"
	CategoryAccommodation        Category = "ACCOMMODATION"
	CategoryMeal                 Category = "MEAL"
	CategoryTransportation       Category = "TRANSPORTATION"
	CategoryEntertainment        Category = "ENTERTAINMENT"
	CategoryEquipment            Category = "EQUIPMENT"
	CategoryOfficeSupplies       Category = "OFFICE_SUPPLIES"
	CategoryCommunication        Category = "COMMUNICATION"
	CategoryTraining             Category = "TRAINING"
	CategoryTeamBuilding         Category = "TEAM_BUILDING"
	CategoryProfessionalServices Category = "PROFESSIONAL_SERVICES"
	CategoryMaintenance          Category = "MAINTENANCE"

	// CategoryUnclassified is the fallback for codes outside every band. It is a
	// category like any other, never an error.
	CategoryUnclassified Category = "UNCLASSIFIED"
)

type band struct {
	base     int
	category Category
	name     string // 会计科目
}

var bands = []band{
	{4100, CategoryPersonnel, "人工费"},
	{4200, CategoryTravel, "差旅费"},
	{4300, CategoryAccommodation, "住宿费"},
	{4400, CategoryMeal, "餐费"},
	{4500, CategoryTransportation, "交通费"},
	{4600, CategoryEntertainment, "业务招待费"},
	{4700, CategoryEquipment, "设备费"},
	{4800, CategoryOfficeSupplies, "办公费"},
	{4900, CategoryCommunication, "通讯费"},
	{5100, CategoryTraining, "培训费"},
	{5200, CategoryTeamBuilding, "福利费"},
	{5300, CategoryProfessionalServices, "咨询服务费"},
	{5400, CategoryMaintenance, "维修费"},
}

var (
	byBase     = make(map[int]band, len(bands))
	byCategory = make(map[Category]band, len(bands))
)

func init() {
	for _, b := range bands {
		byBase[b.base] = b
		byCategory[b.category] = b
	}
}

// ClassifyCode returns the category of an integer code. Total over all ints.
func ClassifyCode(code int) Category {
	if code < 0 {
		return CategoryUnclassified
	}
	if b, ok := byBase[code/100*100]; ok {
		return b.category
	}
	return CategoryUnclassified
}

// Classify parses a textual code and classifies it. Malformed input is UNCLASSIFIED.
func Classify(code string) Category {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return CategoryUnclassified
	}
	return ClassifyCode(n)
}

// CategoryToCode returns the base code of a category's band.
// ClassifyCode(CategoryToCode(c)) == c for every category except UNCLASSIFIED.
func CategoryToCode(c Category) (int, bool) {
	b, ok := byCategory[c]
	if !ok {
		return 0, false
	}
	return b.base, true
}

// Categories returns every banded category ordered by base code
func Categories() []Category {
	out := make([]Category, 0, len(bands))
	for _, b := range bands {
		out = append(out, b.category)
	}
	return out
}

// IsValid returns true for banded categories and UNCLASSIFIED
func (c Category) IsValid() bool {
	if c == CategoryUnclassified {
		return true
	}
	_, ok := byCategory[c]
	return ok
}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// DisplayName returns the accounting subject shown on exported sheets
func DisplayName(c Category) string {
	if b, ok := byCategory[c]; ok {
		return b.name
	}
	return "其他费用"
}

// Parse accepts a category name in any case. Unknown names are UNCLASSIFIED.
func Parse(s string) Category {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if c.IsValid() {
		return c
	}
	return CategoryUnclassified
}

// Resolve picks a record's category: an explicit category wins, otherwise the code decides
func Resolve(category, code string) Category {
	if strings.TrimSpace(category) != "" {
		if c := Parse(category); c != CategoryUnclassified || strings.TrimSpace(code) == "" {
			return c
		}
	}
	return Classify(code)
}
