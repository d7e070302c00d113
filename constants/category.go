package constants

import (
	"strings"
)

// Category is a GL-coded expense category from the company chart of accounts.
type Category string

const (
	DirectTravel      Category = "5400 Direct Travel"
	DirectLodging     Category = "5450 Direct Lodging"
	DirectMeals       Category = "5500 Direct Meals and Incidental"
	FringeEducation   Category = "6120 Fringe Staff Education"
	OHSeminars        Category = "7336 OVERHEAD COSTS:OH Seminars/Trainings"
	OHTravel          Category = "7580 OH Travel"
	OHBusinessMeals   Category = "7585 OH Business Meals"
	GAOfficeSupplies  Category = "8190 G&A Office supplies"
	GAParkingTolls    Category = "8197 G&A Office parking/tolls"
	GAConference      Category = "8207 G&A Conference/Seminar"
	BDTravel          Category = "8231 BD Travel"
	BDMeals           Category = "8232 BD Meals"
	GATravel          Category = "8320 G&A Travel"
	GABusinessMeals   Category = "8321 G&A Business meals"
	GAOfficeSupplies2 Category = "8330 G&A Office supplies"
	EmployeeMorale    Category = "9080 Employee Morale"
)

// DefaultCategory is assigned whenever a category is missing or unrecognized.
const DefaultCategory = GAOfficeSupplies

var allCategories = []Category{
	DirectTravel,
	DirectLodging,
	DirectMeals,
	FringeEducation,
	OHSeminars,
	OHTravel,
	OHBusinessMeals,
	GAOfficeSupplies,
	GAParkingTolls,
	GAConference,
	BDTravel,
	BDMeals,
	GATravel,
	GABusinessMeals,
	GAOfficeSupplies2,
	EmployeeMorale,
}

// lodgingCategories are the categories governed by the GSA lodging ceiling.
var lodgingCategories = map[Category]struct{}{
	DirectLodging: {},
}

// mealCategories are the categories governed by the GSA M&IE ceiling.
var mealCategories = map[Category]struct{}{
	DirectMeals: {},
}

// Categories returns the fixed category list in display order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// CategoryStrings returns the category list as plain strings, for schema enums.
func CategoryStrings() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// IsCategory reports whether input is a member of the fixed category list.
func IsCategory(input string) bool {
	for _, cat := range allCategories {
		if input == string(cat) {
			return true
		}
	}
	return false
}

// IsLodging reports whether c is subject to the lodging per-diem ceiling.
func IsLodging(c Category) bool {
	_, ok := lodgingCategories[c]
	return ok
}

// IsMeals reports whether c is subject to the M&IE per-diem ceiling.
func IsMeals(c Category) bool {
	_, ok := mealCategories[c]
	return ok
}

// CoerceCategory maps an externally-sourced category onto the fixed list.
// Unknown values fall back to DefaultCategory so they never enter the ledger
// unchecked. The boolean reports whether the input matched.
func CoerceCategory(input string) (Category, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return DefaultCategory, false
	}
	for _, cat := range allCategories {
		if strings.EqualFold(trimmed, string(cat)) {
			return cat, true
		}
	}
	return DefaultCategory, false
}
