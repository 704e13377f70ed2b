package constants

// MonthOrder maps German month names as they appear in Lohnjournal headers
// to their calendar position.
var MonthOrder = map[string]int{
	"Januar":    1,
	"Februar":   2,
	"März":      3,
	"April":     4,
	"Mai":       5,
	"Juni":      6,
	"Juli":      7,
	"August":    8,
	"September": 9,
	"Oktober":   10,
	"November":  11,
	"Dezember":  12,
}

// MonthNumber returns the calendar position of a German month name,
// or 0 if the name is unknown.
func MonthNumber(name string) int {
	return MonthOrder[name]
}

// PeriodSortKey orders periods chronologically (year first, then month).
func PeriodSortKey(monthName string, year int) int {
	return year*100 + MonthNumber(monthName)
}
