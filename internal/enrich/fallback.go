package enrich

import "fmt"

var landmarkYears = map[int]string{
	1066: "Norman Conquest of England. Battle of Hastings fought.",
	1492: "Christopher Columbus reaches the Americas. Beginning of European colonization.",
	1776: "American Declaration of Independence signed. American Revolutionary War ongoing.",
	1945: "End of World War II. Atomic bombs dropped on Hiroshima and Nagasaki. United Nations founded.",
}

// YearFallback is used when no summary could be fetched for year.
func YearFallback(year int) string {
	if text, ok := landmarkYears[year]; ok {
		return text
	}
	return fmt.Sprintf("Major historical events occurred in %d.", year)
}

// PersonFallback is used when no summary could be fetched for name.
func PersonFallback(name string) string {
	return fmt.Sprintf("Biographical information about %s.", name)
}

// YearNoData is used when the summary source answered but had no text for year.
func YearNoData(year int) string {
	return fmt.Sprintf("Historical data for year %d", year)
}

// PersonNoData is used when the summary source answered but had no text for name.
func PersonNoData(name string) string {
	return fmt.Sprintf("Biographical data for %s", name)
}
