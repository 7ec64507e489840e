package twintellisense

import "github.com/gotailwindcss/windpress/twdesign"

// SortClasses returns classes in canonical order: unknown classes first,
// then by variant order, utility order and value. Sorting sorted classes
// leaves them unchanged.
func SortClasses(ds *twdesign.DesignSystem, classes []string) []string {
	return ds.SortClasses(classes)
}

// CandidatesToCSS returns the CSS each candidate generates, "" for the
// ones the design system does not know.
func CandidatesToCSS(ds *twdesign.DesignSystem, candidates []string) []string {
	return ds.CandidatesToCSS(candidates)
}

// GetVariableList returns the theme custom properties with their values.
func GetVariableList(ds *twdesign.DesignSystem) []twdesign.Variable {
	return ds.Variables()
}
