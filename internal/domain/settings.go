package domain

// UnitSystem selects how loads are labelled.
type UnitSystem string

const (
	UnitMetric   UnitSystem = "metric"
	UnitImperial UnitSystem = "imperial"
)

// Valid reports whether u is one of the known unit systems.
func (u UnitSystem) Valid() bool {
	return u == UnitMetric || u == UnitImperial
}

// UserSettings holds the locally persisted dashboard preferences.
type UserSettings struct {
	DisplayName       string     `json:"displayName"`
	WeeklyWorkoutGoal *float64   `json:"weeklyWorkoutGoal"`
	PreferredSplit    string     `json:"preferredSplit"`
	UnitSystem        UnitSystem `json:"unitSystem"`
}

// DefaultSettings is the record used when nothing (or nothing usable) is stored.
func DefaultSettings() UserSettings {
	return UserSettings{
		DisplayName:       "",
		WeeklyWorkoutGoal: nil,
		PreferredSplit:    "",
		UnitSystem:        UnitMetric,
	}
}

// Theme is the persisted colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps anything other than "dark" to the light theme.
func ParseTheme(s string) Theme {
	if Theme(s) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}
