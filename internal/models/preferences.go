package models

// DefaultDashboardRangeDays is the dashboard window used until a user picks one.
const DefaultDashboardRangeDays = 30

// Preferences holds per-user back-office settings.
type Preferences struct {
	OnboardingDismissed bool `json:"onboarding_dismissed" yaml:"onboarding_dismissed"`
	DashboardRangeDays  int  `json:"dashboard_range_days" yaml:"dashboard_range_days"`
}

// DefaultPreferences returns the settings of a user who never saved any.
func DefaultPreferences() Preferences {
	return Preferences{DashboardRangeDays: DefaultDashboardRangeDays}
}
