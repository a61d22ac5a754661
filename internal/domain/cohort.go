package domain

// ExitDefinition selects which lifecycle event counts as a cohort member's
// exit. Always reported as a named parameter, never hard-coded.
type ExitDefinition string

const (
	ExitByFirstUnbond   ExitDefinition = "first_unbond"
	ExitByFirstWithdraw ExitDefinition = "first_withdraw"
)

// Cohort is a set of addresses sharing an entry definition and time window.
// Churn outcomes are derived facts recomputed against the current event
// horizon, never stored here.
type Cohort struct {
	Name        string
	WindowStart int64 // Unix seconds, inclusive
	WindowEnd   int64 // Unix seconds, exclusive

	// Members maps address to its cohort entry timestamp.
	Members map[string]int64
}

// RetentionPoint is the churn outcome for one horizon.
type RetentionPoint struct {
	HorizonDays int

	// Eligible counts only members with now - entry_ts >= horizon. Members
	// not yet old enough never enter the denominator.
	Eligible  int
	Exited    int
	PctExited float64
}
