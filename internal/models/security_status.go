package models

// SecurityStatus is a read-only snapshot of the session and throttle tables
type SecurityStatus struct {
	ActiveSessions         int  `json:"active_sessions"`
	TotalSessions          int  `json:"total_sessions"`
	FailedLoginAttempts    uint `json:"failed_login_attempts"`
	LockedAccounts         int  `json:"locked_accounts"`
	SessionTimeoutMinutes  int  `json:"session_timeout_minutes"`
	MaxLoginAttempts       uint `json:"max_login_attempts"`
	LockoutDurationMinutes int  `json:"lockout_duration_minutes"`
}
