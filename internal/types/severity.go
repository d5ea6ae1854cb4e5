package types

// SeverityForState aggregates a check's current state label with the worst
// severity already notified for the incident, returning the severity a new
// notification should carry. This models escalation: a once-critical incident
// keeps reporting at critical even if the check has since calmed, until it is
// explicitly recovered.
//
// The ladder is evaluated top to bottom, first match wins:
//  1. either input is "critical" or the "test_notifications" sentinel -> critical
//  2. either input is "warning" -> warning
//  3. either input is "unknown" -> unknown
//  4. otherwise -> ok
//
// Inputs outside the known labels match no rung and fall through to ok.
// Pure function, total over its domain.
func SeverityForState(state, maxNotifiedSeverity string) Severity {
	if eitherIs(state, maxNotifiedSeverity, string(SeverityCritical)) ||
		eitherIs(state, maxNotifiedSeverity, TestNotificationsLabel) {
		return SeverityCritical
	}
	if eitherIs(state, maxNotifiedSeverity, string(SeverityWarning)) {
		return SeverityWarning
	}
	if eitherIs(state, maxNotifiedSeverity, string(SeverityUnknown)) {
		return SeverityUnknown
	}
	return SeverityOK
}

func eitherIs(a, b, label string) bool {
	return a == label || b == label
}
