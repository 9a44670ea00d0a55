package testing

import (
	"fmt"
	"strings"
	"testing"
)

// AssertStatementExecuted fails the test unless a statement matching sqlPattern was received.
func AssertStatementExecuted(t *testing.T, s *TestSession, sqlPattern string) {
	t.Helper()
	calls := s.Calls()
	for _, c := range calls {
		if s.matchSQL(sqlPattern, c.SQL) {
			return
		}
	}
	t.Errorf("expected statement not executed: %q\nActual statements:\n%s", sqlPattern, formatCalls(calls))
}

// AssertStatementCount fails the test unless exactly expected statements matched sqlPattern.
func AssertStatementCount(t *testing.T, s *TestSession, sqlPattern string, expected int) {
	t.Helper()
	count := 0
	for _, c := range s.Calls() {
		if s.matchSQL(sqlPattern, c.SQL) {
			count++
		}
	}
	if count != expected {
		t.Errorf("expected %d statements matching %q, got %d\nActual statements:\n%s",
			expected, sqlPattern, count, formatCalls(s.Calls()))
	}
}

// AssertNoStatements fails the test if the session received anything.
func AssertNoStatements(t *testing.T, s *TestSession) {
	t.Helper()
	if calls := s.Calls(); len(calls) > 0 {
		t.Errorf("expected no statements, got:\n%s", formatCalls(calls))
	}
}

func formatCalls(calls []Call) string {
	if len(calls) == 0 {
		return "  (none)"
	}
	var b strings.Builder
	for i, c := range calls {
		fmt.Fprintf(&b, "  %d. [%s] %s %v\n", i+1, c.Kind, c.SQL, c.Args)
	}
	return b.String()
}
