package domain

import "testing"

func TestCountsStatus(t *testing.T) {
	cases := []struct {
		name    string
		c       Counts
		aborted bool
		want    Status
	}{
		{"clean", Counts{Found: 3, New: 1, Updated: 2}, false, StatusSuccess},
		{"empty queue", Counts{}, false, StatusSuccess},
		{"skipped", Counts{Found: 2, Skipped: 1}, false, StatusWarning},
		{"retried", Counts{Retried: 1}, false, StatusWarning},
		{"index failure", Counts{Found: 1, New: 1, IndexFailures: 1}, false, StatusWarning},
		{"aborted", Counts{}, true, StatusError},
		{"aborted after progress", Counts{Found: 5, New: 5}, true, StatusError},
	}
	for _, tc := range cases {
		if got := tc.c.Status(tc.aborted); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
	if !StatusWarning.Valid() || Status("ok").Valid() {
		t.Fatal("Valid")
	}
}
