package permissions

import "testing"

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusNotDetermined: "not-determined",
		StatusRestricted:    "restricted",
		StatusDenied:        "denied",
		StatusAuthorized:    "authorized",
		Status(42):          "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestEnsurePromptsOnlyWhenUndetermined(t *testing.T) {
	tests := []struct {
		status     Status
		want       bool
		wantPrompt bool
	}{
		{StatusNotDetermined, true, true},
		{StatusAuthorized, true, false},
		{StatusDenied, false, false},
		{StatusRestricted, false, false},
	}
	for _, tt := range tests {
		prompted := false
		got := ensure(tt.status, func() bool {
			prompted = true
			return false
		})
		if got != tt.want || prompted != tt.wantPrompt {
			t.Errorf("ensure(%s) = %v prompted=%v, want %v prompted=%v", tt.status, got, prompted, tt.want, tt.wantPrompt)
		}
	}
}
