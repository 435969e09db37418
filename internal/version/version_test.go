package version

import "testing"

func TestBanner(t *testing.T) {
	origV, origSHA, origT := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = origV, origSHA, origT }()

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2026-10-01T00:00:00Z"
	got := Banner("rtm")
	want := "rtm 1.2.0 (abc123, built 2026-10-01T00:00:00Z)"
	if got != want {
		t.Errorf("Banner() = %q, want %q", got, want)
	}
}
