package markethours

import (
	"testing"
	"time"
)

func ist(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2026, month, day, hour, minute, 0, 0, IST)
}

func TestIsMarketOpen(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"mid-session weekday", ist(time.March, 4, 11, 0), true},
		{"exact open", ist(time.March, 4, 9, 15), true},
		{"one minute before open", ist(time.March, 4, 9, 14), false},
		{"exact close", ist(time.March, 4, 15, 30), false},
		{"one minute before close", ist(time.March, 4, 15, 29), true},
		{"saturday", ist(time.March, 7, 11, 0), false},
		{"sunday", ist(time.March, 8, 11, 0), false},
		{"republic day holiday", ist(time.January, 26, 11, 0), false},
		{"christmas holiday", ist(time.December, 25, 11, 0), false},
	}
	for _, tc := range cases {
		if got := IsMarketOpen(tc.t); got != tc.want {
			t.Errorf("%s: IsMarketOpen = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsMarketOpenConvertsZones(t *testing.T) {
	// 06:00 UTC == 11:30 IST, inside the session.
	utc := time.Date(2026, time.March, 4, 6, 0, 0, 0, time.UTC)
	if !IsMarketOpen(utc) {
		t.Fatal("UTC time inside session reported closed")
	}
}

func TestNextOpenSkipsWeekend(t *testing.T) {
	// Friday evening -> Monday 9:15.
	fri := ist(time.March, 6, 18, 0)
	next := NextOpen(fri)
	want := ist(time.March, 9, 9, 15)
	if !next.Equal(want) {
		t.Fatalf("NextOpen = %v, want %v", next, want)
	}
}

func TestNextOpenSameDayBeforeOpen(t *testing.T) {
	early := ist(time.March, 4, 8, 0)
	if next := NextOpen(early); !next.Equal(ist(time.March, 4, 9, 15)) {
		t.Fatalf("NextOpen = %v, want same-day open", next)
	}
}

func TestNextOpenSkipsHoliday(t *testing.T) {
	// Jan 23 2026 is a Friday; Jan 26 (Monday) is Republic Day.
	fri := ist(time.January, 23, 18, 0)
	next := NextOpen(fri)
	want := ist(time.January, 27, 9, 15)
	if !next.Equal(want) {
		t.Fatalf("NextOpen = %v, want %v (skip Republic Day)", next, want)
	}
}

func TestTimeUntilClose(t *testing.T) {
	at := ist(time.March, 4, 15, 0)
	if d := TimeUntilClose(at); d != 30*time.Minute {
		t.Fatalf("TimeUntilClose = %v, want 30m", d)
	}
	after := ist(time.March, 4, 16, 0)
	if d := TimeUntilClose(after); d != 0 {
		t.Fatalf("TimeUntilClose after close = %v, want 0", d)
	}
}
