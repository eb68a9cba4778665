package clock

import (
	"testing"
	"time"
)

func fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustZone(t *testing.T, value string) *time.Location {
	t.Helper()
	loc, err := ParseZone(value)
	if err != nil {
		t.Fatalf("ParseZone(%q) error = %v", value, err)
	}
	return loc
}

func TestParseZone(t *testing.T) {
	tests := []struct {
		value      string
		wantOffset int
		wantErr    bool
	}{
		{value: "+07:00", wantOffset: 7 * 3600},
		{value: "+7", wantOffset: 7 * 3600},
		{value: "-03:30", wantOffset: -(3*3600 + 30*60)},
		{value: "UTC", wantOffset: 0},
		{value: "", wantOffset: 0},
		{value: "+25:00", wantErr: true},
		{value: "+ab", wantErr: true},
		{value: "Not/AZone", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			loc, err := ParseZone(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseZone(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
			if offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", offset, tt.wantOffset)
			}
		})
	}
}

func TestWindowUsesCivilMidnight(t *testing.T) {
	loc := mustZone(t, "+07:00")

	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
		wantDate  string
	}{
		{
			name:      "early UTC morning is already the next civil day",
			now:       time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC),
			wantStart: time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC),
			wantDate:  "2024-03-11",
		},
		{
			name:      "just before civil midnight",
			now:       time.Date(2024, 3, 10, 16, 59, 59, 0, time.UTC),
			wantStart: time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC),
			wantDate:  "2024-03-10",
		},
		{
			name:      "exactly civil midnight",
			now:       time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC),
			wantDate:  "2024-03-11",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := NewWithClock(loc, fixed(tt.now))
			start, end := cal.TodayWindow()
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("TodayWindow() = [%v, %v), want [%v, %v)", start, end, tt.wantStart, tt.wantEnd)
			}
			if got := FormatDate(cal.Today()); got != tt.wantDate {
				t.Errorf("Today() = %s, want %s", got, tt.wantDate)
			}
		})
	}
}

func TestSpanAndAddDays(t *testing.T) {
	start := Date(2024, 2, 27)
	end := AddDays(start, 3)
	if got := FormatDate(end); got != "2024-03-01" {
		t.Errorf("AddDays() = %s, want 2024-03-01 (leap year)", got)
	}
	if got := SpanDays(start, end); got != 4 {
		t.Errorf("SpanDays() = %d, want 4", got)
	}
	if got := SpanDays(start, start); got != 1 {
		t.Errorf("SpanDays(same) = %d, want 1", got)
	}
	if got := SpanDays(end, start); got != 0 {
		t.Errorf("SpanDays(reversed) = %d, want 0", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-05-06")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if !d.Equal(Date(2024, 5, 6)) {
		t.Errorf("ParseDate() = %v", d)
	}
	if _, err := ParseDate("06/05/2024"); err == nil {
		t.Error("ParseDate() accepted a malformed date")
	}
}
