package services

import (
	"testing"
	"time"
)

func TestWorkdayCalendar_IsWorkday(t *testing.T) {
	w := NewWorkdayCalendar()
	day := func(s string) time.Time {
		d, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}

	tests := []struct {
		name    string
		date    string
		country string
		want    bool
	}{
		{"US thanksgiving", "2026-11-26", "US", false},
		{"US ordinary tuesday", "2026-07-07", "US", true},
		{"saturday", "2026-07-11", "US", false},
		{"lowercase code", "2026-12-25", "us", false},
		{"no calendar weekday", "2026-12-25", CountryNone, true},
		{"no calendar sunday", "2026-12-27", CountryNone, false},
		{"unknown country falls back to weekdays", "2026-12-25", "ZZ", true},
		{"china national day", "2024-10-01", CountryChina, false},
		{"china make-up saturday", "2024-10-12", CountryChina, true},
		{"china ordinary weekday", "2024-11-12", CountryChina, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.IsWorkday(day(tt.date), tt.country); got != tt.want {
				t.Errorf("IsWorkday(%s, %s) = %v, want %v", tt.date, tt.country, got, tt.want)
			}
		})
	}
}

func TestWorkdayCalendar_SupportedCountries(t *testing.T) {
	countries := NewWorkdayCalendar().SupportedCountries()
	if len(countries) != len(businessCalendars)+2 {
		t.Fatalf("got %d countries, want %d", len(countries), len(businessCalendars)+2)
	}
	if last := countries[len(countries)-1]; last.Code != CountryNone {
		t.Errorf("last entry = %s, want %s", last.Code, CountryNone)
	}
	for i := 1; i < len(countries)-1; i++ {
		if countries[i-1].Code > countries[i].Code {
			t.Errorf("countries not sorted: %s before %s", countries[i-1].Code, countries[i].Code)
		}
	}
}
