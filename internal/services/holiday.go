package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/br"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/pl"
	"github.com/rickar/cal/v2/pt"
	"github.com/rickar/cal/v2/us"
)

const (
	// CountryChina uses the lunar calendar, including make-up working weekends.
	CountryChina = "CN"
	// CountryNone treats every Monday to Friday as a workday.
	CountryNone = "NONE"
)

type CountryInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var businessCalendars = map[string]struct {
	name     string
	holidays []*cal.Holiday
}{
	"US": {"United States", us.Holidays},
	"GB": {"United Kingdom", gb.Holidays},
	"IE": {"Ireland", ie.Holidays},
	"CA": {"Canada", ca.Holidays},
	"AU": {"Australia", au.HolidaysNSW},
	"DE": {"Germany", de.Holidays},
	"FR": {"France", fr.Holidays},
	"ES": {"Spain", es.Holidays},
	"IT": {"Italy", it.Holidays},
	"NL": {"Netherlands", nl.Holidays},
	"PL": {"Poland", pl.Holidays},
	"PT": {"Portugal", pt.Holidays},
	"BR": {"Brazil", br.Holidays},
	"JP": {"Japan", jp.Holidays},
}

// WorkdayCalendar answers whether the admin digest should go out on a given day.
type WorkdayCalendar struct {
	mu        sync.Mutex
	calendars map[string]*cal.BusinessCalendar
}

func NewWorkdayCalendar() *WorkdayCalendar {
	return &WorkdayCalendar{calendars: make(map[string]*cal.BusinessCalendar)}
}

func (w *WorkdayCalendar) calendar(code string) *cal.BusinessCalendar {
	w.mu.Lock()
	defer w.mu.Unlock()

	if c, ok := w.calendars[code]; ok {
		return c
	}
	entry, ok := businessCalendars[code]
	if !ok {
		return nil
	}
	c := cal.NewBusinessCalendar()
	c.Name = entry.name
	c.AddHoliday(entry.holidays...)
	w.calendars[code] = c
	return c
}

// IsWorkday falls back to plain weekdays for unknown country codes.
func (w *WorkdayCalendar) IsWorkday(t time.Time, countryCode string) bool {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == CountryChina {
		solar := calendar.NewSolarFromDate(t)
		if h := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay()); h != nil {
			return h.IsWork()
		}
		return !cal.IsWeekend(t)
	}

	if c := w.calendar(code); c != nil {
		return c.IsWorkday(t)
	}
	return !cal.IsWeekend(t)
}

func (w *WorkdayCalendar) SupportedCountries() []CountryInfo {
	countries := make([]CountryInfo, 0, len(businessCalendars)+2)
	for code, entry := range businessCalendars {
		countries = append(countries, CountryInfo{Code: code, Name: entry.name})
	}
	countries = append(countries, CountryInfo{Code: CountryChina, Name: "China"})
	sort.Slice(countries, func(i, j int) bool { return countries[i].Code < countries[j].Code })
	return append(countries, CountryInfo{Code: CountryNone, Name: "Weekdays only (Mon-Fri)"})
}
