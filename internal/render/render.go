// Package render substitutes patient attributes into message templates.
package render

import (
	"strings"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
)

// dateLayouts are tried in priority order; SQLite usually stores dates
// as YYYY-MM-DD but imported spreadsheets bring the other encodings.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
}

// weekdayNames is Monday-first, matching how the clinic reads a week.
var weekdayNames = []string{
	"Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado", "Domingo",
}

// Render replaces {name}, {date}, {weekday}, {time}, {type} and
// {provider} in text with the patient's attributes. It never fails:
// unparseable dates fall back to the raw stored value and missing fields
// to generic phrases. {type} and {provider} stay untouched when empty;
// templates that use them are expected to have the field filled.
func Render(text string, p model.Patient) string {
	text = renderDate(text, p.AppointmentDate)
	text = renderTime(text, p.AppointmentTime)

	if p.Name != "" {
		first := strings.Fields(p.Name)[0]
		text = strings.ReplaceAll(text, "{name}", first)
	} else {
		text = strings.ReplaceAll(text, "{name}", "")
	}

	if p.ConsultType != "" {
		text = strings.ReplaceAll(text, "{type}", p.ConsultType)
	}
	if p.Provider != "" {
		text = strings.ReplaceAll(text, "{provider}", p.Provider)
	}

	return strings.TrimSpace(text)
}

func renderDate(text, raw string) string {
	if raw == "" {
		text = strings.ReplaceAll(text, "{date}", "hoje")
		return strings.ReplaceAll(text, "{weekday}", "hoje")
	}

	for _, layout := range dateLayouts {
		d, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		text = strings.ReplaceAll(text, "{date}", d.Format("02/01/2006"))
		return strings.ReplaceAll(text, "{weekday}", weekdayNames[mondayIndex(d.Weekday())])
	}

	// Unknown encoding: show the stored value as-is.
	text = strings.ReplaceAll(text, "{date}", raw)
	return strings.ReplaceAll(text, "{weekday}", "o dia")
}

func renderTime(text, raw string) string {
	if raw == "" {
		return strings.ReplaceAll(text, "{time}", "agora")
	}
	hhmm := raw
	if len(hhmm) > 5 {
		hhmm = hhmm[:5]
	}
	return strings.ReplaceAll(text, "{time}", hhmm)
}

func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
