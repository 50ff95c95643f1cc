package service

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Day indexes run 0=Monday .. 6=Sunday.
var dayNames = [7]string{"lunes", "martes", "miércoles", "jueves", "viernes", "sábado", "domingo"}

var dayIndex = func() map[string]int {
	m := make(map[string]int, len(dayNames))
	for i, name := range dayNames {
		m[fold(name)] = i
	}
	return m
}()

// fold lowercases, trims and strips diacritics so "Miércoles", "MIERCOLES"
// and "miercoles" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return cases.Fold().String(out)
}

// DayName returns the Spanish weekday name for a 0-based index.
func DayName(day int) string {
	if day < 0 || day >= len(dayNames) {
		return ""
	}
	return dayNames[day]
}

// ResolveDay accepts a weekday name (accented or not, any case) or a
// number 1-7 where 1 is Monday. It returns the 0-based index.
func ResolveDay(text string) (int, bool) {
	s := fold(text)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 7 {
			return n - 1, true
		}
		return 0, false
	}
	day, ok := dayIndex[s]
	return day, ok
}

// resolveDaySelection reads a list reply, preferring the row title and
// falling back to a "day_N" row id.
func resolveDaySelection(id, title string) (int, bool) {
	if day, ok := ResolveDay(title); ok {
		return day, true
	}
	if n, ok := strings.CutPrefix(id, "day_"); ok {
		return ResolveDay(n)
	}
	return 0, false
}
