package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// monthAliases lists the accepted spellings per month, January first.
var monthAliases = [12][]string{
	{"janv", "janvier", "jan"},
	{"févr", "fevr", "fév", "fev", "février", "fevrier"},
	{"mars"},
	{"avr", "avril"},
	{"mai"},
	{"juin"},
	{"juil", "juillet"},
	{"août", "aout"},
	{"sept", "sep", "septembre"},
	{"oct", "octobre"},
	{"nov", "novembre"},
	{"déc", "dec", "décembre", "decembre"},
}

var frenchMonths = func() map[string]time.Month {
	out := make(map[string]time.Month, 40)
	for i, aliases := range monthAliases {
		for _, a := range aliases {
			out[a] = time.Month(i + 1)
		}
	}
	return out
}()

// Patterns, most specific first:
//
//	crossMonthRe  12 janv. - 3 févr. 2025, du 12 janv. au 3 févr. 2025
//	sameMonthRe   du 12 au 14 janv. 2025, 12-14 janvier 2025
//	textualRe     12 janv. 2025
//	numericRe     12/01/2025
//	isoRe         2025-01-12
var (
	crossMonthRe = regexp.MustCompile(`\b(\d{1,2})(?:er)?\s+(\p{L}+)\.?\s*(?:au|-|–)\s*(\d{1,2})(?:er)?\s+(\p{L}+)\.?\s+(\d{4})`)
	sameMonthRe  = regexp.MustCompile(`\b(\d{1,2})(?:er)?\s*(?:au|-|–)\s*(\d{1,2})(?:er)?\s+(\p{L}+)\.?\s+(\d{4})`)
	textualRe    = regexp.MustCompile(`\b(\d{1,2})(?:er)?\s+(\p{L}+)\.?\s+(\d{4})`)
	numericRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	isoRe        = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})`)
)

// dateParse is the outcome of reading a date text: matched reports whether any
// known pattern applied; valid whether the matched values form real days.
type dateParse struct {
	start   *time.Time
	end     *time.Time
	matched bool
	valid   bool
}

func parseDates(text, startISO, endISO string) dateParse {
	if startISO != "" {
		if start, ok := parseISO(startISO); ok {
			p := dateParse{start: &start, matched: true, valid: true}
			if end, ok := parseISO(endISO); ok {
				p.end = &end
			}
			return p
		}
	}
	return parseDateText(text)
}

func parseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		if t, err := time.Parse(dateLayout, s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseDateText(text string) dateParse {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if s == "" {
		return dateParse{}
	}

	if m := crossMonthRe.FindStringSubmatch(s); m != nil {
		m1, ok1 := frenchMonths[m[2]]
		m2, ok2 := frenchMonths[m[4]]
		if ok1 && ok2 {
			year := atoi(m[5])
			startYear := year
			if m1 > m2 {
				startYear--
			}
			return build(startYear, m1, atoi(m[1]), year, m2, atoi(m[3]))
		}
	}
	if m := sameMonthRe.FindStringSubmatch(s); m != nil {
		if month, ok := frenchMonths[m[3]]; ok {
			year := atoi(m[4])
			return build(year, month, atoi(m[1]), year, month, atoi(m[2]))
		}
	}
	var found []dateParts
	for _, m := range textualRe.FindAllStringSubmatch(s, -1) {
		if month, ok := frenchMonths[m[2]]; ok {
			found = append(found, dateParts{atoi(m[3]), month, atoi(m[1])})
		}
	}
	if len(found) == 0 {
		for _, m := range numericRe.FindAllStringSubmatch(s, -1) {
			found = append(found, dateParts{atoi(m[3]), time.Month(atoi(m[2])), atoi(m[1])})
		}
	}
	if len(found) == 0 {
		for _, m := range isoRe.FindAllStringSubmatch(s, -1) {
			found = append(found, dateParts{atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3])})
		}
	}
	switch len(found) {
	case 0:
		return dateParse{}
	case 1:
		return build(found[0].year, found[0].month, found[0].day, 0, 0, 0)
	default:
		last := found[len(found)-1]
		return build(found[0].year, found[0].month, found[0].day, last.year, last.month, last.day)
	}
}

type dateParts struct {
	year  int
	month time.Month
	day   int
}

// build validates calendar values; an end year of 0 means no end date.
func build(sy int, sm time.Month, sd int, ey int, em time.Month, ed int) dateParse {
	p := dateParse{matched: true}
	start, ok := civil(sy, sm, sd)
	if !ok {
		return p
	}
	p.start = &start
	if ey != 0 {
		end, ok := civil(ey, em, ed)
		if !ok {
			return p
		}
		p.end = &end
	}
	p.valid = true
	return p
}

func civil(y int, m time.Month, d int) (time.Time, bool) {
	if m < time.January || m > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != m {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
