package fetch

import (
	"regexp"
	"strings"
)

type Strategy string

const (
	StrategyPrimary  Strategy = "primary"
	StrategyFallback Strategy = "fallback"
)

// RawItem is one listing entry as extracted from a page. It is implemented by
// PrimaryRecord and FallbackRecord; consumers only read Fields.
type RawItem interface {
	Strategy() Strategy
	Fields() RawFields
	// RawKey identifies the item within a run before normalization.
	RawKey() string
}

// RawFields is the strategy-independent shape handed to the normalizer.
type RawFields struct {
	Href       string
	ExternalID string
	Title      string
	ClubName   string
	City       string
	Region     string
	DateText   string
	StartISO   string
	EndISO     string
	Badges     []string
	Text       string
	// PageURL is the page the item was found on; relative hrefs resolve against it.
	PageURL string
}

// PrimaryRecord comes from the structured card query.
type PrimaryRecord struct {
	PageURL  string
	Href     string
	DataID   string
	Title    string
	Club     string
	Location string
	Region   string
	DateText string
	DateTime []string
	Badges   []string
}

func (PrimaryRecord) Strategy() Strategy { return StrategyPrimary }

func (r PrimaryRecord) RawKey() string { return rawKey(r.Href, r.Title, r.DateText) }

func (r PrimaryRecord) Fields() RawFields {
	club, city := r.Club, ""
	if c, ci, ok := splitClubCity(r.Location); ok {
		if club == "" {
			club = c
		}
		city = ci
	} else if r.Location != "" {
		city = clean(r.Location)
	}
	f := RawFields{
		Href:       strings.TrimSpace(r.Href),
		ExternalID: strings.TrimSpace(r.DataID),
		Title:      clean(r.Title),
		ClubName:   clean(club),
		City:       city,
		Region:     clean(r.Region),
		DateText:   clean(r.DateText),
		Badges:     cleanAll(r.Badges),
		PageURL:    r.PageURL,
	}
	if len(r.DateTime) > 0 {
		f.StartISO = strings.TrimSpace(r.DateTime[0])
	}
	if len(r.DateTime) > 1 {
		f.EndISO = strings.TrimSpace(r.DateTime[len(r.DateTime)-1])
	}
	f.Text = strings.Join(append([]string{f.Title, f.DateText}, f.Badges...), " ")
	return f
}

// FallbackRecord comes from scanning detail anchors and the text of their
// closest container.
type FallbackRecord struct {
	PageURL    string
	Href       string
	AnchorText string
	Lines      []string
}

func (FallbackRecord) Strategy() Strategy { return StrategyFallback }

func (r FallbackRecord) RawKey() string { return rawKey(r.Href, r.AnchorText, "") }

var (
	dateLineRe   = regexp.MustCompile(`(?i)\d{1,2}(?:er)?\s*(?:/|\s)\s*(?:\d{1,2}/\d{4}|\p{L}+\.?\s+\d{4})|\d{4}-\d{2}-\d{2}`)
	pointBadgeRe = regexp.MustCompile(`(?i)^P\s?\d{2,4}$`)
)

func (r FallbackRecord) Fields() RawFields {
	lines := cleanAll(r.Lines)
	f := RawFields{
		Href:    strings.TrimSpace(r.Href),
		Title:   clean(r.AnchorText),
		PageURL: r.PageURL,
	}
	for _, line := range lines {
		switch {
		case f.DateText == "" && dateLineRe.MatchString(line):
			f.DateText = line
		case pointBadgeRe.MatchString(line) || (len(line) <= 12 && strings.ToUpper(line) == line):
			f.Badges = append(f.Badges, line)
		case f.ClubName == "":
			if club, city, ok := splitClubCity(line); ok {
				f.ClubName, f.City = club, city
			} else if f.Title == "" {
				f.Title = line
			}
		case f.Title == "":
			f.Title = line
		}
	}
	f.Text = strings.Join(lines, " ")
	return f
}

func rawKey(href, title, date string) string {
	if h := strings.TrimSpace(href); h != "" {
		return h
	}
	return strings.ToLower(clean(title)) + "|" + clean(date)
}

// splitClubCity reads "Club, City" lines.
func splitClubCity(s string) (string, string, bool) {
	s = clean(s)
	i := strings.LastIndex(s, ",")
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	club, city := strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	if club == "" || city == "" || dateLineRe.MatchString(s) {
		return "", "", false
	}
	return club, city, true
}

func clean(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}

func cleanAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if c := clean(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}
