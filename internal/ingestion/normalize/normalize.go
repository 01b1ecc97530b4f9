// Package normalize maps raw listing items onto canonical tournaments. It is
// pure: no I/O, no clock, no randomness.
package normalize

import (
	"fmt"

	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/fetch"
)

type Options struct {
	Source tournaments.Source
	// DefaultRegion fills Region when the item carries none, usually the
	// region filter of the run.
	DefaultRegion string
}

type Candidate struct {
	Tournament tournaments.Tournament
	RawKey     string
	// LowConfidenceGender is set when the gender defaulted to mixed. It is
	// only logged.
	LowConfidenceGender bool
}

type Error struct {
	Kind   failure.Kind
	Field  string
	Raw    string
	RawKey string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Kind, e.Field, e.Raw)
}

func (e *Error) FailureKind() failure.Kind { return e.Kind }

// Rejection records an item excluded from the candidate set.
type Rejection struct {
	RawKey string
	Err    *Error
}

func Normalize(item fetch.RawItem, opts Options) (Candidate, error) {
	f := item.Fields()
	key := item.RawKey()

	canonical, ok := canonicalURL(f.Href, f.PageURL)
	if !ok {
		return Candidate{}, &Error{Kind: failure.KindMissingURL, Field: "canonical_url", Raw: f.Href, RawKey: key}
	}

	t := tournaments.Tournament{
		Source:       opts.Source,
		Title:        f.Title,
		ClubName:     f.ClubName,
		City:         f.City,
		Region:       f.Region,
		DateText:     f.DateText,
		CanonicalURL: canonical,
	}
	if t.Region == "" {
		t.Region = opts.DefaultRegion
	}

	dates := parseDates(f.DateText, f.StartISO, f.EndISO)
	if dates.matched && !dates.valid {
		return Candidate{}, &Error{Kind: failure.KindInvalidDate, Field: "date_text", Raw: f.DateText, RawKey: key}
	}
	if dates.start == nil {
		t.DateDegraded = true
	} else {
		start := dates.start.Format(dateLayout)
		end := start
		if dates.end != nil {
			if dates.end.Before(*dates.start) {
				t.DateDegraded = true
			} else {
				end = dates.end.Format(dateLayout)
			}
		}
		t.StartDate, t.EndDate = &start, &end
	}

	t.Category = parseCategory(append(append([]string{}, f.Badges...), f.Title, f.Text)...)
	gender, confident := parseGender(f.Badges, f.Title, f.Text)
	t.Gender = gender
	t.Level = parseLevel(f.Badges, t.Category)

	extID, derived := externalID(f.ExternalID, canonical)
	t.ExternalID = extID
	t.IdentityHash = IdentityHash(identityFields(string(t.Source), extID, derived, t.StartKey(), canonical))

	if t.Title == "" {
		if t.ClubName != "" {
			t.Title = t.ClubName
		} else {
			t.Title = "Tournoi " + extID
		}
	}

	return Candidate{Tournament: t, RawKey: key, LowConfidenceGender: !confident}, nil
}

// NormalizeAll isolates per-item failures: every item lands in exactly one of
// the two returned slices, in input order.
func NormalizeAll(items []fetch.RawItem, opts Options) ([]Candidate, []Rejection) {
	candidates := make([]Candidate, 0, len(items))
	var rejections []Rejection
	for _, item := range items {
		c, err := Normalize(item, opts)
		if err != nil {
			nErr, _ := err.(*Error)
			rejections = append(rejections, Rejection{RawKey: item.RawKey(), Err: nErr})
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, rejections
}
