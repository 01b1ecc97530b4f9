package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/tenpadel-backend/internal/ingestion/fetch"
)

// Params are the trigger parameters of one run. Zero values fall back to the
// configured defaults.
type Params struct {
	Genders    []string `json:"genders,omitempty" yaml:"genders" validate:"omitempty,dive,oneof=men women mixed"`
	Categories []string `json:"categories,omitempty" yaml:"categories" validate:"omitempty,dive,oneof=P25 P50 P100 P250 P500 P1000 P1500 P2000"`
	Levels     []string `json:"levels,omitempty" yaml:"levels" validate:"omitempty,dive,oneof=club regional national elite"`
	Region     string   `json:"region,omitempty" yaml:"region" validate:"max=120"`
	City       string   `json:"city,omitempty" yaml:"city" validate:"max=120"`
	RadiusKM   int      `json:"radius_km,omitempty" yaml:"radius_km" validate:"gte=0,lte=500"`
	From       string   `json:"date_from,omitempty" yaml:"date_from" validate:"omitempty,datetime=2006-01-02"`
	To         string   `json:"date_to,omitempty" yaml:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Limit      int      `json:"limit,omitempty" yaml:"limit" validate:"gte=0"`
}

// ParamsError reports trigger parameters that failed validation.
type ParamsError struct {
	Err error
}

func (e *ParamsError) Error() string { return "invalid parameters: " + e.Err.Error() }
func (e *ParamsError) Unwrap() error { return e.Err }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func paramsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func normalizeParams(p Params) Params {
	out := p
	out.Genders = lowerAll(p.Genders)
	out.Levels = lowerAll(p.Levels)
	out.Categories = nil
	for _, c := range p.Categories {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out.Categories = append(out.Categories, c)
		}
	}
	out.Region = strings.TrimSpace(p.Region)
	out.City = strings.TrimSpace(p.City)
	out.From = strings.TrimSpace(p.From)
	out.To = strings.TrimSpace(p.To)
	return out
}

func lowerAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// resolve validates p, applies defaults and returns the filters and the
// effective result limit.
func (s *Service) resolve(p Params) (fetch.Filters, int, error) {
	p = normalizeParams(p)
	if err := paramsValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fetch.Filters{}, 0, &ParamsError{Err: errors.New(strings.Join(msgs, "; "))}
		}
		return fetch.Filters{}, 0, &ParamsError{Err: err}
	}

	d := s.cfg.Defaults
	f := fetch.Filters{
		Genders:    firstNonEmpty(p.Genders, d.Genders),
		Categories: firstNonEmpty(p.Categories, d.Categories),
		Levels:     firstNonEmpty(p.Levels, d.Levels),
		Region:     p.Region,
		City:       p.City,
		RadiusKM:   p.RadiusKM,
		From:       p.From,
		To:         p.To,
	}
	if f.Region == "" {
		f.Region = d.Region
	}
	if f.City == "" {
		f.City = d.City
	}
	if f.RadiusKM == 0 {
		f.RadiusKM = d.RadiusKM
	}

	today := s.now().In(s.cfg.Location)
	if f.From == "" {
		f.From = today.Format(time.DateOnly)
	}
	if f.To == "" {
		from, _ := time.ParseInLocation(time.DateOnly, f.From, s.cfg.Location)
		f.To = from.AddDate(0, 0, s.cfg.WindowDays).Format(time.DateOnly)
	}
	if f.To < f.From {
		f.From, f.To = f.To, f.From
	}

	limit := p.Limit
	if limit <= 0 || limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}
	return f, limit, nil
}

func firstNonEmpty(v, fallback []string) []string {
	if len(v) > 0 {
		return v
	}
	return fallback
}
