package fetch

import (
	"net/url"
	"strconv"
	"strings"
)

// Filters are the search parameters of one run.
type Filters struct {
	Genders    []string `json:"genders,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Levels     []string `json:"levels,omitempty"`
	Region     string   `json:"region,omitempty"`
	City       string   `json:"city,omitempty"`
	RadiusKM   int      `json:"radius_km,omitempty"`
	From       string   `json:"date_from,omitempty"`
	To         string   `json:"date_to,omitempty"`
}

// PageRequest asks for one listing page. An empty Cursor is the first page;
// otherwise Cursor is the continuation token returned with the previous page.
type PageRequest struct {
	Filters Filters
	Cursor  string
}

type Page struct {
	URL      string
	Items    []RawItem
	Next     string
	Strategy Strategy
}

var genderCodes = map[string]string{
	"men":   "DM",
	"women": "DD",
	"mixed": "DX",
}

// SearchURL builds the first-page URL for filters.
func SearchURL(baseURL, searchPath string, f Filters) (string, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return "", err
	}
	u, err := base.Parse(strings.TrimLeft(searchPath, "/"))
	if err != nil {
		return "", err
	}
	q := url.Values{}
	for _, g := range f.Genders {
		if code, ok := genderCodes[strings.ToLower(g)]; ok {
			q.Add("genders", code)
		}
	}
	for _, c := range f.Categories {
		q.Add("categories", strings.ToUpper(c))
	}
	for _, l := range f.Levels {
		q.Add("levels", strings.ToLower(l))
	}
	setIf(q, "region", f.Region)
	setIf(q, "city", f.City)
	if f.RadiusKM > 0 {
		q.Set("radius_km", strconv.Itoa(f.RadiusKM))
	}
	setIf(q, "date_from", f.From)
	setIf(q, "date_to", f.To)
	q.Set("page", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func setIf(q url.Values, key, val string) {
	if v := strings.TrimSpace(val); v != "" {
		q.Set(key, v)
	}
}
