package fetch

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	cardSelector     = `[data-tournament-id], article.tournament-card, .tournament-card, li.tournament, [class*="TournamentCard"]`
	detailAnchor     = `a[href*='/tournoi/']`
	titleSelector    = `h1, h2, h3, h4, .title, .card-title, [class*="Title"]`
	dateSelector     = `time, [class*="date"], [class*="Date"], .result-date`
	badgeSelector    = `[class*="Chip"], [class*="Tag"], .badge, .chip, .label`
	clubSelector     = `.club, [class*="club-name"], [class*="ClubName"]`
	locationSelector = `.location, [class*="location"], [class*="Location"], address`
	regionSelector   = `.region, [class*="region"], [class*="Region"]`
	containerSel     = `article, section, li, [class*="card"], [class*="Card"], tr, div`
	consentSelector  = `#didomi-notice-agree-button, [data-consent-accept], form#consent-form button`
	emptySelector    = `[data-empty-results], .empty-state, .no-results`
)

// extractPrimary reads structured tournament cards.
func extractPrimary(doc *goquery.Document, pageURL string) []RawItem {
	var items []RawItem
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		// nested matches are covered by their outermost card
		if card.ParentsFiltered(cardSelector).Length() > 0 {
			return
		}
		rec := PrimaryRecord{
			PageURL:  pageURL,
			Href:     firstAttr(card, detailAnchor, "href"),
			DataID:   attrOr(card, "data-tournament-id", "data-id"),
			Title:    firstText(card, titleSelector),
			Club:     firstText(card, clubSelector),
			Location: firstText(card, locationSelector),
			Region:   firstText(card, regionSelector),
			DateText: firstText(card, dateSelector),
		}
		if rec.Href == "" {
			rec.Href = firstAttr(card, "a[href]", "href")
		}
		card.Find("time[datetime]").Each(func(_ int, tm *goquery.Selection) {
			if v, ok := tm.Attr("datetime"); ok && strings.TrimSpace(v) != "" {
				rec.DateTime = append(rec.DateTime, v)
			}
		})
		card.Find(badgeSelector).Each(func(_ int, b *goquery.Selection) {
			if t := clean(b.Text()); t != "" {
				rec.Badges = append(rec.Badges, t)
			}
		})
		if rec.Href == "" && rec.Title == "" {
			return
		}
		items = append(items, rec)
	})
	return items
}

// extractFallback scans detail anchors and reads the text lines of their
// closest container.
func extractFallback(doc *goquery.Document, pageURL string) []RawItem {
	var items []RawItem
	seen := map[string]bool{}
	doc.Find(detailAnchor).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || seen[href] {
			return
		}
		seen[href] = true
		container := a.Closest(containerSel)
		if container.Length() == 0 {
			container = a.Parent()
		}
		items = append(items, FallbackRecord{
			PageURL:    pageURL,
			Href:       href,
			AnchorText: a.Text(),
			Lines:      textLines(container),
		})
	})
	return items
}

// nextToken finds the continuation link. It returns "" on the last page.
func nextToken(doc *goquery.Document, pageURL string) string {
	candidates := []string{
		firstAttr(doc.Selection, `a[rel='next'], link[rel='next']`, "href"),
		firstAttr(doc.Selection, `a[aria-label*='Suivant'], a[aria-label*='Next']`, "href"),
	}
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		t := strings.ToLower(clean(a.Text()))
		if t == "suivant" || t == "page suivante" || t == "next" || t == "›" || t == "»" {
			href, _ := a.Attr("href")
			candidates = append(candidates, href)
			return false
		}
		return true
	})
	if more := doc.Find(`[data-load-more]`).First(); more.Length() > 0 {
		if href, ok := more.Attr("data-next-url"); ok {
			candidates = append(candidates, href)
		} else if page, ok := more.Attr("data-next-page"); ok {
			candidates = append(candidates, withPage(pageURL, page))
		}
	}
	for _, c := range candidates {
		if next := resolve(pageURL, c); next != "" && next != pageURL {
			return next
		}
	}
	return ""
}

func hasConsentWall(doc *goquery.Document) bool {
	if doc.Find(consentSelector).Length() > 0 {
		return true
	}
	found := false
	doc.Find("button").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		t := strings.ToLower(clean(b.Text()))
		found = t == "tout accepter" || t == "accepter" || t == "accepter et fermer"
		return !found
	})
	return found
}

func isEmptyResult(doc *goquery.Document) bool {
	if doc.Find(emptySelector).Length() > 0 {
		return true
	}
	text := strings.ToLower(clean(doc.Find("main, body").First().Text()))
	return strings.Contains(text, "aucun tournoi") || strings.Contains(text, "aucun résultat")
}

func firstText(sel *goquery.Selection, selector string) string {
	return clean(sel.Find(selector).First().Text())
}

func firstAttr(sel *goquery.Selection, selector, attr string) string {
	v, _ := sel.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

func attrOr(sel *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := sel.Attr(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func textLines(sel *goquery.Selection) []string {
	var lines []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := clean(c.Text()); t != "" {
					lines = append(lines, t)
				}
			case "script", "style", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return lines
}

func resolve(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func withPage(pageURL, page string) string {
	if _, err := strconv.Atoi(strings.TrimSpace(page)); err != nil {
		return ""
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("page", strings.TrimSpace(page))
	u.RawQuery = q.Encode()
	return u.String()
}
