package fetch

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const cardsPage = `<html><body><main>
<ul>
  <li class="tournament" data-tournament-id="1001">
    <a href="/tournoi/1001"><h3>Open de Paris</h3></a>
    <span class="location">Padel Club Paris, Paris</span>
    <time datetime="2025-01-12">12 janv. 2025</time>
    <span class="MuiChip-label">P250</span><span class="badge">DM</span>
  </li>
  <li class="tournament" data-tournament-id="1002">
    <a href="/tournoi/1002"><h3>Tournoi Dames</h3></a>
    <span class="date">du 3 au 4 févr. 2025</span>
    <span class="badge">P100</span>
  </li>
</ul>
<nav><a rel="next" href="?page=2">2</a></nav>
</main></body></html>`

const anchorsPage = `<html><body>
<div class="results">
  <section><a href="https://tenup.fft.fr/tournoi/2001">Open de Lyon</a>
    <p>Padel Lyon, Lyon</p><p>15 mars 2025</p><p>P1000</p></section>
  <section><a href="/tournoi/2002">Open de Nice</a><p>16 mars 2025</p></section>
  <section><a href="/tournoi/2002">doublon</a></section>
</div>
<a href="/recherche/tournois?page=3">Suivant</a>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestExtractPrimary(t *testing.T) {
	doc := mustDoc(t, cardsPage)
	items := extractPrimary(doc, "https://tenup.fft.fr/recherche/tournois?page=1")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	rec, ok := items[0].(PrimaryRecord)
	if !ok {
		t.Fatalf("expected PrimaryRecord, got %T", items[0])
	}
	if rec.DataID != "1001" || rec.Href != "/tournoi/1001" || rec.Title != "Open de Paris" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	f := items[0].Fields()
	if f.StartISO != "2025-01-12" || f.ClubName != "Padel Club Paris" || f.City != "Paris" {
		t.Fatalf("unexpected fields: %+v", f)
	}
	if strings.Join(f.Badges, ",") != "P250,DM" {
		t.Fatalf("badges=%v", f.Badges)
	}
	if got := items[1].Fields().DateText; got != "du 3 au 4 févr. 2025" {
		t.Fatalf("date text=%q", got)
	}
	if next := nextToken(doc, "https://tenup.fft.fr/recherche/tournois?page=1"); next != "https://tenup.fft.fr/recherche/tournois?page=2" {
		t.Fatalf("next=%q", next)
	}
}

func TestExtractFallback(t *testing.T) {
	doc := mustDoc(t, anchorsPage)
	if got := extractPrimary(doc, "https://tenup.fft.fr/recherche/tournois?page=2"); len(got) != 0 {
		t.Fatalf("primary strategy should not match, got %d", len(got))
	}
	items := extractFallback(doc, "https://tenup.fft.fr/recherche/tournois?page=2")
	if len(items) != 2 {
		t.Fatalf("expected 2 deduplicated items, got %d", len(items))
	}
	if items[0].Strategy() != StrategyFallback {
		t.Fatalf("strategy=%q", items[0].Strategy())
	}
	f := items[0].Fields()
	if f.Title != "Open de Lyon" || f.DateText != "15 mars 2025" || f.ClubName != "Padel Lyon" || f.City != "Lyon" {
		t.Fatalf("unexpected fields: %+v", f)
	}
	if len(f.Badges) != 1 || f.Badges[0] != "P1000" {
		t.Fatalf("badges=%v", f.Badges)
	}
	if next := nextToken(doc, "https://tenup.fft.fr/recherche/tournois?page=2"); next != "https://tenup.fft.fr/recherche/tournois?page=3" {
		t.Fatalf("next=%q", next)
	}
}

func TestNextTokenLastPage(t *testing.T) {
	doc := mustDoc(t, `<html><body><a rel="next" href="#">x</a><a href="?page=1">Suivant</a></body></html>`)
	if next := nextToken(doc, "https://tenup.fft.fr/recherche/tournois?page=1"); next != "" {
		t.Fatalf("expected no continuation, got %q", next)
	}
}

func TestNextTokenLoadMore(t *testing.T) {
	doc := mustDoc(t, `<html><body><button data-load-more data-next-page="4">Voir plus</button></body></html>`)
	next := nextToken(doc, "https://tenup.fft.fr/recherche/tournois?page=3&region=IDF")
	if next != "https://tenup.fft.fr/recherche/tournois?page=4&region=IDF" {
		t.Fatalf("next=%q", next)
	}
}

func TestSearchURL(t *testing.T) {
	got, err := SearchURL("https://tenup.fft.fr", "/recherche/tournois", Filters{
		Genders:    []string{"men", "unknown"},
		Categories: []string{"p250"},
		Region:     "Ile-de-France",
		RadiusKM:   30,
		From:       "2025-01-01",
		To:         "2025-03-01",
	})
	if err != nil {
		t.Fatalf("SearchURL: %v", err)
	}
	want := "https://tenup.fft.fr/recherche/tournois?categories=P250&date_from=2025-01-01&date_to=2025-03-01&genders=DM&page=1&radius_km=30&region=Ile-de-France"
	if got != want {
		t.Fatalf("got=%s\nwant=%s", got, want)
	}
}
