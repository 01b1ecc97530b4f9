package paginate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/fetch"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type scriptedFetcher struct {
	pages   []fetch.Page
	errAt   int
	err     error
	cursors []string
	onFetch func(n int)
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, req fetch.PageRequest) (fetch.Page, error) {
	f.cursors = append(f.cursors, req.Cursor)
	n := len(f.cursors)
	if f.onFetch != nil {
		f.onFetch(n)
	}
	if f.err != nil && n == f.errAt {
		return fetch.Page{}, f.err
	}
	if n > len(f.pages) {
		return f.pages[len(f.pages)-1], nil
	}
	return f.pages[n-1], nil
}

func items(ids ...int) []fetch.RawItem {
	out := make([]fetch.RawItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, fetch.PrimaryRecord{Href: fmt.Sprintf("/tournoi/%d", id), Title: "t"})
	}
	return out
}

func page(next string, ids ...int) fetch.Page {
	return fetch.Page{Items: items(ids...), Next: next}
}

func TestCollectFollowsCursorsToLastPage(t *testing.T) {
	f := &scriptedFetcher{pages: []fetch.Page{
		page("c2", 1, 2),
		page("c3", 3, 4),
		page("", 5),
	}}
	res, err := New(f, logger.Nop()).Collect(context.Background(), fetch.Filters{}, Options{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if res.Stop != StopLastPage || res.Pages != 3 || len(res.Items) != 5 {
		t.Fatalf("stop=%s pages=%d items=%d", res.Stop, res.Pages, len(res.Items))
	}
	want := []string{"", "c2", "c3"}
	for i, c := range want {
		if f.cursors[i] != c {
			t.Fatalf("cursor[%d]=%q want %q", i, f.cursors[i], c)
		}
	}
}

func TestCollectStopsWhenRoundYieldsNothingNew(t *testing.T) {
	same := page("more", 1, 2, 3)
	f := &scriptedFetcher{pages: []fetch.Page{same}}
	res, err := New(f, logger.Nop()).Collect(context.Background(), fetch.Filters{}, Options{MaxPages: 1000})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if res.Stop != StopNoNewItems || res.Pages != 2 || len(res.Items) != 3 {
		t.Fatalf("stop=%s pages=%d items=%d", res.Stop, res.Pages, len(res.Items))
	}
}

func TestCollectStopsAtLimit(t *testing.T) {
	f := &scriptedFetcher{pages: []fetch.Page{
		page("c2", 1, 2),
		page("c3", 3, 4),
		page("", 5, 6),
	}}
	res, err := New(f, logger.Nop()).Collect(context.Background(), fetch.Filters{}, Options{Limit: 3})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if res.Stop != StopLimit || res.Pages != 2 || len(res.Items) != 3 {
		t.Fatalf("stop=%s pages=%d items=%d", res.Stop, res.Pages, len(res.Items))
	}
}

func TestCollectStopsAtMaxPages(t *testing.T) {
	n := 0
	f := &scriptedFetcher{}
	f.onFetch = func(int) {
		n++
		f.pages = append(f.pages, page("next", n))
	}
	res, err := New(f, logger.Nop()).Collect(context.Background(), fetch.Filters{}, Options{MaxPages: 4})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if res.Stop != StopMaxPages || res.Pages != 4 || len(res.Items) != 4 {
		t.Fatalf("stop=%s pages=%d items=%d", res.Stop, res.Pages, len(res.Items))
	}
}

func TestCollectKeepsPartialResultsOnFetchError(t *testing.T) {
	fetchErr := &fetch.Error{Kind: failure.KindRateLimited, URL: "c2"}
	f := &scriptedFetcher{
		pages: []fetch.Page{page("c2", 1, 2)},
		errAt: 2,
		err:   fetchErr,
	}
	res, err := New(f, logger.Nop()).Collect(context.Background(), fetch.Filters{}, Options{})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if res.Stop != StopError || len(res.Items) != 2 || res.Pages != 1 {
		t.Fatalf("stop=%s pages=%d items=%d", res.Stop, res.Pages, len(res.Items))
	}
}

func TestCollectCanceledBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &scriptedFetcher{pages: []fetch.Page{page("c2", 1), page("", 2)}}
	f.onFetch = func(n int) {
		if n == 1 {
			cancel()
		}
	}
	res, err := New(f, logger.Nop()).Collect(ctx, fetch.Filters{}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Stop != StopCanceled || len(f.cursors) != 1 {
		t.Fatalf("stop=%s fetches=%d", res.Stop, len(f.cursors))
	}
}
