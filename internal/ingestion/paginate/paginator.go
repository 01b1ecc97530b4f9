package paginate

import (
	"context"

	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/fetch"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

const DefaultMaxPages = 50

type Fetcher interface {
	FetchPage(ctx context.Context, req fetch.PageRequest) (fetch.Page, error)
}

type StopReason string

const (
	StopLastPage   StopReason = "last_page"
	StopLimit      StopReason = "limit_reached"
	StopNoNewItems StopReason = "no_new_items"
	StopMaxPages   StopReason = "max_pages"
	StopError      StopReason = "error"
	StopCanceled   StopReason = "canceled"
)

type Options struct {
	// Limit caps the number of collected items; 0 means unlimited.
	Limit    int
	MaxPages int
}

type Result struct {
	Items []fetch.RawItem
	Pages int
	Stop  StopReason
}

type Paginator struct {
	fetcher Fetcher
	log     *logger.Logger
}

func New(fetcher Fetcher, log *logger.Logger) *Paginator {
	return &Paginator{fetcher: fetcher, log: log.With("component", "Paginator")}
}

// Collect requests pages strictly one after another. On a fetch failure it
// returns the items collected so far together with the error.
func (p *Paginator) Collect(ctx context.Context, filters fetch.Filters, opts Options) (Result, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	var (
		res    Result
		cursor string
		seen   = map[string]struct{}{}
	)
	for {
		if err := ctx.Err(); err != nil {
			res.Stop = StopCanceled
			return res, failure.Wrap(failure.KindCanceled, err)
		}
		page, err := p.fetcher.FetchPage(ctx, fetch.PageRequest{Filters: filters, Cursor: cursor})
		if err != nil {
			res.Stop = StopError
			if failure.KindOf(err) == failure.KindCanceled {
				res.Stop = StopCanceled
			}
			p.log.Warn("pagination aborted", "page", res.Pages+1, "collected", len(res.Items), "error", err)
			return res, err
		}
		res.Pages++

		fresh := 0
		for _, item := range page.Items {
			if opts.Limit > 0 && len(res.Items) >= opts.Limit {
				break
			}
			key := item.RawKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			res.Items = append(res.Items, item)
			fresh++
		}

		switch {
		case page.Next == "":
			res.Stop = StopLastPage
		case opts.Limit > 0 && len(res.Items) >= opts.Limit:
			res.Stop = StopLimit
		case fresh == 0:
			res.Stop = StopNoNewItems
		case res.Pages >= maxPages:
			res.Stop = StopMaxPages
		}
		if res.Stop != "" {
			p.log.Info("pagination finished", "pages", res.Pages, "items", len(res.Items), "stop", res.Stop)
			return res, nil
		}
		cursor = page.Next
	}
}
