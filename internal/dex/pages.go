package dex

import "fmt"

// Page is one get_pools query window.
type Page struct {
	From  uint64
	Limit uint64
}

func (p Page) String() string {
	return fmt.Sprintf("[%d,%d)", p.From, p.From+p.Limit)
}

// SplitPages covers pool ids [0, count) with pages of at most pageSize.
func SplitPages(count, pageSize uint64) ([]Page, error) {
	if pageSize == 0 {
		return nil, fmt.Errorf("page size must be greater than zero")
	}

	pages := make([]Page, 0, (count+pageSize-1)/pageSize)
	for from := uint64(0); from < count; from += pageSize {
		limit := pageSize
		if remaining := count - from; remaining < limit {
			limit = remaining
		}
		pages = append(pages, Page{From: from, Limit: limit})
	}
	return pages, nil
}
