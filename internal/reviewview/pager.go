package reviewview

import "github.com/utafrali/fitvibe/internal/domain"

// PageSize is both the initial window and the increment of ShowMore.
const PageSize = 5

// Pager tracks how many reviews are visible. It is not reset when the
// filter changes; call Reset for that.
type Pager struct {
	visible int
}

// NewPager returns a pager showing the first page.
func NewPager() *Pager {
	return &Pager{visible: PageSize}
}

// Visible is the current window size.
func (p *Pager) Visible() int { return p.visible }

// ShowMore grows the window by one page.
func (p *Pager) ShowMore() { p.visible += PageSize }

// Reset shrinks the window back to one page.
func (p *Pager) Reset() { p.visible = PageSize }

// Window returns the visible prefix of list.
func (p *Pager) Window(list []domain.Review) []domain.Review {
	if len(list) <= p.visible {
		return list
	}
	return list[:p.visible]
}

// HasMore reports whether list extends past the window.
func (p *Pager) HasMore(list []domain.Review) bool {
	return len(list) > p.visible
}
