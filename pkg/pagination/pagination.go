package pagination

const (
	// DefaultSize is the standard page size when a size is not provided.
	DefaultSize = 25
	// MaxSize caps how many rows any page query can request.
	MaxSize = 100
)

// Params holds page-number pagination inputs from controllers or services. Pages are
// 1-based.
type Params struct {
	Page int
	Size int
}

// NormalizeSize enforces the configured default and maximum sizes.
func NormalizeSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// Normalize clamps the page to at least 1 and the size to the allowed range.
func (p Params) Normalize() Params {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return Params{Page: page, Size: NormalizeSize(p.Size)}
}

// Offset returns the row offset of the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Size
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	Size    int   `json:"size"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
}

// NewPage assembles a page for the given params and total row count.
func NewPage[T any](items []T, params Params, total int64) Page[T] {
	n := params.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Page:    n.Page,
		Size:    n.Size,
		Total:   total,
		HasNext: int64(n.Page*n.Size) < total,
	}
}
