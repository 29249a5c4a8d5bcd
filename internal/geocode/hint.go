package geocode

import (
	"context"

	"locator/internal/geo"
)

type hintKey struct{}

// WithHint 携带边缘节点给出的请求方坐标
func WithHint(ctx context.Context, p geo.Position) context.Context {
	return context.WithValue(ctx, hintKey{}, p)
}

func Hint(ctx context.Context) (geo.Position, bool) {
	p, ok := ctx.Value(hintKey{}).(geo.Position)
	return p, ok && p.Valid() && !(p.Lat == 0 && p.Lng == 0)
}

// Carry 把请求上下文中的定位线索复制到 dst；dst 的生命周期不受请求结束影响
func Carry(dst, req context.Context) context.Context {
	if ip := ClientIP(req); ip != nil {
		dst = WithClientIP(dst, ip)
	}
	if p, ok := Hint(req); ok {
		dst = WithHint(dst, p)
	}
	return dst
}

// Hinted 优先使用上下文中的坐标线索，没有时交给 next
type Hinted struct {
	next Locator
}

func NewHinted(next Locator) *Hinted { return &Hinted{next: next} }

func (h *Hinted) Locate(ctx context.Context) (geo.Position, error) {
	if p, ok := Hint(ctx); ok {
		return p, nil
	}
	if h.next == nil {
		return geo.Position{}, noLocation()
	}
	return h.next.Locate(ctx)
}
