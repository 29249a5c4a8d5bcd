package surface

import "locator/internal/rank"

// List 无界面列表：已追加的条目、唯一激活项与固定高度的滚动窗口
type List struct {
	items  []rank.Result
	active int
	first  int
	window int
}

// NewList window 为视窗可容纳的条目数
func NewList(window int) *List {
	if window <= 0 {
		window = 8
	}
	return &List{active: -1, window: window}
}

// Reset 清空列表并滚动到顶部
func (l *List) Reset() {
	l.items = l.items[:0]
	l.active = -1
	l.first = 0
}

// Append 要求连续追加；start 与现有长度不符时忽略
func (l *List) Append(start int, batch []rank.Result) {
	if start != len(l.items) {
		return
	}
	l.items = append(l.items, batch...)
}

func (l *List) SetActive(index int, active bool) {
	switch {
	case active:
		l.active = index
	case l.active == index:
		l.active = -1
	}
}

func (l *List) VisibleRange() (int, int) {
	last := l.first + l.window - 1
	if last >= len(l.items) {
		last = len(l.items) - 1
	}
	return l.first, last
}

// ScrollTo 以最少滚动让 index 可见
func (l *List) ScrollTo(index int) {
	if index < l.first {
		l.first = index
	} else if index >= l.first+l.window {
		l.first = index - l.window + 1
	}
	if l.first < 0 {
		l.first = 0
	}
}

func (l *List) Len() int             { return len(l.items) }
func (l *List) Active() int          { return l.active }
func (l *List) Items() []rank.Result { return l.items }
