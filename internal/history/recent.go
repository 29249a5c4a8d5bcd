// 包 history：最近检索、上次原点与地图状态的持久化
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"locator/internal/geo"
	"locator/internal/kv"
)

const (
	RecentKey = "retailer_finder_recent"
	MaxRecent = 5
)

// Entry 一条最近检索
type Entry struct {
	Query     string       `json:"query"`
	Position  geo.Position `json:"position"`
	Timestamp time.Time    `json:"timestamp"`
}

// Recent 最近检索列表：按查询文本去重，新的在前，最多 MaxRecent 条
type Recent struct {
	store kv.Store
	now   func() time.Time
}

func NewRecent(store kv.Store, now func() time.Time) *Recent {
	if now == nil {
		now = time.Now
	}
	return &Recent{store: store, now: now}
}

// List 读取列表；损坏的存储内容按空列表处理
func (r *Recent) List(ctx context.Context) ([]Entry, error) {
	raw, ok, err := r.store.Get(ctx, RecentKey)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Entry{}, nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []Entry{}, nil
	}
	return entries, nil
}

// Save 写入一条检索并返回更新后的列表
func (r *Recent) Save(ctx context.Context, query string, pos geo.Position) ([]Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.List(ctx)
	}
	entries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, MaxRecent)
	out = append(out, Entry{Query: query, Position: pos, Timestamp: r.now().UTC()})
	for _, e := range entries {
		if len(out) == MaxRecent {
			break
		}
		if e.Query == query {
			continue
		}
		out = append(out, e)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	if err := r.store.Set(ctx, RecentKey, string(b)); err != nil {
		return nil, err
	}
	return out, nil
}

// Get 第 i 条检索
func (r *Recent) Get(ctx context.Context, i int) (Entry, bool, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	if i < 0 || i >= len(entries) {
		return Entry{}, false, nil
	}
	return entries[i], true, nil
}

// RelativeTime "Xm ago" / "Xh ago" / "Xd ago"，向下取整
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	mins := int(d / time.Minute)
	hours := mins / 60
	days := hours / 24
	switch {
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", days)
}
