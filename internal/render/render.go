// 包 render：按批次向列表输出排序结果，维护展示游标与唯一激活项
package render

import (
	"errors"

	"locator/internal/rank"
)

const (
	DefaultInitialBatch   = 100
	DefaultIncrementBatch = 50
)

var ErrIndexOutOfRange = errors.New("render: index out of range")

// Renderer 渐进式展示状态
// 约束：0 <= displayed <= len(results)；激活项至多一个，且必然处于已展示范围内
type Renderer struct {
	results   []rank.Result
	displayed int
	active    int
	initial   int
	increment int
}

// New 批次大小小于等于 0 时使用默认值
func New(initial, increment int) *Renderer {
	if initial <= 0 {
		initial = DefaultInitialBatch
	}
	if increment <= 0 {
		increment = DefaultIncrementBatch
	}
	return &Renderer{active: -1, initial: initial, increment: increment}
}

// Reset 替换结果集，清除激活项，返回首批
func (r *Renderer) Reset(results []rank.Result) []rank.Result {
	r.results = results
	r.displayed = 0
	r.active = -1
	return r.MaterializeNext(r.initial)
}

// MaterializeNext 从游标处取出至多 n 条并推进游标
func (r *Renderer) MaterializeNext(n int) []rank.Result {
	if n <= 0 {
		return nil
	}
	end := r.displayed + n
	if end > len(r.results) {
		end = len(r.results)
	}
	batch := r.results[r.displayed:end]
	r.displayed = end
	return batch
}

func (r *Renderer) LoadMore() []rank.Result { return r.MaterializeNext(r.increment) }

// Ensure 确保第 k 项已展示；必要时一次性推进到 k+1，返回新展示的部分
func (r *Renderer) Ensure(k int) ([]rank.Result, error) {
	if k < 0 || k >= len(r.results) {
		return nil, ErrIndexOutOfRange
	}
	if k < r.displayed {
		return nil, nil
	}
	return r.MaterializeNext(k + 1 - r.displayed), nil
}

func (r *Renderer) Displayed() int { return r.displayed }
func (r *Renderer) Total() int     { return len(r.results) }
func (r *Renderer) Remaining() int { return len(r.results) - r.displayed }
func (r *Renderer) HasMore() bool  { return r.displayed < len(r.results) }

// Result 第 i 项；不要求已展示
func (r *Renderer) Result(i int) (rank.Result, bool) {
	if i < 0 || i >= len(r.results) {
		return rank.Result{}, false
	}
	return r.results[i], true
}

// Results 完整排序结果（只读）
func (r *Renderer) Results() []rank.Result { return r.results }

// Visible 已展示部分
func (r *Renderer) Visible() []rank.Result { return r.results[:r.displayed] }

// IndexOf 按编号查找，未找到返回 -1
func (r *Renderer) IndexOf(id string) int {
	for i, res := range r.results {
		if res.ID == id {
			return i
		}
	}
	return -1
}

// Active 当前激活项下标，无激活项时为 -1
func (r *Renderer) Active() int { return r.active }

func (r *Renderer) SetActive(i int) error {
	if i < 0 || i >= r.displayed {
		return ErrIndexOutOfRange
	}
	r.active = i
	return nil
}

func (r *Renderer) ClearActive() { r.active = -1 }
