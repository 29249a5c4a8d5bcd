// 包 failure：会话内各类失败的统一分类（加载、定位、地理编码、缓存）
package failure

import (
	"errors"
	"fmt"
)

// Kind 失败类别
type Kind int

const (
	// Load 网络、解析或非数组载荷导致的候选加载失败
	Load Kind = iota + 1
	// Location 设备定位被拒绝或不可用
	Location
	// Geocode 检索词无法解析为坐标
	Geocode
	// Cache 缓存读写或序列化失败；仅在本地恢复，不向用户暴露
	Cache
)

func (k Kind) String() string {
	switch k {
	case Load:
		return "load"
	case Location:
		return "location"
	case Geocode:
		return "geocode"
	case Cache:
		return "cache"
	}
	return "unknown"
}

// Error 携带类别与操作名的错误
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New 构造分类错误；err 已是同类 *Error 时原样返回，避免重复包装
func New(kind Kind, op string, err error) error {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == kind {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is 判断错误链中是否存在指定类别
func Is(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// KindOf 返回错误链中的首个类别；不存在时返回 0
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
