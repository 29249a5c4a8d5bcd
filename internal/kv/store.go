// 包 kv：会话级持久化键值存储（候选缓存、最近检索、地图状态）
package kv

import "context"

// Store 持久化字符串键值存储
// 约束：Get 对不存在的键返回 ok=false 且 err=nil；Remove 不存在的键不报错
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
