// 包 loop：单线程事件循环；会话状态的全部修改都在循环内串行执行
package loop

import (
	"context"
	"time"
)

// Loop 事件投递与定时调度
// 约束：Post 与 AfterFunc 的回调都在循环协程上执行；Go 在循环外执行阻塞任务，结果需再 Post 回循环
type Loop interface {
	Post(fn func())
	Go(fn func())
	AfterFunc(d time.Duration, fn func()) Timer
	Now() time.Time
}

// Timer 可取消的定时任务；Stop 返回 true 表示回调尚未执行
type Timer interface {
	Stop() bool
}

// Caller 在循环上同步执行并等待结果，供 HTTP 层使用
type Caller interface {
	Call(ctx context.Context, fn func()) error
}
