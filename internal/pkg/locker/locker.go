// Package locker 提供按 key 粒度的进程内互斥锁。
// 数据库层的 SELECT ... FOR UPDATE 保证跨进程一致性，
// 这里的锁用于在进入事务前收敛同进程内的并发请求。
package locker

import "sync"

// KeyedLocker 按 key 串行化操作。
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New 创建 KeyedLocker。
func New() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*entry)}
}

// Lock 获取 key 对应的锁，返回解锁函数。
func (l *KeyedLocker) Lock(key string) func() {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
