package keylock

import (
	"hash/fnv"
	"sync"
)

// KeyLock 按字符串键分片的互斥锁
// 保证同一键（VCA地址或用户ID）同一时刻只有一个逻辑写入者
type KeyLock struct {
	shards []sync.Mutex
}

const defaultShards = 64

func New() *KeyLock {
	return &KeyLock{shards: make([]sync.Mutex, defaultShards)}
}

func (l *KeyLock) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.shards[h.Sum32()%uint32(len(l.shards))]
}

func (l *KeyLock) Lock(key string) {
	l.shard(key).Lock()
}

func (l *KeyLock) Unlock(key string) {
	l.shard(key).Unlock()
}

// Do 持有键锁执行fn
func (l *KeyLock) Do(key string, fn func() error) error {
	m := l.shard(key)
	m.Lock()
	defer m.Unlock()
	return fn()
}
