package utils

import (
	"sync"
	"time"
)

// cacheItem 内部结构，包含值和过期时间
type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

// TTLCache 带过期时间的内存缓存
// 使用 sync.Map 保证并发安全，过期项在读取时懒删除
type TTLCache[V any] struct {
	items sync.Map
	ttl   time.Duration
	now   func() time.Time
}

// NewTTLCache 创建缓存，ttl <= 0 时默认 10 分钟
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TTLCache[V]{ttl: ttl, now: time.Now}
}

// Set 设置缓存
func (c *TTLCache[V]) Set(key string, value V) {
	c.items.Store(key, cacheItem[V]{
		value:      value,
		expiration: c.now().Add(c.ttl),
	})
}

// Get 获取缓存并验证是否过期
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.items.Load(key)
	if !ok {
		return zero, false
	}

	item := val.(cacheItem[V])
	if c.now().After(item.expiration) {
		c.items.Delete(key) // 懒删除
		return zero, false
	}
	return item.value, true
}

// Delete 删除缓存
func (c *TTLCache[V]) Delete(key string) {
	c.items.Delete(key)
}

// Purge 清理所有过期项，返回清理数量
func (c *TTLCache[V]) Purge() int {
	n := 0
	now := c.now()
	c.items.Range(func(key, val any) bool {
		if now.After(val.(cacheItem[V]).expiration) {
			c.items.Delete(key)
			n++
		}
		return true
	})
	return n
}
