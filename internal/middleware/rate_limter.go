package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== CooldownLimiter 冷却限流器 ====================

// CooldownLimiter 按 key 冷却的限流器
// 防止同一会话频繁触发 AI 生成类请求
type CooldownLimiter struct {
	locks sync.Map // key -> *lockEntry
	now   func() time.Time
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewCooldownLimiter 创建限流器
func NewCooldownLimiter() *CooldownLimiter {
	return &CooldownLimiter{now: time.Now}
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时记录本次执行时间
// key: 限流键，如 "session:abc:description"
// interval: 冷却间隔
func (r *CooldownLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的限流
func (r *CooldownLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// Sweep 清理超过 idle 未使用的条目，返回清理数量
func (r *CooldownLimiter) Sweep(idle time.Duration) int {
	n := 0
	cutoff := r.now().Add(-idle)
	r.locks.Range(func(key, val any) bool {
		entry := val.(*lockEntry)
		entry.mu.Lock()
		stale := entry.lastTime.Before(cutoff)
		entry.mu.Unlock()
		if stale {
			r.locks.Delete(key)
			n++
		}
		return true
	})
	return n
}

// ==================== Key 生成工具 ====================

// Feature AI 功能类型
type Feature string

const (
	FeatureDescription Feature = "description"
	FeatureSEO         Feature = "seo"
	FeaturePricing     Feature = "pricing"
	FeatureAnalyze     Feature = "analyze"
)

// SessionKey 生成会话级 Key
func SessionKey(sessionID string, feature Feature) string {
	return fmt.Sprintf("session:%s:%s", sessionID, feature)
}

// ClientKey 无会话时按客户端 IP 限流
func ClientKey(ip string, feature Feature) string {
	return fmt.Sprintf("client:%s:%s", ip, feature)
}

// ==================== 默认限流间隔 ====================

// DefaultIntervals 默认冷却间隔
var DefaultIntervals = map[Feature]time.Duration{
	FeatureDescription: 5 * time.Second,
	FeatureSEO:         5 * time.Second,
	FeaturePricing:     3 * time.Second,
	FeatureAnalyze:     2 * time.Second,
}

// GetInterval 获取功能的默认间隔
func GetInterval(feature Feature) time.Duration {
	if interval, ok := DefaultIntervals[feature]; ok {
		return interval
	}
	return 3 * time.Second
}
