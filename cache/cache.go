// Package cache 为经文接口的响应提供键值缓存。
//
// 缓存只用于减少网络请求，不保存任何项目状态；所有实现都可以随时清空。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get 返回缓存的数据；未命中或已过期时 ok 为 false。
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Set 写入数据，ttl <= 0 表示不过期。
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Hash computes a SHA-256 hash of the input data as 64 hex characters.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
