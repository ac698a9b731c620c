// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"codejudge/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewRedisCache starts an in-process redis server bound to the test lifetime.
func NewRedisCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	rc, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("create redis cache failed: %v", err)
	}
	return rc, server
}
