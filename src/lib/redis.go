package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

func availabilityKey(eventId uint) string {
	return fmt.Sprintf("event:%d:availability", eventId)
}

// CacheAvailability stores the serialized availability snapshot for the
// public read path. Staleness here is a display concern only, so a short
// TTL is fine.
func CacheAvailability(ctx context.Context, eventId uint, payload string) {
	rd := GetRedisClient()
	if rd == nil {
		return
	}
	if err := rd.Set(ctx, availabilityKey(eventId), payload, 30*time.Second).Err(); err != nil {
		log.Printf("[redis] Failed to cache availability for event %d: %s\n", eventId, err.Error())
	}
}

func GetCachedAvailability(ctx context.Context, eventId uint) (string, bool) {
	rd := GetRedisClient()
	if rd == nil {
		return "", false
	}
	val, err := rd.Get(ctx, availabilityKey(eventId)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[redis] Error reading availability cache: %s\n", err.Error())
		}
		return "", false
	}
	return val, true
}

// DropAvailability invalidates the snapshot after a mutation committed.
func DropAvailability(ctx context.Context, eventId uint) {
	rd := GetRedisClient()
	if rd == nil {
		return
	}
	if err := rd.Del(ctx, availabilityKey(eventId)).Err(); err != nil {
		log.Printf("[redis] Error invalidating availability cache: %s\n", err.Error())
	}
}
