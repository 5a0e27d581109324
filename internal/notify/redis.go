package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campuslink/resources-backend/internal/models"
)

var RedisClient *redis.Client

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// RedisPublisher publishes emitted events to the resource:events channel so
// out-of-process consumers (email workers, dashboards) can pick them up.
type RedisPublisher struct {
	Client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{Client: client}
}

func (p *RedisPublisher) Notify(userID uint, event Event, payload map[string]interface{}) {
	message := map[string]interface{}{
		"userId":    userID,
		"event":     string(event),
		"payload":   payload,
		"timestamp": time.Now().Unix(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", event, err)
		return
	}

	ctx := context.Background()
	if err := p.Client.Publish(ctx, "resource:events", data).Err(); err != nil {
		log.Printf("Failed to publish %s event: %v", event, err)
	}
}

// CacheAvailableRooms stores the rooms matching an availability search
func CacheAvailableRooms(ctx context.Context, start, end time.Time, minCapacity int, rooms []models.Room) error {
	key := availabilityKey(start, end, minCapacity)
	data, err := json.Marshal(rooms)
	if err != nil {
		return err
	}
	return RedisClient.Set(ctx, key, data, 2*time.Minute).Err()
}

// GetCachedAvailableRooms retrieves a cached availability search result
func GetCachedAvailableRooms(ctx context.Context, start, end time.Time, minCapacity int) ([]models.Room, error) {
	key := availabilityKey(start, end, minCapacity)
	data, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var rooms []models.Room
	if err := json.Unmarshal([]byte(data), &rooms); err != nil {
		return nil, err
	}

	return rooms, nil
}

// InvalidateRoomAvailability drops cached searches after a rental write.
// Availability entries are keyed by interval, so a cheap full scan of the
// availability prefix is used rather than tracking reverse indexes.
func InvalidateRoomAvailability(ctx context.Context) {
	iter := RedisClient.Scan(ctx, 0, "rooms:available:*", 100).Iterator()
	for iter.Next(ctx) {
		RedisClient.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("Failed to invalidate availability cache: %v", err)
	}
}

func availabilityKey(start, end time.Time, minCapacity int) string {
	return fmt.Sprintf("rooms:available:%d:%d:%d", start.Unix(), end.Unix(), minCapacity)
}
