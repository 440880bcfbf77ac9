package cache

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"team-shortlink/configs"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
)

// feedChannel is the pub/sub channel carrying captured click events to the
// live feed.
const feedChannel = "click_feed"

type CacheManager struct {
	redisClient *redis.Client
	localCache  *cache.Cache
	ctx         context.Context
	mu          sync.RWMutex
	localFeed   []chan []byte
}

var (
	instance *CacheManager
	once     sync.Once
)

func GetCacheManager() *CacheManager {
	once.Do(func() {
		instance = New(configs.AppConfig.RedisURL)
	})
	return instance
}

// New builds a cache manager backed by the given Redis address. An empty
// address, or an unreachable Redis, degrades to the local tier only.
func New(redisURL string) *CacheManager {
	cm := &CacheManager{
		ctx:        context.Background(),
		localCache: cache.New(5*time.Minute, 10*time.Minute),
	}
	if redisURL != "" {
		cm.initialize(redisURL)
	}
	return cm
}

func (cm *CacheManager) initialize(redisURL string) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{
			Addr:     redisURL,
			Password: "", // no password set
			DB:       0,  // use default DB
		}
	}

	cm.redisClient = redis.NewClient(opts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
	defer cancel()

	if err := cm.redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection failed, using local cache only: %v", err)
		cm.redisClient = nil
	} else {
		log.Println("Redis connection established successfully")
	}
}

func (cm *CacheManager) Set(key string, value interface{}, ttl time.Duration) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Store in local cache
	cm.localCache.Set(key, value, ttl)

	// Store in Redis if available
	if cm.redisClient != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
		defer cancel()

		return cm.redisClient.Set(ctx, key, data, ttl).Err()
	}

	return nil
}

func (cm *CacheManager) Get(key string, target interface{}) (bool, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	// Try local cache first
	if val, found := cm.localCache.Get(key); found {
		data, err := json.Marshal(val)
		if err != nil {
			return false, err
		}
		return true, json.Unmarshal(data, target)
	}

	// Try Redis if available
	if cm.redisClient != nil {
		ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
		defer cancel()

		data, err := cm.redisClient.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return false, nil
		} else if err != nil {
			return false, err
		}

		// Store in local cache for faster subsequent access
		cm.localCache.Set(key, json.RawMessage(data), 5*time.Minute)

		return true, json.Unmarshal(data, target)
	}

	return false, nil
}

func (cm *CacheManager) Delete(key string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.localCache.Delete(key)

	if cm.redisClient != nil {
		ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
		defer cancel()
		return cm.redisClient.Del(ctx, key).Err()
	}

	return nil
}

// PublishClick fans a captured click event out to feed subscribers. With
// Redis the message crosses process boundaries; without it, delivery is
// in-process only.
func (cm *CacheManager) PublishClick(data []byte) {
	if cm.redisClient != nil {
		ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
		defer cancel()
		if err := cm.redisClient.Publish(ctx, feedChannel, data).Err(); err != nil {
			log.Printf("Failed to publish click event: %v", err)
		}
		return
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, ch := range cm.localFeed {
		select {
		case ch <- data:
		default:
			// Slow subscriber, drop rather than stall the pipeline.
		}
	}
}

// SubscribeClicks returns a channel of click-event payloads.
func (cm *CacheManager) SubscribeClicks(buffer int) <-chan []byte {
	out := make(chan []byte, buffer)

	if cm.redisClient != nil {
		pubSub := cm.redisClient.Subscribe(cm.ctx, feedChannel)
		go func() {
			for msg := range pubSub.Channel() {
				select {
				case out <- []byte(msg.Payload):
				default:
				}
			}
		}()
		return out
	}

	cm.mu.Lock()
	cm.localFeed = append(cm.localFeed, out)
	cm.mu.Unlock()
	return out
}

func (cm *CacheManager) IsAvailable() bool {
	return cm.redisClient != nil
}
