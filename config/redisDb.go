package config

import (
	"context"
	"log"
	"os"

	"github.com/bsm/redislock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedis wires the redis client and the distributed lock client.
// The lock client serializes necessity generation per filter tuple; the
// database unique index remains the hard backstop, so a missing Redis only
// degrades contention behavior, never correctness.
func ConnectRedis() {
	godotenv.Load()

	address := os.Getenv("REDIS_ADDRESS")
	if address == "" {
		address = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis not reachable at %s: %v", address, err)
	}

	rdb = client
	locker = redislock.New(client)
}
