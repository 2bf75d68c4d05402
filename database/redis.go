package database

import (
	"log"

	"github.com/redis/go-redis/v9"
)

func RedisConnect(addr, password string, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	log.Printf("connection opened to Redis %s/%d", addr, db)
	return client
}
