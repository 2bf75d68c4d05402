package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"chat-gateway/model"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	identityKeyPrefix = "identity:"
	// identityLoadTimeout bounds a shared load, which outlives any single caller.
	identityLoadTimeout = 5 * time.Second
)

// IdentityCache is a cache-aside layer for user identities. A nil cache
// passes every lookup straight to the loader.
type IdentityCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

type cachedIdentity struct {
	ID          uint    `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Avatar      string  `json:"avatar"`
	Rating      float64 `json:"rating"`
	PushToken   string  `json:"push_token"`
}

func NewIdentityCache(client *redis.Client, ttl time.Duration) *IdentityCache {
	return &IdentityCache{client: client, ttl: ttl}
}

// Fetch returns the identity from Redis, or loads it once for all concurrent
// callers and stores it. Redis failures degrade to the loader. The shared
// load runs detached from the caller's cancellation.
func (c *IdentityCache) Fetch(ctx context.Context, id uint, load func(context.Context, uint) (*model.User, error)) (*model.User, error) {
	if c == nil {
		return load(ctx, id)
	}

	key := identityKey(id)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedIdentity
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached.user(), nil
		}
		log.Printf("identity cache: dropping corrupt entry %s", key)
	case errors.Is(err, redis.Nil):
	default:
		log.Printf("identity cache: get %s: %v", key, err)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Waiters share this load; the first caller's cancellation must not fail them.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), identityLoadTimeout)
		defer cancel()

		user, err := load(loadCtx, id)
		if err != nil {
			return nil, err
		}
		c.set(loadCtx, key, user)
		return user, nil
	})
	if err != nil {
		return nil, err
	}

	user := *v.(*model.User)
	return &user, nil
}

// Invalidate drops the cached identity for id.
func (c *IdentityCache) Invalidate(ctx context.Context, id uint) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, identityKey(id)).Err(); err != nil {
		return fmt.Errorf("identity cache delete: %w", err)
	}
	return nil
}

func (c *IdentityCache) set(ctx context.Context, key string, user *model.User) {
	data, err := json.Marshal(cachedIdentity{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
		Rating:      user.Rating,
		PushToken:   user.PushToken,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("identity cache: set %s: %v", key, err)
	}
}

func (ci cachedIdentity) user() *model.User {
	user := &model.User{
		Username:    ci.Username,
		DisplayName: ci.DisplayName,
		Avatar:      ci.Avatar,
		Rating:      ci.Rating,
		PushToken:   ci.PushToken,
	}
	user.ID = ci.ID
	return user
}

func identityKey(id uint) string {
	return fmt.Sprintf("%s%d", identityKeyPrefix, id)
}
