// Package cache provides the redis-backed read cache for identity lookups.
// Every authenticated request re-reads the actor and its association set, so
// those two lookups are the ones worth caching. Writers invalidate; readers
// fall through to the database on any cache error.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"domus/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// Get unmarshals the cached value into dest; found=false on a miss.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func userKey(id uint) string  { return fmt.Sprintf("user:id:%d", id) }
func assocKey(id uint) string { return fmt.Sprintf("assoc:user:%d", id) }

// CacheUser stores a user snapshot.
func (s *CacheService) CacheUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return nil
	}
	return s.Set(ctx, userKey(user.ID), user)
}

// GetUser fetches a cached user snapshot.
func (s *CacheService) GetUser(ctx context.Context, id uint) (*models.User, bool) {
	var user models.User
	found, err := s.Get(ctx, userKey(id), &user)
	if err != nil || !found {
		return nil, false
	}
	return &user, true
}

// InvalidateUser drops the cached user and its association set.
func (s *CacheService) InvalidateUser(ctx context.Context, id uint) error {
	return s.Delete(ctx, userKey(id), assocKey(id))
}

// CacheAssociations stores a user's active association set.
func (s *CacheService) CacheAssociations(ctx context.Context, userID uint, assocs []models.PropertyUserAssociation) error {
	return s.Set(ctx, assocKey(userID), assocs)
}

// GetAssociations fetches a user's cached association set.
func (s *CacheService) GetAssociations(ctx context.Context, userID uint) ([]models.PropertyUserAssociation, bool) {
	var assocs []models.PropertyUserAssociation
	found, err := s.Get(ctx, assocKey(userID), &assocs)
	if err != nil || !found {
		return nil, false
	}
	return assocs, true
}

// InvalidateAssociations drops a user's cached association set.
func (s *CacheService) InvalidateAssociations(ctx context.Context, userID uint) error {
	return s.Delete(ctx, assocKey(userID))
}

// FlushAll clears the cache. Used on startup so stale identity data never
// survives a deploy.
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

func (s *CacheService) Close() error {
	return s.client.Close()
}
