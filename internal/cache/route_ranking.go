package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/smarttransit/travel-booking-backend/internal/models"
)

// RouteRanking counts searches per source/destination pair
type RouteRanking interface {
	Increment(ctx context.Context, source, destination string) error
	Top(ctx context.Context, limit int) ([]models.PopularRoute, error)
}

// RedisRouteRanking keeps the counters in a Redis sorted set
type RedisRouteRanking struct {
	client *redis.Client
	key    string
}

// NewRedisRouteRanking creates a ranking stored under key
func NewRedisRouteRanking(client *redis.Client, key string) *RedisRouteRanking {
	return &RedisRouteRanking{client: client, key: key}
}

// Increment bumps the search count of a route by one
func (r *RedisRouteRanking) Increment(ctx context.Context, source, destination string) error {
	if err := r.client.ZIncrBy(ctx, r.key, 1, routeMember(source, destination)).Err(); err != nil {
		return fmt.Errorf("failed to increment route popularity: %w", err)
	}
	return nil
}

// Top returns up to limit routes, most searched first
func (r *RedisRouteRanking) Top(ctx context.Context, limit int) ([]models.PopularRoute, error) {
	if limit <= 0 {
		return []models.PopularRoute{}, nil
	}

	members, err := r.client.ZRevRangeWithScores(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read popular routes: %w", err)
	}

	routes := make([]models.PopularRoute, 0, len(members))
	for _, z := range members {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		route, ok := parseRouteMember(member)
		if !ok {
			continue
		}
		route.SearchCount = int64(z.Score)
		routes = append(routes, route)
	}
	return routes, nil
}

// NoopRouteRanking is used when Redis is not configured
type NoopRouteRanking struct{}

func (NoopRouteRanking) Increment(context.Context, string, string) error { return nil }

func (NoopRouteRanking) Top(context.Context, int) ([]models.PopularRoute, error) {
	return []models.PopularRoute{}, nil
}

// routeMember encodes the pair as a JSON array so city names may contain any character
func routeMember(source, destination string) string {
	member, _ := json.Marshal([2]string{source, destination})
	return string(member)
}

func parseRouteMember(member string) (models.PopularRoute, bool) {
	var pair []string
	if err := json.Unmarshal([]byte(member), &pair); err != nil || len(pair) != 2 {
		return models.PopularRoute{}, false
	}
	if pair[0] == "" || pair[1] == "" {
		return models.PopularRoute{}, false
	}
	return models.PopularRoute{Source: pair[0], Destination: pair[1]}, true
}
