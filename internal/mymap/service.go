package mymap

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yuuki2014/white-map/internal/db"
)

// Service serves a user's cumulative map: every tile visited across all
// their trips. The query spans the whole footprint history, so results are
// cached; footprint writes invalidate.
type Service struct {
	db    db.Querier
	redis *redis.Client
	ttl   time.Duration
}

func NewService(db db.Querier, redisClient *redis.Client, ttl time.Duration) *Service {
	return &Service{db: db, redis: redisClient, ttl: ttl}
}

func (s *Service) VisitedTiles(ctx context.Context, userID string) ([]string, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, cacheKey(userID)).Result()
		if err == nil {
			var geohashes []string
			if err := json.Unmarshal([]byte(cached), &geohashes); err == nil {
				return geohashes, nil
			}
		}
	}

	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT f.geohash
		FROM footprints f
		JOIN trips t ON t.id = f.trip_id
		WHERE t.user_id=$1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	geohashes := []string{}
	for rows.Next() {
		var gh string
		if err := rows.Scan(&gh); err != nil {
			return nil, err
		}
		geohashes = append(geohashes, gh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.redis != nil {
		if encoded, err := json.Marshal(geohashes); err == nil {
			if err := s.redis.Set(ctx, cacheKey(userID), encoded, s.ttl).Err(); err != nil {
				log.Printf("mymap: cache write failed: %v", err)
			}
		}
	}
	return geohashes, nil
}

// Invalidate drops the user's cached map. Safe to call with no cache.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, cacheKey(userID)).Err()
}

func cacheKey(userID string) string {
	return "mymap:" + userID
}
