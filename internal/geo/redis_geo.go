package geo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-hailing/internal/models"
)

// Claim keys expire on their own in case a crashed node never releases a
// driver; trips resolve well within this window.
const claimTTL = 12 * time.Hour

// RedisDirectory implements Directory on Redis: positions live in a GEO set,
// the availability flag in a plain set, and the on-trip claim is a SETNX key
// so that claiming stays a single atomic step across processes.
type RedisDirectory struct {
	client       *redis.Client
	geoKey       string
	availableKey string
}

func NewRedisDirectory(addr, password, keyPrefix string) *RedisDirectory {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return NewRedisDirectoryWithClient(c, keyPrefix)
}

func NewRedisDirectoryWithClient(c *redis.Client, keyPrefix string) *RedisDirectory {
	return &RedisDirectory{
		client:       c,
		geoKey:       keyPrefix + ":positions",
		availableKey: keyPrefix + ":available",
	}
}

func (r *RedisDirectory) AvailableDrivers(ctx context.Context) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.availableKey).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	pipe := r.client.Pipeline()
	claims := make([]*redis.IntCmd, len(members))
	for i, name := range members {
		claims[i] = pipe.Exists(ctx, r.claimKey(name))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(members))
	for i, name := range members {
		if claims[i].Val() == 0 {
			out = append(out, name)
		}
	}
	return out, nil
}

func (r *RedisDirectory) Positions(ctx context.Context, usernames []string) (map[string]models.Coord, error) {
	if len(usernames) == 0 {
		return map[string]models.Coord{}, nil
	}
	res, err := r.client.GeoPos(ctx, r.geoKey, usernames...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Coord, len(usernames))
	for i, p := range res {
		if p == nil {
			continue // no recorded position
		}
		out[usernames[i]] = models.Coord{Lat: p.Latitude, Lon: p.Longitude}
	}
	return out, nil
}

func (r *RedisDirectory) UpsertPosition(ctx context.Context, username string, c models.Coord) error {
	return r.client.GeoAdd(ctx, r.geoKey, &redis.GeoLocation{
		Name:      username,
		Latitude:  c.Lat,
		Longitude: c.Lon,
	}).Err()
}

func (r *RedisDirectory) SetAvailability(ctx context.Context, username string, available bool) error {
	if available {
		return r.client.SAdd(ctx, r.availableKey, username).Err()
	}
	return r.client.SRem(ctx, r.availableKey, username).Err()
}

func (r *RedisDirectory) ClaimDriver(ctx context.Context, username string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.availableKey, username).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	// SETNX is the atomic step: of two concurrent claims only one sets the key.
	return r.client.SetNX(ctx, r.claimKey(username), "1", claimTTL).Result()
}

func (r *RedisDirectory) ReleaseDriver(ctx context.Context, username string) error {
	return r.client.Del(ctx, r.claimKey(username)).Err()
}

func (r *RedisDirectory) claimKey(username string) string {
	return r.geoKey + ":claim:" + username
}
