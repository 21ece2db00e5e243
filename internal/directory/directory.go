// Package directory is an optional redis-backed listing of relay rooms, so
// deployments can surface joinable rooms outside the socket protocol. Room
// state itself never lives here; entries are advisory and expire on TTL.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ttlRoom   = 24 * time.Hour
	opTimeout = 2 * time.Second
)

// Entry states.
const (
	StateOpen   = "open"   // one seat taken, joinable
	StateActive = "active" // both seats taken
)

// Entry is stored as JSON under relay:room:<id>.
type Entry struct {
	RoomID    string    `json:"room_id"`
	State     string    `json:"state"`
	Players   int       `json:"players"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Directory lists rooms in redis. A nil *Directory is a valid no-op.
type Directory struct {
	rdb *redis.Client
}

// Open connects to redis by URL and pings it.
func Open(redisURL string) (*Directory, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required for room directory")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Directory{rdb: rdb}, nil
}

// New wraps an existing client.
func New(rdb *redis.Client) *Directory { return &Directory{rdb: rdb} }

func (d *Directory) Close() error {
	if d == nil || d.rdb == nil {
		return nil
	}
	return d.rdb.Close()
}

func keyRoom(roomID string) string { return "relay:room:" + strings.TrimSpace(roomID) }
func keyOpen() string              { return "relay:open" }

// Announce records the room's current seating. Rooms with an empty seat land
// in the open index; full rooms are flipped to active and removed from it.
func (d *Directory) Announce(ctx context.Context, roomID string, players int) error {
	if d == nil || d.rdb == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now()
	e := Entry{RoomID: roomID, Players: players, CreatedAt: now, UpdatedAt: now}
	if prev, err := d.load(ctx, roomID); err != nil {
		return err
	} else if prev != nil {
		e.CreatedAt = prev.CreatedAt
	}
	e.State = StateOpen
	if players >= 2 {
		e.State = StateActive
	}

	raw, err := json.Marshal(&e)
	if err != nil {
		return err
	}
	if err := d.rdb.Set(ctx, keyRoom(roomID), raw, ttlRoom).Err(); err != nil {
		return err
	}
	if e.State == StateOpen {
		if err := d.rdb.SAdd(ctx, keyOpen(), roomID).Err(); err != nil {
			return err
		}
		return d.rdb.Expire(ctx, keyOpen(), ttlRoom).Err()
	}
	return d.rdb.SRem(ctx, keyOpen(), roomID).Err()
}

// ListOpen returns every room still waiting for an opponent. Index entries
// whose meta key has expired are skipped.
func (d *Directory) ListOpen(ctx context.Context) ([]Entry, error) {
	if d == nil || d.rdb == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ids, err := d.rdb.SMembers(ctx, keyOpen()).Result()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, id := range ids {
		e, err := d.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if e == nil || e.State != StateOpen {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (d *Directory) load(ctx context.Context, roomID string) (*Entry, error) {
	raw, err := d.rdb.Get(ctx, keyRoom(roomID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
