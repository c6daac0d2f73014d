package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shanyrakkit/core"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultConfig returns sensible defaults for Redis configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements the engine.Storage interface using Redis as the backend.
// Data structure:
// - shanyrak:{id} -> hash of row fields
// - shanyrak:name:{name} -> id (uniqueness guard)
// - shanyraks:ids -> zset of ids scored by creation sequence
// - shanyraks:seq -> sequence counter
//
// All mutations run as Lua scripts so concurrent callers against the same id
// serialize inside Redis instead of racing through read-modify-write.
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed storage with the provided configuration.
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing).
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func rowKey(id core.ShanyrakID) string { return fmt.Sprintf("shanyrak:%s", id) }
func nameKey(name string) string       { return fmt.Sprintf("shanyrak:name:%s", name) }

const idsKey = "shanyraks:ids"
const seqKey = "shanyraks:seq"

var insertScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return redis.error_reply('name_conflict')
	end
	local seq = redis.call('INCR', KEYS[2])
	redis.call('SET', KEYS[1], ARGV[1])
	redis.call('HSET', KEYS[3],
		'id', ARGV[1], 'name', ARGV[2], 'color', ARGV[3],
		'points', 0, 'members', 0, 'seq', seq,
		'created', ARGV[4], 'updated', ARGV[4])
	redis.call('ZADD', KEYS[4], seq, ARGV[1])
	return seq
`)

var addPointsScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return redis.error_reply('not_found')
	end
	local total = redis.call('HINCRBY', KEYS[1], 'points', ARGV[1])
	redis.call('HSET', KEYS[1], 'updated', ARGV[2])
	return total
`)

var adjustMembersScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return redis.error_reply('not_found')
	end
	local current = tonumber(redis.call('HGET', KEYS[1], 'members') or '0')
	local next_val = current + tonumber(ARGV[1])
	if next_val < 0 then
		return redis.error_reply('members_negative')
	end
	redis.call('HSET', KEYS[1], 'members', next_val, 'updated', ARGV[2])
	return next_val
`)

func (s *Store) Insert(ctx context.Context, name, color string) (core.Shanyrak, error) {
	id := core.ShanyrakID(uuid.NewString())
	now := time.Now().UTC().Format(time.RFC3339Nano)
	keys := []string{nameKey(name), seqKey, rowKey(id), idsKey}
	if err := insertScript.Run(ctx, s.client, keys, string(id), name, color, now).Err(); err != nil {
		if strings.Contains(err.Error(), "name_conflict") {
			return core.Shanyrak{}, core.Conflictf("shanyrak %q already exists", name)
		}
		return core.Shanyrak{}, core.Internal("failed to insert shanyrak", err)
	}
	return s.Get(ctx, id)
}

func (s *Store) Get(ctx context.Context, id core.ShanyrakID) (core.Shanyrak, error) {
	fields, err := s.client.HGetAll(ctx, rowKey(id)).Result()
	if err != nil {
		return core.Shanyrak{}, core.Internal("failed to get shanyrak", err)
	}
	if len(fields) == 0 {
		return core.Shanyrak{}, core.NotFoundf("shanyrak %s not found", id)
	}
	return rowFromFields(fields)
}

func (s *Store) List(ctx context.Context) ([]core.Shanyrak, error) {
	ids, err := s.client.ZRange(ctx, idsKey, 0, -1).Result()
	if err != nil {
		return nil, core.Internal("failed to list shanyrak ids", err)
	}
	out := make([]core.Shanyrak, 0, len(ids))
	for _, id := range ids {
		row, err := s.Get(ctx, core.ShanyrakID(id))
		if err != nil {
			if core.IsNotFound(err) {
				continue // index entry without a row; skip
			}
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// ListByPoints sorts in Go rather than with a points-scored ZSET: ZSET ties
// order lexically by member, but the contract wants creation order.
func (s *Store) ListByPoints(ctx context.Context) ([]core.Shanyrak, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points == rows[j].Points {
			return rows[i].Seq < rows[j].Seq
		}
		return rows[i].Points > rows[j].Points
	})
	return rows, nil
}

func (s *Store) AddPoints(ctx context.Context, id core.ShanyrakID, delta int64) (core.Shanyrak, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := addPointsScript.Run(ctx, s.client, []string{rowKey(id)}, delta, now).Err()
	if err != nil {
		if strings.Contains(err.Error(), "not_found") {
			return core.Shanyrak{}, core.NotFoundf("shanyrak %s not found", id)
		}
		return core.Shanyrak{}, core.Internal("failed to add points", err)
	}
	return s.Get(ctx, id)
}

func (s *Store) AdjustMembers(ctx context.Context, id core.ShanyrakID, delta int64) (core.Shanyrak, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := adjustMembersScript.Run(ctx, s.client, []string{rowKey(id)}, delta, now).Err()
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not_found"):
			return core.Shanyrak{}, core.NotFoundf("shanyrak %s not found", id)
		case strings.Contains(err.Error(), "members_negative"):
			return core.Shanyrak{}, core.Invalidf("members cannot go below 0 (delta %d)", delta)
		default:
			return core.Shanyrak{}, core.Internal("failed to adjust members", err)
		}
	}
	return s.Get(ctx, id)
}

func rowFromFields(fields map[string]string) (core.Shanyrak, error) {
	points, err := strconv.ParseInt(fields["points"], 10, 64)
	if err != nil {
		return core.Shanyrak{}, core.Internal("corrupt points field", err)
	}
	members, err := strconv.ParseInt(fields["members"], 10, 64)
	if err != nil {
		return core.Shanyrak{}, core.Internal("corrupt members field", err)
	}
	seq, err := strconv.ParseInt(fields["seq"], 10, 64)
	if err != nil {
		return core.Shanyrak{}, core.Internal("corrupt seq field", err)
	}
	created, _ := time.Parse(time.RFC3339Nano, fields["created"])
	updated, _ := time.Parse(time.RFC3339Nano, fields["updated"])
	return core.Shanyrak{
		ID:      core.ShanyrakID(fields["id"]),
		Name:    fields["name"],
		Color:   fields["color"],
		Points:  points,
		Members: members,
		Seq:     seq,
		Created: created,
		Updated: updated,
	}, nil
}
