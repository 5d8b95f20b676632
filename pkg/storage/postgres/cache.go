package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/observability"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// RedisCache is a read-through caching layer over a storage.Store. Hot,
// rarely changing reads (boards per team, columns per board, team rosters,
// board member sets) are cached; every write path invalidates the keys it
// could have changed. Task and subtask reads are intentionally uncached:
// they change on every PATCH and the snapshot must never serve stale trees.
type RedisCache struct {
	storage.Store
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewRedisCache creates a new Redis cache layer over the given store.
func NewRedisCache(store storage.Store, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		Store: store,
		redis: client,
		ttl:   5 * time.Minute,
	}, nil
}

// Client exposes the redis client for health checks.
func (c *RedisCache) Client() *redis.Client { return c.redis }

// SetMetrics enables hit/miss counters. Safe to leave unset.
func (c *RedisCache) SetMetrics(metrics *observability.Metrics) {
	c.metrics = metrics
}

// entity derives the metric label from a cache key's prefix.
func entity(key string) string {
	if i := strings.Index(key, ":"); i > 0 {
		return key[:i]
	}
	return key
}

// Close closes the Redis connection and the underlying store.
func (c *RedisCache) Close() error {
	if err := c.redis.Close(); err != nil {
		c.Store.Close()
		return err
	}
	return c.Store.Close()
}

func teamBoardsKey(teamID int64) string  { return fmt.Sprintf("boards:team:%d", teamID) }
func userBoardsKey(username string) string {
	return "boards:user:" + username
}
func columnsKey(boardID int64) string     { return fmt.Sprintf("columns:board:%d", boardID) }
func teamMembersKey(teamID int64) string  { return fmt.Sprintf("members:team:%d", teamID) }
func boardMembersKey(boardID int64) string {
	return fmt.Sprintf("members:board:%d", boardID)
}

// get unmarshals a cached value into dest, reporting whether it was present.
func (c *RedisCache) get(ctx context.Context, key string, dest interface{}) bool {
	cached, err := c.redis.Get(ctx, key).Result()
	hit := err == nil && json.Unmarshal([]byte(cached), dest) == nil
	if c.metrics != nil {
		if hit {
			c.metrics.CacheHitsTotal.WithLabelValues(entity(key)).Inc()
		} else {
			c.metrics.CacheMissesTotal.WithLabelValues(entity(key)).Inc()
		}
	}
	return hit
}

// set stores a value under key; cache write failures are ignored, the next
// read just misses.
func (c *RedisCache) set(ctx context.Context, key string, value interface{}) {
	if data, err := json.Marshal(value); err == nil {
		c.redis.Set(ctx, key, data, c.ttl)
	}
}

func (c *RedisCache) BoardsByTeam(ctx context.Context, teamID int64) ([]*kanban.Board, error) {
	var boards []*kanban.Board
	if c.get(ctx, teamBoardsKey(teamID), &boards) {
		return boards, nil
	}

	boards, err := c.Store.BoardsByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, teamBoardsKey(teamID), boards)
	return boards, nil
}

func (c *RedisCache) BoardsByUser(ctx context.Context, username string) ([]*kanban.Board, error) {
	var boards []*kanban.Board
	if c.get(ctx, userBoardsKey(username), &boards) {
		return boards, nil
	}

	boards, err := c.Store.BoardsByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	c.set(ctx, userBoardsKey(username), boards)
	return boards, nil
}

func (c *RedisCache) ColumnsByBoard(ctx context.Context, boardID int64) ([]*kanban.Column, error) {
	var columns []*kanban.Column
	if c.get(ctx, columnsKey(boardID), &columns) {
		return columns, nil
	}

	columns, err := c.Store.ColumnsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, columnsKey(boardID), columns)
	return columns, nil
}

func (c *RedisCache) TeamMembers(ctx context.Context, teamID int64) ([]*kanban.User, error) {
	var users []*kanban.User
	if c.get(ctx, teamMembersKey(teamID), &users) {
		return users, nil
	}

	users, err := c.Store.TeamMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, teamMembersKey(teamID), users)
	return users, nil
}

func (c *RedisCache) BoardMemberUsernames(ctx context.Context, boardID int64) ([]string, error) {
	var usernames []string
	if c.get(ctx, boardMembersKey(boardID), &usernames) {
		return usernames, nil
	}

	usernames, err := c.Store.BoardMemberUsernames(ctx, boardID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, boardMembersKey(boardID), usernames)
	return usernames, nil
}

// invalidateBoardCreation drops every key a new board can appear under.
func (c *RedisCache) invalidateBoardCreation(ctx context.Context, teamID int64, members []string) {
	keys := []string{teamBoardsKey(teamID)}
	for _, member := range members {
		keys = append(keys, userBoardsKey(member))
	}
	c.redis.Del(ctx, keys...)
}

func (c *RedisCache) CreateBoard(ctx context.Context, board *kanban.Board, members ...string) error {
	if err := c.Store.CreateBoard(ctx, board, members...); err != nil {
		return err
	}
	c.invalidateBoardCreation(ctx, board.TeamID, members)
	return nil
}

func (c *RedisCache) CreateBoardIfTeamBoardless(ctx context.Context, board *kanban.Board) (bool, error) {
	created, err := c.Store.CreateBoardIfTeamBoardless(ctx, board)
	if err != nil {
		return false, err
	}
	if created {
		c.invalidateBoardCreation(ctx, board.TeamID, nil)
	}
	return created, nil
}

func (c *RedisCache) CreateBoardIfUserBoardless(ctx context.Context, board *kanban.Board, username string) (bool, error) {
	created, err := c.Store.CreateBoardIfUserBoardless(ctx, board, username)
	if err != nil {
		return false, err
	}
	if created {
		c.invalidateBoardCreation(ctx, board.TeamID, []string{username})
	}
	return created, nil
}

func (c *RedisCache) CreateColumnsIfAbsent(ctx context.Context, boardID int64) ([]*kanban.Column, bool, error) {
	columns, created, err := c.Store.CreateColumnsIfAbsent(ctx, boardID)
	if err != nil {
		return nil, false, err
	}
	if created {
		c.redis.Del(ctx, columnsKey(boardID))
	}
	return columns, created, nil
}

func (c *RedisCache) SetBoardMembership(ctx context.Context, boardID int64, username string, active bool) error {
	if err := c.Store.SetBoardMembership(ctx, boardID, username, active); err != nil {
		return err
	}
	c.redis.Del(ctx, boardMembersKey(boardID), userBoardsKey(username))
	return nil
}

func (c *RedisCache) CreateUser(ctx context.Context, user *kanban.User) error {
	if err := c.Store.CreateUser(ctx, user); err != nil {
		return err
	}
	c.redis.Del(ctx, teamMembersKey(user.TeamID))
	return nil
}
