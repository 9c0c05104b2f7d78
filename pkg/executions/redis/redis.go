// Package redis provides a Redis-backed execution store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/residentdesk/facilityflow/pkg/executions"
	"github.com/residentdesk/facilityflow/pkg/models"
)

const defaultPrefix = "facilityflow"

// Store keeps each execution as a JSON string plus sorted-set indexes scored
// by start time, one global and one per workflow and per booking.
type Store struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
}

// NewStore connects to the Redis instance described by url
// (redis://[:password@]host:port/db).
func NewStore(ctx context.Context, logger *slog.Logger, url string) (*Store, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewStoreWithClient(client, logger), nil
}

func NewStoreWithClient(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With("module", "redis_executions"),
		prefix: defaultPrefix,
	}
}

func (s *Store) executionKey(id string) string {
	return s.prefix + ":execution:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + ":executions"
}

func (s *Store) workflowIndexKey(workflowID string) string {
	return s.prefix + ":executions:workflow:" + workflowID
}

func (s *Store) bookingIndexKey(bookingID string) string {
	return s.prefix + ":executions:booking:" + bookingID
}

func (s *Store) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	if execution == nil || execution.ID == "" {
		return executions.ErrInvalidExecution
	}

	payload, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	member := redis.Z{
		Score:  float64(execution.StartedAt.UnixMilli()),
		Member: execution.ID,
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.executionKey(execution.ID), payload, 0)
		pipe.ZAdd(ctx, s.indexKey(), member)
		pipe.ZAdd(ctx, s.workflowIndexKey(execution.WorkflowID), member)
		pipe.ZAdd(ctx, s.bookingIndexKey(execution.BookingID), member)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	return nil
}

func (s *Store) ByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	raw, err := s.client.Get(ctx, s.executionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", executions.ErrExecutionNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get execution %s: %w", id, err)
	}

	var execution models.WorkflowExecution

	err = json.Unmarshal(raw, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

func (s *Store) List(ctx context.Context, filter executions.Filter) ([]*models.WorkflowExecution, error) {
	index := s.indexKey()

	switch {
	case filter.WorkflowID != "":
		index = s.workflowIndexKey(filter.WorkflowID)
	case filter.BookingID != "":
		index = s.bookingIndexKey(filter.BookingID)
	}

	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read execution index: %w", err)
	}

	loaded, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*models.WorkflowExecution, 0, len(loaded))

	for _, execution := range loaded {
		if filter.Matches(execution) {
			result = append(result, execution)
		}
	}

	executions.SortNewestFirst(result)

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Prune scans executions started before cutoff; completion always follows start.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read execution index: %w", err)
	}

	loaded, err := s.load(ctx, ids)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, execution := range loaded {
		if !executions.Prunable(execution, cutoff) {
			continue
		}

		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.executionKey(execution.ID))
			pipe.ZRem(ctx, s.indexKey(), execution.ID)
			pipe.ZRem(ctx, s.workflowIndexKey(execution.WorkflowID), execution.ID)
			pipe.ZRem(ctx, s.bookingIndexKey(execution.BookingID), execution.ID)

			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("failed to prune execution %s: %w", execution.ID, err)
		}

		removed++
	}

	return removed, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// load fetches executions for ids in order. Ids whose payload has gone are
// dropped from the global index.
func (s *Store) load(ctx context.Context, ids []string) ([]*models.WorkflowExecution, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.executionKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load executions: %w", err)
	}

	result := make([]*models.WorkflowExecution, 0, len(values))

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			s.logger.WarnContext(ctx, "execution index points to a missing entry", "execution_id", ids[i])
			s.client.ZRem(ctx, s.indexKey(), ids[i])

			continue
		}

		var execution models.WorkflowExecution

		err := json.Unmarshal([]byte(raw), &execution)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution %s: %w", ids[i], err)
		}

		result = append(result, &execution)
	}

	return result, nil
}
