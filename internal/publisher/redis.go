package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/retaildemo/feedsync/pkg/contracts"
	"github.com/retaildemo/feedsync/pkg/models"
)

const (
	cycleStream        = "sync.cycles"
	resultStreamFormat = "results.declared.%s" // results.declared.SmartPlayKeno
	defaultMaxLen      = 10000
)

// StreamClient is the part of a go-redis client used for publishing
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisPublisher appends cycle reports and declared results to Redis Streams
type RedisPublisher struct {
	client StreamClient
	maxLen int64
}

var _ contracts.Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher over a go-redis client
func NewRedisPublisher(client StreamClient) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		maxLen: defaultMaxLen,
	}
}

// PublishCycle appends a cycle report to the sync.cycles stream
func (p *RedisPublisher) PublishCycle(ctx context.Context, report models.CycleReport) error {
	return p.add(ctx, cycleStream, report)
}

// PublishResult appends a result to its game's results.declared stream
func (p *RedisPublisher) PublishResult(ctx context.Context, result models.GameResult) error {
	return p.add(ctx, ResultStream(result.GameName), result)
}

// ResultStream is the stream a game's declared results go to
func ResultStream(game string) string {
	return fmt.Sprintf(resultStreamFormat, game)
}

func (p *RedisPublisher) add(ctx context.Context, stream string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal stream message: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": data,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}
