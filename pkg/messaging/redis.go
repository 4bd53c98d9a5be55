// Package messaging은 Redis pub/sub 기반의 이벤트 발행 계층입니다.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Publisher는 채널로 메시지를 발행합니다.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Envelope는 발행되는 모든 메시지의 공통 포맷입니다.
type Envelope struct {
	Type        string      `json:"type"`
	Data        interface{} `json:"data"`
	PublishedAt time.Time   `json:"published_at"`
}

// Dial은 Redis 클라이언트를 생성하고 연결을 확인합니다.
// 반환된 클라이언트는 캐시와 메시징에서 함께 사용합니다.
func Dial(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis 연결 실패: %w", err)
	}
	return client, nil
}

// redisPublisher Redis 발행자 구현체
type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher는 기존 Redis 클라이언트 위에 Publisher를 만듭니다.
func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

// Publish 메시지 발행. []byte와 json.RawMessage는 그대로 전달합니다.
func (r *redisPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	var payload []byte
	switch m := message.(type) {
	case []byte:
		payload = m
	case json.RawMessage:
		payload = m
	default:
		b, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("메시지 직렬화 실패: %w", err)
		}
		payload = b
	}

	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("메시지 발행 실패 (%s): %w", channel, err)
	}
	return nil
}

// NopPublisher는 Redis가 설정되지 않은 환경에서 사용하는 빈 구현체입니다.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
