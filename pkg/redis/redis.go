package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/config"
)

// ErrNotFound 键不存在或已过期
var ErrNotFound = errors.New("redis: 键不存在")

// Client Redis 客户端封装
// 用于保存生成产物（带 TTL）与接口限流
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// NewFromUniversal 使用已有连接（测试或哨兵 / 集群模式）
func NewFromUniversal(rdb goredis.UniversalClient, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// ── 产物存储 ──

const artifactPrefix = "attendance:artifact:"

// SaveBlob 保存二进制数据，ttl 到期自动删除
func (c *Client) SaveBlob(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, artifactPrefix+id, data, ttl).Err()
}

// LoadBlob 读取二进制数据；不存在时返回 ErrNotFound
func (c *Client) LoadBlob(ctx context.Context, id string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, artifactPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

// ── 限流 ──

// CheckRateLimit 固定窗口计数：窗口内第一次请求设置过期时间，超过 limit 返回 false
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
