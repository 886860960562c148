package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/render"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/redis"
)

// ErrArtifactNotFound 产物不存在或已过期
var ErrArtifactNotFound = errors.New("产物不存在或已过期")

// ArtifactStore 生成产物存储（按任务 ID 保存打包后的 zip）
type ArtifactStore interface {
	Save(ctx context.Context, id string, art *render.Artifact, ttl time.Duration) error
	Load(ctx context.Context, id string) (*render.Artifact, error)
}

// storedArtifact 存储格式；[]byte 经 JSON 编码为 base64
type storedArtifact struct {
	Format      string `json:"format"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

func encodeArtifact(art *render.Artifact) ([]byte, error) {
	return json.Marshal(storedArtifact{
		Format:      string(art.Format),
		Filename:    art.Filename,
		ContentType: art.ContentType,
		Data:        art.Data,
	})
}

func decodeArtifact(raw []byte) (*render.Artifact, error) {
	var s storedArtifact
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("产物数据损坏: %w", err)
	}
	return &render.Artifact{
		Format:      render.Format(s.Format),
		Filename:    s.Filename,
		ContentType: s.ContentType,
		Data:        s.Data,
	}, nil
}

// ════════════════════════════════════════════════════════════
// Redis 实现
// ════════════════════════════════════════════════════════════

type redisArtifactStore struct {
	rdb *redis.Client
}

// NewRedisArtifactStore 基于 Redis 的产物存储，过期由 Redis TTL 负责
func NewRedisArtifactStore(rdb *redis.Client) ArtifactStore {
	return &redisArtifactStore{rdb: rdb}
}

func (s *redisArtifactStore) Save(ctx context.Context, id string, art *render.Artifact, ttl time.Duration) error {
	raw, err := encodeArtifact(art)
	if err != nil {
		return err
	}
	return s.rdb.SaveBlob(ctx, id, raw, ttl)
}

func (s *redisArtifactStore) Load(ctx context.Context, id string) (*render.Artifact, error) {
	raw, err := s.rdb.LoadBlob(ctx, id)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeArtifact(raw)
}

// ════════════════════════════════════════════════════════════
// 内存实现（未配置 Redis 或 Redis 不可用时降级使用）
// ════════════════════════════════════════════════════════════

type memoryEntry struct {
	art       *render.Artifact
	expiresAt time.Time
}

type memoryArtifactStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryArtifactStore 进程内产物存储；写入时顺带清理过期项
func NewMemoryArtifactStore() ArtifactStore {
	return &memoryArtifactStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *memoryArtifactStore) Save(_ context.Context, id string, art *render.Artifact, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[id] = memoryEntry{art: art, expiresAt: now.Add(ttl)}
	return nil
}

func (s *memoryArtifactStore) Load(_ context.Context, id string) (*render.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return nil, ErrArtifactNotFound
	}
	return e.art, nil
}
