package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/regqa/internal/model"
	"github.com/kart-io/regqa/internal/pkg/qa/normalize"
	"github.com/kart-io/regqa/pkg/utils/json"
)

// clearBatchSize 整体失效时单条 DEL 命令携带的键数上限。
const clearBatchSize = 128

// QueryCacheConfig 查询缓存配置。
type QueryCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// QueryCache 查询结果缓存。
//
// 缓存键由规范化后的全部查询维度派生，同一问题在不同省份或资产
// 类型下是不同的缓存条目。拒答不写入缓存。关闭或 Redis 不可用时
// 所有操作按未命中降级，不报错。
type QueryCache struct {
	redis  *goredis.Client
	config *QueryCacheConfig
}

// NewQueryCache 创建查询缓存实例。config 为 nil 时缓存保持关闭。
func NewQueryCache(redis *goredis.Client, config *QueryCacheConfig) *QueryCache {
	if config == nil {
		config = &QueryCacheConfig{}
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "regqa:query:"
	}
	return &QueryCache{
		redis:  redis,
		config: config,
	}
}

func (c *QueryCache) disabled() bool {
	return !c.config.Enabled || c.redis == nil
}

// generateCacheKey 把规范化查询的全部维度折叠为一个定长键。
func (c *QueryCache) generateCacheKey(q normalize.Query) string {
	payload := strings.Join([]string{q.Province, q.Asset, q.DocClass, q.Language, q.Question}, "|")
	sum := sha256.Sum256([]byte(payload))
	return c.config.KeyPrefix + hex.EncodeToString(sum[:])
}

// Get 读取缓存的查询结果。未命中与缓存关闭都返回 (nil, nil)。
func (c *QueryCache) Get(ctx context.Context, q normalize.Query) (*model.QueryResult, error) {
	if c.disabled() {
		return nil, nil
	}

	key := c.generateCacheKey(q)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		logger.Debugw("查询缓存未命中", "question", q.Question, "key", key)
		return nil, nil
	}
	if err != nil {
		logger.Warnw("读取查询缓存失败", "error", err.Error(), "key", key)
		return nil, err
	}

	var result model.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		// 反序列化失败说明条目已损坏，顺手删除
		logger.Warnw("缓存条目损坏，已删除", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Infow("查询缓存命中", "question", q.Question, "key", key, "answer_length", len(result.Answer))
	return &result, nil
}

// Set 将查询结果写入缓存。
func (c *QueryCache) Set(ctx context.Context, q normalize.Query, result *model.QueryResult) error {
	if c.disabled() {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	key := c.generateCacheKey(q)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("写入查询缓存失败", "error", err.Error(), "key", key)
		return err
	}

	logger.Debugw("查询结果已缓存", "question", q.Question, "key", key, "ttl", c.config.TTL)
	return nil
}

// Clear 删除该前缀下的全部缓存条目。新条文入库后调用，防止继续
// 返回基于旧索引的回答。
func (c *QueryCache) Clear(ctx context.Context) error {
	if c.disabled() {
		return nil
	}

	deleted := 0
	batch := make([]string, 0, clearBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.redis.Del(ctx, batch...).Err(); err != nil {
			return err
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= clearBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warnw("扫描查询缓存失败", "error", err.Error())
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Infow("查询缓存已清空", "deleted_count", deleted)
	return nil
}

// GetStats 统计当前缓存条目数与配置，随 /v1/index/stats 透出。
func (c *QueryCache) GetStats(ctx context.Context) (map[string]interface{}, error) {
	if c.disabled() {
		return map[string]interface{}{"enabled": false}, nil
	}

	keys := 0
	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"enabled":    true,
		"key_count":  keys,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}, nil
}
