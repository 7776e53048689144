package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aiwuxian/dungeon-core/internal/models"
)

const (
	defaultRedisPrefix = "dungeon:slot:"

	fieldState      = "state"
	fieldLevel      = "level"
	fieldLocation   = "location"
	fieldHealth     = "health"
	fieldGameOver   = "game_over"
	fieldLastPlayed = "last_played"
)

// RedisConfig redis 存档后端配置
type RedisConfig struct {
	Client   redis.UniversalClient
	Prefix   string
	MaxSlots int
}

// Validate 检查配置
func (c *RedisConfig) Validate() error {
	if c == nil {
		return errors.New("redis config cannot be nil")
	}
	if c.Client == nil {
		return errors.New("redis client is required")
	}
	if c.MaxSlots < 1 {
		return errors.New("max slots must be positive")
	}
	return nil
}

// RedisStore 每个槽位一个 hash：摘要字段 + 完整状态 JSON
type RedisStore struct {
	client   redis.UniversalClient
	prefix   string
	maxSlots int
}

var _ SlotStore = (*RedisStore)(nil)

func NewRedis(config *RedisConfig) (*RedisStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	prefix := config.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client:   config.Client,
		prefix:   prefix,
		maxSlots: config.MaxSlots,
	}, nil
}

func (r *RedisStore) key(slot int) string {
	return r.prefix + strconv.Itoa(slot)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Save 整体替换槽位内容（事务内先删后写）
func (r *RedisStore) Save(ctx context.Context, slot int, state *models.PlayerState) error {
	if err := checkSlot(slot, r.maxSlots); err != nil {
		return err
	}
	if state == nil {
		return errors.New("state cannot be nil")
	}

	state.LastPlayed = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化存档失败: %w", err)
	}
	info := summaryOf(slot, state)

	key := r.key(slot)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		fieldState, data,
		fieldLevel, info.Level,
		fieldLocation, info.Location,
		fieldHealth, info.Health,
		fieldGameOver, strconv.FormatBool(info.GameOver),
		fieldLastPlayed, info.LastPlayed.Format(time.RFC3339Nano),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入存档失败: %w", err)
	}

	log.Printf("💾 [存档] 槽位 %d 已保存到 redis (Lv %d, %s)\n", slot, state.Level, state.Location)
	return nil
}

// Load 读取完整状态
func (r *RedisStore) Load(ctx context.Context, slot int) (*models.PlayerState, error) {
	if err := checkSlot(slot, r.maxSlots); err != nil {
		return nil, err
	}

	data, err := r.client.HGet(ctx, r.key(slot), fieldState).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, slot)
		}
		return nil, fmt.Errorf("读取存档失败: %w", err)
	}

	var state models.PlayerState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("%w: slot %d: %v", ErrCorruptSlot, slot, err)
	}

	log.Printf("📂 [读档] 槽位 %d (Lv %d, %s)\n", slot, state.Level, state.Location)
	return &state, nil
}

// Info 只读摘要字段
func (r *RedisStore) Info(ctx context.Context, slot int) (*models.SlotInfo, error) {
	if err := checkSlot(slot, r.maxSlots); err != nil {
		return nil, err
	}

	values, err := r.client.HMGet(ctx, r.key(slot), fieldLevel, fieldLocation, fieldHealth, fieldGameOver, fieldLastPlayed).Result()
	if err != nil {
		return nil, fmt.Errorf("读取存档摘要失败: %w", err)
	}
	if values[0] == nil {
		return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, slot)
	}

	info, err := parseInfo(slot, values)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %d: %v", ErrCorruptSlot, slot, err)
	}
	return info, nil
}

// List 所有已占用槽位的摘要
func (r *RedisStore) List(ctx context.Context) ([]models.SlotInfo, error) {
	infos := []models.SlotInfo{}
	for slot := 1; slot <= r.maxSlots; slot++ {
		info, err := r.Info(ctx, slot)
		if errors.Is(err, ErrSlotNotFound) {
			continue
		}
		if errors.Is(err, ErrCorruptSlot) {
			log.Printf("⚠️ [存档] 跳过无法读取的槽位 %d: %v\n", slot, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

func parseInfo(slot int, values []interface{}) (*models.SlotInfo, error) {
	str := func(v interface{}) string {
		s, _ := v.(string)
		return s
	}

	level, err := strconv.Atoi(str(values[0]))
	if err != nil {
		return nil, fmt.Errorf("level: %w", err)
	}
	health, err := strconv.Atoi(str(values[2]))
	if err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	gameOver, err := strconv.ParseBool(str(values[3]))
	if err != nil {
		return nil, fmt.Errorf("game_over: %w", err)
	}
	lastPlayed, err := time.Parse(time.RFC3339Nano, str(values[4]))
	if err != nil {
		return nil, fmt.Errorf("last_played: %w", err)
	}

	return &models.SlotInfo{
		Slot:       slot,
		Level:      level,
		Location:   str(values[1]),
		Health:     health,
		GameOver:   gameOver,
		LastPlayed: lastPlayed,
	}, nil
}
