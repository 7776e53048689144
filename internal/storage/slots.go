// Package storage 存档槽持久化：整存整取 PlayerState，按整数槽位索引。
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aiwuxian/dungeon-core/internal/models"
)

var (
	ErrSlotNotFound = errors.New("save slot is empty")
	ErrInvalidSlot  = errors.New("invalid save slot")
	ErrCorruptSlot  = errors.New("save slot is unreadable")
)

// SlotStore 存档槽接口，写入为整体替换（后写覆盖）
type SlotStore interface {
	Save(ctx context.Context, slot int, state *models.PlayerState) error
	Load(ctx context.Context, slot int) (*models.PlayerState, error)
	Info(ctx context.Context, slot int) (*models.SlotInfo, error)
	List(ctx context.Context) ([]models.SlotInfo, error)
	Close() error
}

// Open 按配置选择存储后端
func Open(config models.DatabaseConfig, slots int) (SlotStore, error) {
	switch config.Driver {
	case "", "sqlite":
		store, err := NewSQLite(config.Path, slots)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		store, err := NewRedis(&RedisConfig{
			Client:   client,
			Prefix:   config.RedisPrefix,
			MaxSlots: slots,
		})
		if err != nil {
			client.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", config.Driver)
	}
}

func checkSlot(slot, maxSlots int) error {
	if slot < 1 || slot > maxSlots {
		return fmt.Errorf("%w: %d (1..%d)", ErrInvalidSlot, slot, maxSlots)
	}
	return nil
}

func summaryOf(slot int, state *models.PlayerState) models.SlotInfo {
	return models.SlotInfo{
		Slot:       slot,
		Level:      state.Level,
		Location:   state.Location,
		Health:     state.Health,
		GameOver:   state.GameOver,
		LastPlayed: state.LastPlayed,
	}
}
