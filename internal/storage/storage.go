package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aiwuxian/dungeon-core/internal/models"
)

// SQLiteStore 默认存档后端，每个槽位一行：摘要列 + 完整状态 JSON
type SQLiteStore struct {
	db       *sql.DB
	maxSlots int
}

var _ SlotStore = (*SQLiteStore)(nil)

func NewSQLite(dbPath string, maxSlots int) (*SQLiteStore, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// 单会话，单连接即可避免写锁竞争
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, maxSlots: maxSlots}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据库结构失败: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS save_slots (
		slot INTEGER PRIMARY KEY,
		session_id TEXT NOT NULL,
		level INTEGER NOT NULL,
		location TEXT,
		health INTEGER NOT NULL,
		game_over INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL, -- JSON object
		last_played DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save 写入槽位，整体替换旧内容
func (s *SQLiteStore) Save(ctx context.Context, slot int, state *models.PlayerState) error {
	if err := checkSlot(slot, s.maxSlots); err != nil {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO save_slots (slot, session_id, level, location, health, game_over, state, last_played)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, slot, state.SessionID, state.Level, state.Location, state.Health, state.GameOver, string(data), state.LastPlayed)
	if err != nil {
		return fmt.Errorf("写入存档失败: %w", err)
	}

	log.Printf("💾 [存档] 槽位 %d 已保存 (Lv %d, %s)\n", slot, state.Level, state.Location)
	return nil
}

// Load 读取槽位的完整状态
func (s *SQLiteStore) Load(ctx context.Context, slot int) (*models.PlayerState, error) {
	if err := checkSlot(slot, s.maxSlots); err != nil {
		return nil, err
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM save_slots WHERE slot = ?`, slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("读取存档失败: %w", err)
	}

	var state models.PlayerState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("%w: slot %d: %v", ErrCorruptSlot, slot, err)
	}

	log.Printf("📂 [读档] 槽位 %d (Lv %d, %s)\n", slot, state.Level, state.Location)
	return &state, nil
}

// Info 只读摘要列
func (s *SQLiteStore) Info(ctx context.Context, slot int) (*models.SlotInfo, error) {
	if err := checkSlot(slot, s.maxSlots); err != nil {
		return nil, err
	}

	info := models.SlotInfo{Slot: slot}
	err := s.db.QueryRowContext(ctx, `
		SELECT level, location, health, game_over, last_played
		FROM save_slots WHERE slot = ?
	`, slot).Scan(&info.Level, &info.Location, &info.Health, &info.GameOver, &info.LastPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("读取存档摘要失败: %w", err)
	}
	return &info, nil
}

// List 所有已占用槽位的摘要
func (s *SQLiteStore) List(ctx context.Context) ([]models.SlotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot, level, location, health, game_over, last_played
		FROM save_slots
		ORDER BY slot
	`)
	if err != nil {
		return nil, fmt.Errorf("列出存档失败: %w", err)
	}
	defer rows.Close()

	infos := []models.SlotInfo{}
	for rows.Next() {
		var info models.SlotInfo
		if err := rows.Scan(&info.Slot, &info.Level, &info.Location, &info.Health, &info.GameOver, &info.LastPlayed); err != nil {
			log.Printf("⚠️ [存档] 跳过无法读取的槽位: %v\n", err)
			continue
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
