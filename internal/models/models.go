package models

import "time"

// 玩家状态取值
const (
	StatusExploring = "exploring"
	StatusFighting  = "fighting"
	StatusDead      = "dead"
)

// 对话角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PlayerState 玩家状态（每个会话唯一，由引擎独占，存档时整体序列化）
type PlayerState struct {
	SessionID  string        `json:"session_id"`
	Health     int           `json:"health"`
	MaxHealth  int           `json:"max_health"`
	Level      int           `json:"level"`
	XP         int           `json:"xp"`
	Gold       int           `json:"gold"`
	Inventory  []string      `json:"inventory"`
	Equipment  Equipment     `json:"equipment"`
	Location   string        `json:"location"`
	Status     string        `json:"status"`
	Effects    Effects       `json:"effects"`
	Combat     CombatRecord  `json:"combat"`
	History    []HistoryTurn `json:"history"`
	GameOver   bool          `json:"game_over"`
	DeathCount int           `json:"death_count"`
	TotalKills int           `json:"total_kills"`
	CreatedAt  time.Time     `json:"created_at"`
	LastPlayed time.Time     `json:"last_played"`
	DisplayLog string        `json:"display_log"` // 渲染后的完整记录，核心逻辑不处理
}

// Equipment 装备栏，每个槽位最多一件
type Equipment struct {
	Weapon string `json:"weapon"`
	Armor  string `json:"armor"`
	Shield string `json:"shield"`
}

// Effects 状态效果
type Effects struct {
	Poisoned bool `json:"poisoned"`
	Bleeding bool `json:"bleeding"`
	Blinded  bool `json:"blinded"`
}

// CombatRecord 战斗记录，不在战斗时 Active=false
type CombatRecord struct {
	Active     bool   `json:"active"`
	EnemyType  string `json:"enemy_type"`
	EnemyName  string `json:"enemy_name"`
	EnemyHP    int    `json:"enemy_hp"`
	EnemyMaxHP int    `json:"enemy_max_hp"`
	LastRoll   int    `json:"last_roll"`
	LastDamage int    `json:"last_damage"`
}

// HistoryTurn 对话记忆条目
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Clear 结束战斗，保留最后一次投骰记录
func (c *CombatRecord) Clear() {
	*c = CombatRecord{LastRoll: c.LastRoll, LastDamage: c.LastDamage}
}

// HasItem 背包中是否有该道具（大小写敏感）
func (s *PlayerState) HasItem(name string) bool {
	for _, item := range s.Inventory {
		if item == name {
			return true
		}
	}
	return false
}

// RemoveItem 移除一件同名道具
func (s *PlayerState) RemoveItem(name string) bool {
	for i, item := range s.Inventory {
		if item == name {
			s.Inventory = append(s.Inventory[:i], s.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// IsEquipped 道具是否已装备
func (s *PlayerState) IsEquipped(name string) bool {
	return name != "" && (s.Equipment.Weapon == name || s.Equipment.Armor == name || s.Equipment.Shield == name)
}

// AppendHistory 追加对话记忆，只保留最近 limit 条
func (s *PlayerState) AppendHistory(limit int, turns ...HistoryTurn) {
	s.History = append(s.History, turns...)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]HistoryTurn{}, s.History[len(s.History)-limit:]...)
	}
}

// AppendDisplay 追加到渲染记录
func (s *PlayerState) AppendDisplay(text string) {
	if text == "" {
		return
	}
	if s.DisplayLog != "" {
		s.DisplayLog += "\n\n"
	}
	s.DisplayLog += text
}

// Clone 深拷贝，用于对外暴露快照
func (s *PlayerState) Clone() *PlayerState {
	c := *s
	c.Inventory = append([]string{}, s.Inventory...)
	c.History = append([]HistoryTurn{}, s.History...)
	return &c
}

// DiceRoll 骰子检定结果
type DiceRoll struct {
	Type     string `json:"type"`   // D20, D8 ...
	Result   int    `json:"result"` // 自然骰点
	Modifier int    `json:"modifier"`
	Target   int    `json:"target"` // 目标难度
	Success  bool   `json:"success"`
	Critical bool   `json:"critical"` // 大成功/大失败
}

// Total 骰点加修正
func (d DiceRoll) Total() int {
	return d.Result + d.Modifier
}

// ResultStatus AI 结果来源
type ResultStatus string

const (
	ResultOK          ResultStatus = "ok"
	ResultMock        ResultStatus = "mock"
	ResultFallback    ResultStatus = "fallback"
	ResultUnreachable ResultStatus = "unreachable"
)

// ModelTurnResult 一次 AI 调用的结构化结果，合并进 PlayerState 后丢弃
type ModelTurnResult struct {
	Narrative   string       `json:"narrative" yaml:"narrative"`
	HPChange    int          `json:"hp_change" yaml:"hp_change"`
	GoldChange  int          `json:"gold_change" yaml:"gold_change"`
	NewItem     string       `json:"new_item" yaml:"new_item"`
	ItemUsed    string       `json:"item_used" yaml:"item_used"`
	CombatEnded bool         `json:"combat_ended" yaml:"combat_ended"`
	LevelUp     bool         `json:"level_up" yaml:"level_up"`
	XPGained    int          `json:"xp_gained" yaml:"xp_gained"`
	Choices     []string     `json:"choices" yaml:"choices"`
	Status      ResultStatus `json:"status" yaml:"-"`
	Attempts    int          `json:"attempts" yaml:"-"`
}

// Neutral 结果是否不携带任何数值变化
func (r ModelTurnResult) Neutral() bool {
	return r.HPChange == 0 && r.GoldChange == 0 && r.NewItem == "" && r.ItemUsed == "" && r.XPGained == 0
}

// SlotInfo 存档槽摘要（无需完整加载）
type SlotInfo struct {
	Slot       int       `json:"slot"`
	Level      int       `json:"level"`
	Location   string    `json:"location"`
	Health     int       `json:"health"`
	GameOver   bool      `json:"game_over"`
	LastPlayed time.Time `json:"last_played"`
}

// Config 配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Game     GameConfig     `yaml:"game"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"DUNGEON_PORT"`
	Host string `yaml:"host" env:"DUNGEON_HOST"`
}

type DatabaseConfig struct {
	Driver        string `yaml:"driver" env:"DUNGEON_DB_DRIVER"` // sqlite, redis
	Path          string `yaml:"path" env:"DUNGEON_DB_PATH"`
	RedisAddr     string `yaml:"redis_addr" env:"DUNGEON_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"DUNGEON_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"DUNGEON_REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" env:"DUNGEON_REDIS_PREFIX"`
}

type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	APIKey         string  `yaml:"api_key" env:"DUNGEON_LLM_API_KEY"`
	APIBase        string  `yaml:"api_base" env:"DUNGEON_LLM_API_BASE"`
	Model          string  `yaml:"model" env:"DUNGEON_LLM_MODEL"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	RetryBackoffMS int     `yaml:"retry_backoff_ms"`
	HistoryWindow  int     `yaml:"history_window"`
	Mock           bool    `yaml:"mock" env:"DUNGEON_LLM_MOCK"`
	MockDelayMS    int     `yaml:"mock_delay_ms"`

	// AllowCustomHeaders 允许请求头 X-Custom-API-* 覆盖模型配置
	AllowCustomHeaders bool `yaml:"allow_custom_headers" env:"DUNGEON_LLM_ALLOW_CUSTOM_HEADERS"`
}

// Timeout 单次请求超时
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryBackoff 重试间隔
func (c LLMConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// MockDelay 模拟延迟
func (c LLMConfig) MockDelay() time.Duration {
	return time.Duration(c.MockDelayMS) * time.Millisecond
}

type GameConfig struct {
	StartingHealth    int      `yaml:"starting_health"`
	StartingGold      int      `yaml:"starting_gold"`
	StartingLocation  string   `yaml:"starting_location"`
	StartingInventory []string `yaml:"starting_inventory"`
	SaveSlots         int      `yaml:"save_slots"`
}

// DefaultConfig 默认配置，yaml 与环境变量在此基础上覆盖
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: "8050"},
		Database: DatabaseConfig{
			Driver:      "sqlite",
			Path:        "./data/dungeon.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "dungeon:slot:",
		},
		LLM: LLMConfig{
			Provider:       "openai",
			APIBase:        "http://localhost:1234/v1",
			Model:          "local-model",
			Temperature:    0.7,
			MaxTokens:      600,
			TimeoutSeconds: 60,
			MaxRetries:     2,
			RetryBackoffMS: 1000,
			HistoryWindow:  10,
			MockDelayMS:    500,
		},
		Game: GameConfig{
			StartingHealth:    100,
			StartingGold:      0,
			StartingLocation:  "Dungeon Entrance",
			StartingInventory: []string{"Torch", "Health Potion", "Rusty Dagger"},
			SaveSlots:         3,
		},
	}
}
