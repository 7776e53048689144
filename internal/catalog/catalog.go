// Package catalog 静态内容目录：敌人模板、道具模板、经验表与战斗常量。
// 进程启动时加载一次，之后只读。
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var defaultCatalog []byte

const (
	MaxLevel       = 10
	MaxGold        = 9999
	MaxInventory   = 10
	ArmorClass     = 12 // 攻击命中阈值
	HealthPerLevel = 10
	HistoryCap     = 20
	MaxInputLength = 500
	FleeThreshold  = 10
	BlindedPenalty = 2
	AttackDie      = 8 // 玩家伤害骰
)

// 状态效果名
const (
	EffectPoisoned = "poisoned"
	EffectBleeding = "bleeding"
	EffectBlinded  = "blinded"
)

// ItemKind 道具类型
type ItemKind string

const (
	KindWeapon     ItemKind = "weapon"
	KindArmor      ItemKind = "armor"
	KindShield     ItemKind = "shield"
	KindConsumable ItemKind = "consumable"
	KindMisc       ItemKind = "misc"
)

// EnemyTemplate 敌人模板
type EnemyTemplate struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	HP          int    `yaml:"hp"`
	DamageDie   int    `yaml:"damage_die"`
	DamageBonus int    `yaml:"damage_bonus"`
	XP          int    `yaml:"xp"`
	Gold        int    `yaml:"gold"`
	Inflicts    string `yaml:"inflicts"` // 命中时附加的状态效果
}

// ItemTemplate 道具模板
type ItemTemplate struct {
	Name        string   `yaml:"name"`
	Kind        ItemKind `yaml:"kind"`
	DamageBonus int      `yaml:"damage_bonus"`
	Heal        int      `yaml:"heal"`
	Cures       string   `yaml:"cures"`
	Escape      bool     `yaml:"escape"`
	Description string   `yaml:"description"`
}

// Equippable 是否可装备
func (t ItemTemplate) Equippable() bool {
	return t.Kind == KindWeapon || t.Kind == KindArmor || t.Kind == KindShield
}

// Catalog 内容目录
type Catalog struct {
	XPTable map[int]int     `yaml:"xp_table"`
	Enemies []EnemyTemplate `yaml:"enemies"`
	Items   []ItemTemplate  `yaml:"items"`

	enemyIndex map[string]int
	itemIndex  map[string]int
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default 返回内置目录
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultCatalog)
		if err != nil {
			panic(fmt.Sprintf("内置目录无效: %v", err))
		}
		defaultCat = c
	})
	return defaultCat
}

// Parse 解析并校验 yaml 目录
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("解析目录失败: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	if len(c.Enemies) == 0 {
		return fmt.Errorf("目录中没有敌人")
	}
	prev := -1
	for level := 1; level <= MaxLevel; level++ {
		xp, ok := c.XPTable[level]
		if !ok {
			return fmt.Errorf("经验表缺少等级 %d", level)
		}
		if xp <= prev {
			return fmt.Errorf("经验表必须递增: 等级 %d", level)
		}
		prev = xp
	}

	c.enemyIndex = make(map[string]int, len(c.Enemies))
	for i, e := range c.Enemies {
		key := strings.ToLower(e.Key)
		if key == "" || e.HP <= 0 || e.DamageDie <= 0 {
			return fmt.Errorf("敌人模板无效: %q", e.Key)
		}
		if _, dup := c.enemyIndex[key]; dup {
			return fmt.Errorf("敌人重复: %q", e.Key)
		}
		c.enemyIndex[key] = i
	}

	c.itemIndex = make(map[string]int, len(c.Items))
	for i, it := range c.Items {
		switch it.Kind {
		case KindWeapon, KindArmor, KindShield, KindConsumable, KindMisc:
		default:
			return fmt.Errorf("道具 %q 类型未知: %q", it.Name, it.Kind)
		}
		if _, dup := c.itemIndex[it.Name]; dup {
			return fmt.Errorf("道具重复: %q", it.Name)
		}
		c.itemIndex[it.Name] = i
	}
	return nil
}

// Enemy 按键查找敌人（忽略大小写），返回值拷贝
func (c *Catalog) Enemy(key string) (EnemyTemplate, bool) {
	i, ok := c.enemyIndex[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return EnemyTemplate{}, false
	}
	return c.Enemies[i], true
}

// EnemyAt 按下标取敌人
func (c *Catalog) EnemyAt(i int) EnemyTemplate {
	return c.Enemies[i]
}

// EnemyCount 敌人模板数量
func (c *Catalog) EnemyCount() int {
	return len(c.Enemies)
}

// EnemyKeys 所有敌人键，按字母序
func (c *Catalog) EnemyKeys() []string {
	keys := make([]string, 0, len(c.Enemies))
	for _, e := range c.Enemies {
		keys = append(keys, e.Key)
	}
	sort.Strings(keys)
	return keys
}

// Item 按名称精确查找道具（大小写敏感）
func (c *Catalog) Item(name string) (ItemTemplate, bool) {
	i, ok := c.itemIndex[name]
	if !ok {
		return ItemTemplate{}, false
	}
	return c.Items[i], true
}

// WeaponBonus 武器伤害加成，未装备或未知武器为 0
func (c *Catalog) WeaponBonus(weapon string) int {
	if weapon == "" {
		return 0
	}
	it, ok := c.Item(weapon)
	if !ok || it.Kind != KindWeapon {
		return 0
	}
	return it.DamageBonus
}

// XPThreshold 升到 level 所需累计经验，超出上限时 ok=false
func (c *Catalog) XPThreshold(level int) (int, bool) {
	if level < 1 || level > MaxLevel {
		return 0, false
	}
	xp, ok := c.XPTable[level]
	return xp, ok
}
