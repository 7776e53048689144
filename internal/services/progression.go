package services

import (
	"log"

	"github.com/aiwuxian/dungeon-core/internal/catalog"
	"github.com/aiwuxian/dungeon-core/internal/models"
)

// Progression 经验与升级
type Progression struct {
	catalog *catalog.Catalog
}

func NewProgression(cat *catalog.Catalog) *Progression {
	return &Progression{catalog: cat}
}

// CheckLevelUp 是否达到下一级门槛，满级后永远为 false
func (p *Progression) CheckLevelUp(level, xp int) bool {
	if level >= catalog.MaxLevel {
		return false
	}
	required, ok := p.catalog.XPThreshold(level + 1)
	if !ok {
		return false
	}
	return xp >= required
}

// ApplyLevelUp 升一级：提高生命上限并回满
func (p *Progression) ApplyLevelUp(state *models.PlayerState) {
	if state.Level >= catalog.MaxLevel {
		return
	}
	state.Level++
	state.MaxHealth += catalog.HealthPerLevel
	state.Health = state.MaxHealth
	log.Printf("🆙 [升级] 等级 %d，生命上限 %d\n", state.Level, state.MaxHealth)
}

// GrantXP 增加经验并处理连续升级，返回提升的等级数
func (p *Progression) GrantXP(state *models.PlayerState, xp int) int {
	if xp <= 0 {
		return 0
	}
	state.XP += xp

	gained := 0
	for p.CheckLevelUp(state.Level, state.XP) {
		p.ApplyLevelUp(state)
		gained++
	}
	return gained
}
