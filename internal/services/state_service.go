package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/aiwuxian/dungeon-core/internal/catalog"
	"github.com/aiwuxian/dungeon-core/internal/models"
)

// StateService 玩家状态的创建、合并与死亡处理
type StateService struct {
	config      models.GameConfig
	progression *Progression
}

func NewStateService(config models.GameConfig, progression *Progression) *StateService {
	return &StateService{
		config:      config,
		progression: progression,
	}
}

// NewGame 创建新的会话状态
func (ss *StateService) NewGame() *models.PlayerState {
	now := time.Now()
	health := ss.config.StartingHealth
	if health <= 0 {
		health = models.DefaultConfig().Game.StartingHealth
	}

	inventory := append([]string{}, ss.config.StartingInventory...)
	if len(inventory) > catalog.MaxInventory {
		inventory = inventory[:catalog.MaxInventory]
	}

	state := &models.PlayerState{
		SessionID:  uuid.New().String(),
		Health:     health,
		MaxHealth:  health,
		Level:      1,
		Gold:       clamp(ss.config.StartingGold, 0, catalog.MaxGold),
		Inventory:  inventory,
		Location:   ss.config.StartingLocation,
		Status:     models.StatusExploring,
		History:    []models.HistoryTurn{},
		CreatedAt:  now,
		LastPlayed: now,
	}

	log.Printf("🆕 [会话] 新游戏 %s | HP %d | 位置 %s\n", state.SessionID, state.Health, state.Location)
	return state
}

// Restart 重新开始，保留累计的死亡与击杀数
func (ss *StateService) Restart(prev *models.PlayerState) *models.PlayerState {
	state := ss.NewGame()
	if prev != nil {
		state.DeathCount = prev.DeathCount
		state.TotalKills = prev.TotalKills
	}
	return state
}

// ApplyCombatOutcome 把战斗结算的伤害与奖励写入玩家状态，返回提升的等级数
func (ss *StateService) ApplyCombatOutcome(state *models.PlayerState, outcome *CombatOutcome) int {
	if outcome == nil {
		return 0
	}

	if outcome.DamageTaken > 0 {
		state.Health = clamp(state.Health-outcome.DamageTaken, 0, state.MaxHealth)
	}
	if outcome.EffectInflicted != "" {
		setEffect(&state.Effects, outcome.EffectInflicted, true)
	}

	levels := 0
	ss.checkDeath(state)
	if outcome.EnemyDefeated && !state.GameOver {
		state.TotalKills++
		state.Gold = clamp(state.Gold+outcome.GoldGained, 0, catalog.MaxGold)
		levels = ss.progression.GrantXP(state, outcome.XPGained)
	}

	ss.syncStatus(state)
	ss.checkDeath(state)
	return levels
}

// Merge 把 AI 结果合并进状态。authoritative 为 true 时本回合数值以引擎计算为准，只采用叙事
func (ss *StateService) Merge(state *models.PlayerState, input string, result models.ModelTurnResult, authoritative, itemConsumed bool) int {
	levels := 0

	if state.GameOver {
		authoritative = true
	}

	if !authoritative {
		state.Health = clamp(state.Health+result.HPChange, 0, state.MaxHealth)
		state.Gold = clamp(state.Gold+result.GoldChange, 0, catalog.MaxGold)
		ss.checkDeath(state)
		// 死亡后不再结算经验，升级回血不能复活玩家
		if !state.GameOver {
			levels = ss.progression.GrantXP(state, clamp(result.XPGained, 0, maxXPReward))
		}
	} else if result.HPChange != 0 || result.GoldChange != 0 || result.XPGained != 0 {
		log.Printf("⚠️ [合并] 本回合由引擎结算，忽略 AI 数值: HP %+d 金币 %+d XP %+d\n",
			result.HPChange, result.GoldChange, result.XPGained)
	}

	if !state.GameOver && state.Health > 0 {
		ss.addItem(state, result.NewItem)
		if result.ItemUsed != "" && !itemConsumed {
			ss.removeItem(state, result.ItemUsed)
		}
	}

	if result.LevelUp && levels == 0 {
		log.Println("⚠️ [合并] AI 声称升级，但经验不足，忽略")
	}
	if result.CombatEnded && state.Combat.Active {
		log.Println("⚠️ [合并] AI 声称战斗结束，但战斗仍在进行，忽略")
	}

	state.AppendHistory(catalog.HistoryCap,
		models.HistoryTurn{Role: models.RoleUser, Content: input},
		models.HistoryTurn{Role: models.RoleAssistant, Content: result.Narrative},
	)
	state.LastPlayed = time.Now()

	ss.syncStatus(state)
	ss.checkDeath(state)
	return levels
}

// RecordExchange 记录不经过 AI 的回合（帮助、状态）
func (ss *StateService) RecordExchange(state *models.PlayerState, input, reply string) {
	state.AppendHistory(catalog.HistoryCap,
		models.HistoryTurn{Role: models.RoleUser, Content: input},
		models.HistoryTurn{Role: models.RoleAssistant, Content: reply},
	)
}

func (ss *StateService) addItem(state *models.PlayerState, item string) {
	if item == "" {
		return
	}
	if state.HasItem(item) {
		log.Printf("🎒 [背包] 已有 %s，跳过\n", item)
		return
	}
	if len(state.Inventory) >= catalog.MaxInventory {
		log.Printf("🎒 [背包] 背包已满 (%d)，丢弃 %s\n", catalog.MaxInventory, item)
		return
	}
	state.Inventory = append(state.Inventory, item)
	log.Printf("🎒 [背包] 获得 %s\n", item)
}

func (ss *StateService) removeItem(state *models.PlayerState, item string) {
	if state.IsEquipped(item) {
		log.Printf("🎒 [背包] %s 已装备，不移除\n", item)
		return
	}
	if state.RemoveItem(item) {
		log.Printf("🎒 [背包] 消耗 %s\n", item)
	}
}

func (ss *StateService) syncStatus(state *models.PlayerState) {
	switch {
	case state.GameOver:
		state.Status = models.StatusDead
	case state.Combat.Active:
		state.Status = models.StatusFighting
	default:
		state.Status = models.StatusExploring
	}
}

// checkDeath 生命归零即游戏结束，只触发一次
func (ss *StateService) checkDeath(state *models.PlayerState) {
	if state.Health > 0 || state.GameOver {
		return
	}
	state.GameOver = true
	state.Status = models.StatusDead
	state.DeathCount++
	state.Combat.Clear()
	log.Printf("💀 [死亡] 玩家死亡 (第 %d 次)\n", state.DeathCount)
}
