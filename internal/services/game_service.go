package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/aiwuxian/dungeon-core/internal/models"
)

// TurnChanges 本回合前后的数值差异，用于渲染
type TurnChanges struct {
	HP          int      `json:"hp"`
	Gold        int      `json:"gold"`
	XP          int      `json:"xp"`
	ItemsGained []string `json:"items_gained,omitempty"`
	ItemsLost   []string `json:"items_lost,omitempty"`
	NewLevel    int      `json:"new_level,omitempty"` // 升级时为新等级
	Died        bool     `json:"died"`
}

// Empty 没有任何变化
func (c TurnChanges) Empty() bool {
	return c.HP == 0 && c.Gold == 0 && c.XP == 0 && len(c.ItemsGained) == 0 &&
		len(c.ItemsLost) == 0 && c.NewLevel == 0 && !c.Died
}

// TurnResult 一回合的完整结果
type TurnResult struct {
	Input        string              `json:"input"`
	Command      Command             `json:"command"`
	Text         string              `json:"text"` // 渲染后的回合文本
	Narrative    string              `json:"narrative"`
	Choices      []string            `json:"choices"`
	Facts        []string            `json:"facts,omitempty"`
	Combat       *CombatOutcome      `json:"combat,omitempty"`
	Item         *ItemOutcome        `json:"item,omitempty"`
	Changes      TurnChanges         `json:"changes"`
	LevelsGained int                 `json:"levels_gained"`
	AIStatus     models.ResultStatus `json:"ai_status,omitempty"`
	Terminal     bool                `json:"terminal"`
}

// GameService 回合编排：分类 -> 战斗/道具/成长 -> AI 叙事 -> 合并 -> 渲染
type GameService struct {
	narrator Narrator
	states   *StateService
	combat   *CombatResolver
	items    *ItemService
}

func NewGameService(narrator Narrator, states *StateService, combat *CombatResolver, items *ItemService) *GameService {
	return &GameService{
		narrator: narrator,
		states:   states,
		combat:   combat,
		items:    items,
	}
}

// WithNarrator 返回使用另一个叙事客户端的副本（请求级自定义模型）
func (gs *GameService) WithNarrator(narrator Narrator) *GameService {
	clone := *gs
	clone.narrator = narrator
	return &clone
}

// NewGame 新会话
func (gs *GameService) NewGame(prev *models.PlayerState) *models.PlayerState {
	return gs.states.Restart(prev)
}

// ProcessTurn 处理玩家的一次输入。AI 失败不会返回错误，每个回合都有可渲染的结果
func (gs *GameService) ProcessTurn(ctx context.Context, state *models.PlayerState, raw string) *TurnResult {
	input := SanitizeInput(raw)

	if state.GameOver {
		log.Println("💀 [回合] 玩家已死亡，拒绝输入")
		return &TurnResult{
			Input:     input,
			Text:      RenderTerminal(state),
			Narrative: RenderTerminal(state),
			Terminal:  true,
		}
	}
	if input == "" {
		return &TurnResult{
			Text:      "The dungeon waits. Type something, or 'help' for commands.",
			Narrative: "The dungeon waits.",
		}
	}

	cmd := Classify(input, state)
	log.Printf("🎮 [回合] 输入: %q -> %s\n", input, cmd.Kind)

	result := &TurnResult{Input: input, Command: cmd}

	switch cmd.Kind {
	case CmdHelp:
		text := RenderHelp()
		gs.states.RecordExchange(state, input, text)
		result.Narrative = text
		result.Text = text
		return result
	case CmdStatus:
		text := RenderStatus(state)
		gs.states.RecordExchange(state, input, text)
		result.Narrative = text
		result.Text = text
		return result
	}

	before := snapshotOf(state)

	switch cmd.Kind {
	case CmdSpawn:
		result.Facts = append(result.Facts, gs.spawnFact(state, cmd.Arg))
	case CmdUseItem:
		result.Item = gs.items.Use(state, cmd.Arg)
		result.Facts = append(result.Facts, result.Item.Fact)
	case CmdEquip:
		result.Item = gs.items.Equip(state, cmd.Arg)
		result.Facts = append(result.Facts, result.Item.Fact)
	case CmdCombat:
		result.Combat = gs.combat.Resolve(state, input)
		if result.Combat != nil {
			result.LevelsGained += gs.states.ApplyCombatOutcome(state, result.Combat)
			result.Facts = append(result.Facts, result.Combat.Fact(state))
		}
	}
	if state.GameOver {
		result.Facts = append(result.Facts, "SYSTEM: the player's health has reached 0. The player DIES. Narrate the death; offer no choices.")
	}

	reply := gs.narrator.Query(ctx, input, result.Facts, state)
	result.AIStatus = reply.Status

	authoritative := result.Combat != nil || (result.Item != nil && result.Item.Authoritative())
	itemConsumed := result.Item != nil && result.Item.Consumed
	result.LevelsGained += gs.states.Merge(state, input, reply, authoritative, itemConsumed)

	result.Narrative = reply.Narrative
	result.Choices = reply.Choices
	if state.GameOver {
		result.Choices = nil
	}
	result.Changes = before.diff(state)
	result.Terminal = state.GameOver
	result.Text = RenderTurn(input, result.Narrative, result.Changes, result.Choices)

	log.Printf("📜 [回合] 完成 | HP %d/%d | 金币 %d | 等级 %d | AI %s\n",
		state.Health, state.MaxHealth, state.Gold, state.Level, reply.Status)
	return result
}

func (gs *GameService) spawnFact(state *models.PlayerState, enemyType string) string {
	tmpl, err := gs.combat.Spawn(state, enemyType)
	if errors.Is(err, ErrAlreadyInCombat) {
		return fmt.Sprintf("SYSTEM: the player is already fighting the %s. No new enemy appears.", state.Combat.EnemyName)
	}
	fact := fmt.Sprintf("SPAWN: a %s appears (HP %d). Combat begins. The player must attack, defend or flee.", tmpl.Name, tmpl.HP)
	if enemyType != "" && !strings.EqualFold(enemyType, tmpl.Key) {
		log.Printf("⚔️ [战斗] 未知敌人类型 %q，随机选择 %s\n", enemyType, tmpl.Key)
	}
	return fact
}

// turnSnapshot 回合开始时的数值
type turnSnapshot struct {
	health    int
	gold      int
	xp        int
	level     int
	inventory []string
}

func snapshotOf(state *models.PlayerState) turnSnapshot {
	return turnSnapshot{
		health:    state.Health,
		gold:      state.Gold,
		xp:        state.XP,
		level:     state.Level,
		inventory: append([]string{}, state.Inventory...),
	}
}

func (t turnSnapshot) diff(state *models.PlayerState) TurnChanges {
	c := TurnChanges{
		HP:          state.Health - t.health,
		Gold:        state.Gold - t.gold,
		XP:          state.XP - t.xp,
		ItemsGained: subtractItems(state.Inventory, t.inventory),
		ItemsLost:   subtractItems(t.inventory, state.Inventory),
		Died:        state.GameOver,
	}
	if state.Level > t.level {
		c.NewLevel = state.Level
	}
	return c
}

// subtractItems a 减去 b（按重数）
func subtractItems(a, b []string) []string {
	counts := make(map[string]int, len(b))
	for _, item := range b {
		counts[item]++
	}
	var out []string
	for _, item := range a {
		if counts[item] > 0 {
			counts[item]--
			continue
		}
		out = append(out, item)
	}
	return out
}
