package services

import (
	"time"

	"github.com/aiwuxian/dungeon-core/internal/catalog"
	"github.com/aiwuxian/dungeon-core/internal/models"
)

// scriptedRoller 按顺序返回预设点数，用完后返回 1
type scriptedRoller struct {
	rolls []int
	sizes []int
}

func newScriptedRoller(rolls ...int) *scriptedRoller {
	return &scriptedRoller{rolls: rolls}
}

func (s *scriptedRoller) Roll(size int) (int, error) {
	s.sizes = append(s.sizes, size)
	if len(s.rolls) == 0 {
		return 1, nil
	}
	n := s.rolls[0]
	s.rolls = s.rolls[1:]
	return n, nil
}

func (s *scriptedRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, 0, count)
	for i := 0; i < count; i++ {
		n, _ := s.Roll(size)
		out = append(out, n)
	}
	return out, nil
}

func freshState() *models.PlayerState {
	now := time.Now()
	return &models.PlayerState{
		SessionID:  "test-session",
		Health:     100,
		MaxHealth:  100,
		Level:      1,
		Inventory:  []string{"Torch", "Health Potion", "Rusty Dagger"},
		Location:   "Dungeon Entrance",
		Status:     models.StatusExploring,
		History:    []models.HistoryTurn{},
		CreatedAt:  now,
		LastPlayed: now,
	}
}

func newTestResolver(rolls ...int) (*CombatResolver, *scriptedRoller) {
	roller := newScriptedRoller(rolls...)
	return NewCombatResolver(NewRuleEngineWithRoller(roller), catalog.Default()), roller
}

func newTestStateService() *StateService {
	return NewStateService(models.DefaultConfig().Game, NewProgression(catalog.Default()))
}

// fight 让状态进入与指定敌人的战斗
func fight(state *models.PlayerState, key string) {
	tmpl, _ := catalog.Default().Enemy(key)
	state.Combat = models.CombatRecord{
		Active:     true,
		EnemyType:  tmpl.Key,
		EnemyName:  tmpl.Name,
		EnemyHP:    tmpl.HP,
		EnemyMaxHP: tmpl.HP,
	}
	state.Status = models.StatusFighting
}
