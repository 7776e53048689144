package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aiwuxian/dungeon-core/internal/catalog"
	"github.com/aiwuxian/dungeon-core/internal/models"
	servicesmock "github.com/aiwuxian/dungeon-core/internal/services/mock"
)

func newTestGame(narrator Narrator, rolls ...int) *GameService {
	combat, _ := newTestResolver(rolls...)
	return NewGameService(narrator, newTestStateService(), combat, NewItemService(catalog.Default()))
}

func mockLLM() *LLMService {
	config := models.DefaultConfig().LLM
	config.Mock = true
	config.MockDelayMS = 0
	return NewLLMService(config)
}

func TestProcessTurnMockFreeformKeepsHealth(t *testing.T) {
	game := newTestGame(mockLLM())
	state := freshState()

	result := game.ProcessTurn(context.Background(), state, "Atacar")
	assert.Equal(t, CmdFreeform, result.Command.Kind)
	assert.Equal(t, models.ResultMock, result.AIStatus)
	assert.Equal(t, 100, state.Health)
	assert.True(t, result.Changes.Empty())
	assert.Contains(t, result.Text, "> YOU: Atacar")
	assert.Contains(t, result.Text, "1. Keep testing")
	assert.Len(t, state.History, 2)
}

func TestProcessTurnLethalModelDamage(t *testing.T) {
	llm := mockLLM()
	llm.SetMockReply(func(input string) models.ModelTurnResult {
		return models.ModelTurnResult{Narrative: "The ceiling collapses.", HPChange: -5, Choices: []string{"Pray"}}
	})
	game := newTestGame(llm)
	state := freshState()
	state.Health = 5

	result := game.ProcessTurn(context.Background(), state, "pull the lever")
	assert.Equal(t, 0, state.Health)
	assert.True(t, state.GameOver)
	assert.True(t, result.Terminal)
	assert.True(t, result.Changes.Died)
	assert.Empty(t, result.Choices)
	assert.Contains(t, result.Text, "(-5 HP)")
	assert.Contains(t, result.Text, deathLine)
}

func TestProcessTurnAfterDeathIsTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	narrator := servicesmock.NewMockNarrator(ctrl)
	narrator.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	game := newTestGame(narrator)
	state := freshState()
	state.Health = 0
	state.GameOver = true
	state.Status = models.StatusDead
	before := state.Clone()

	for _, input := range []string{"help", "use Health Potion", "/spawn goblin", "attack", ""} {
		result := game.ProcessTurn(context.Background(), state, input)
		assert.True(t, result.Terminal, input)
		assert.Contains(t, result.Text, deathLine)
	}
	assert.Equal(t, before, state)
}

func TestProcessTurnHelpAndStatusAreReadOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	narrator := servicesmock.NewMockNarrator(ctrl)

	game := newTestGame(narrator)
	state := freshState()
	fight(state, "goblin")

	help := game.ProcessTurn(context.Background(), state, "help")
	assert.Equal(t, CmdHelp, help.Command.Kind)
	assert.Contains(t, help.Text, "COMMANDS")

	status := game.ProcessTurn(context.Background(), state, "status")
	assert.Equal(t, CmdStatus, status.Command.Kind)
	assert.Contains(t, status.Text, "STATUS")
	assert.Contains(t, status.Text, "Goblin")

	assert.Equal(t, 100, state.Health)
	assert.Equal(t, 7, state.Combat.EnemyHP)
	assert.Len(t, state.History, 4)
}

func TestProcessTurnEmptyInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	narrator := servicesmock.NewMockNarrator(ctrl)

	game := newTestGame(narrator)
	state := freshState()
	before := state.Clone()

	result := game.ProcessTurn(context.Background(), state, "  \x00  ")
	assert.Contains(t, result.Text, "The dungeon waits")
	assert.Equal(t, before, state)
}

func TestProcessTurnCombatIgnoresModelNumbers(t *testing.T) {
	ctrl := gomock.NewController(t)
	narrator := servicesmock.NewMockNarrator(ctrl)

	var facts []string
	narrator.EXPECT().
		Query(gomock.Any(), "attack the goblin", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, f []string, _ *models.PlayerState) models.ModelTurnResult {
			facts = f
			return models.ModelTurnResult{Narrative: "Your blade finds its mark.", HPChange: -50, GoldChange: 999, Status: models.ResultOK}
		})

	// d20 15 hits AC 12, d8 8 kills the goblin
	game := newTestGame(narrator, 15, 8)
	state := freshState()
	fight(state, "goblin")

	result := game.ProcessTurn(context.Background(), state, "attack the goblin")
	require.NotNil(t, result.Combat)
	assert.True(t, result.Combat.EnemyDefeated)
	require.Len(t, facts, 1)
	assert.Contains(t, facts[0], "COMBAT RESULT")
	assert.Contains(t, facts[0], "DEAD")

	assert.Equal(t, 100, state.Health)
	assert.Equal(t, 8, state.Gold)
	assert.Equal(t, 50, state.XP)
	assert.Equal(t, 1, state.TotalKills)
	assert.False(t, state.Combat.Active)
	assert.Equal(t, models.StatusExploring, state.Status)
	assert.Equal(t, TurnChanges{Gold: 8, XP: 50}, result.Changes)
	assert.Contains(t, result.Text, "(+8 gold, +50 XP)")
}

func TestProcessTurnCombatDeath(t *testing.T) {
	ctrl := gomock.NewController(t)
	narrator := servicesmock.NewMockNarrator(ctrl)

	var facts []string
	narrator.EXPECT().
		Query(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, f []string, _ *models.PlayerState) models.ModelTurnResult {
			facts = f
			return models.ModelTurnResult{Narrative: "Darkness.", Choices: []string{"Get up"}}
		})

	// d20 1 misses, troll hits d10 10 +2
	game := newTestGame(narrator, 1, 10)
	state := freshState()
	state.Health = 4
	fight(state, "troll")

	result := game.ProcessTurn(context.Background(), state, "swing wildly")
	assert.True(t, state.GameOver)
	assert.True(t, result.Terminal)
	assert.Nil(t, result.Choices)
	require.Len(t, facts, 2)
	assert.Contains(t, facts[1], "DIES")
}

func TestProcessTurnUsePotion(t *testing.T) {
	ctrl := gomock.NewController(t)
	narrator := servicesmock.NewMockNarrator(ctrl)
	narrator.EXPECT().
		Query(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.ModelTurnResult{Narrative: "Warmth spreads.", HPChange: 40, ItemUsed: "Torch"})

	game := newTestGame(narrator)
	state := freshState()
	state.Health = 60

	result := game.ProcessTurn(context.Background(), state, "use Health Potion")
	require.NotNil(t, result.Item)
	assert.True(t, result.Item.Consumed)
	assert.Equal(t, 85, state.Health)
	assert.False(t, state.HasItem("Health Potion"))
	assert.True(t, state.HasItem("Torch"))
	assert.Equal(t, 25, result.Changes.HP)
	assert.Equal(t, []string{"Health Potion"}, result.Changes.ItemsLost)
}

func TestProcessTurnSpawn(t *testing.T) {
	ctrl := gomock.NewController(t)
	narrator := servicesmock.NewMockNarrator(ctrl)

	var facts [][]string
	narrator.EXPECT().
		Query(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, f []string, _ *models.PlayerState) models.ModelTurnResult {
			facts = append(facts, f)
			return models.ModelTurnResult{Narrative: "Something stirs."}
		}).Times(2)

	game := newTestGame(narrator)
	state := freshState()

	result := game.ProcessTurn(context.Background(), state, "/spawn orc")
	assert.Equal(t, CmdSpawn, result.Command.Kind)
	assert.True(t, state.Combat.Active)
	assert.Equal(t, "orc", state.Combat.EnemyType)
	assert.Equal(t, 15, state.Combat.EnemyHP)
	assert.Equal(t, models.StatusFighting, state.Status)
	assert.Contains(t, facts[0][0], "SPAWN: a Orc Brute appears (HP 15)")

	game.ProcessTurn(context.Background(), state, "/spawn troll")
	assert.Equal(t, "orc", state.Combat.EnemyType)
	assert.Contains(t, facts[1][0], "already fighting")
}

func TestProcessTurnFallbackIsNeutral(t *testing.T) {
	ctrl := gomock.NewController(t)
	narrator := servicesmock.NewMockNarrator(ctrl)
	narrator.EXPECT().
		Query(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(UnreachableResult(1))

	game := newTestGame(narrator)
	state := freshState()
	before := state.Clone()

	result := game.ProcessTurn(context.Background(), state, "open the chest")
	assert.Equal(t, models.ResultUnreachable, result.AIStatus)
	assert.Contains(t, result.Text, "connection error")
	assert.Equal(t, before.Health, state.Health)
	assert.Equal(t, before.Gold, state.Gold)
	assert.Equal(t, before.Inventory, state.Inventory)
}

func TestWithNarratorCopiesService(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := servicesmock.NewMockNarrator(ctrl)
	second := servicesmock.NewMockNarrator(ctrl)
	second.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.ModelTurnResult{Narrative: "from second"})

	game := newTestGame(first)
	result := game.WithNarrator(second).ProcessTurn(context.Background(), freshState(), "look")
	assert.Equal(t, "from second", result.Narrative)
	assert.Same(t, first, game.narrator)
}

func TestSubtractItems(t *testing.T) {
	assert.Equal(t, []string{"Rope"}, subtractItems([]string{"Torch", "Rope", "Torch"}, []string{"Torch", "Torch"}))
	assert.Nil(t, subtractItems([]string{"Torch"}, []string{"Torch", "Rope"}))
}
