package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwuxian/dungeon-core/internal/catalog"
	"github.com/aiwuxian/dungeon-core/internal/models"
)

func TestClassifyAction(t *testing.T) {
	tests := []struct {
		text string
		want CombatAction
	}{
		{"I attack the goblin", ActionAttack},
		{"Atacar", ActionAttack},
		{"attack, then flee", ActionAttack},
		{"raise my shield and block", ActionDefend},
		{"defend and run", ActionDefend},
		{"run away!", ActionFlee},
		{"huir", ActionFlee},
		{"防御", ActionDefend},
		{"逃跑", ActionFlee},
		{"dance a jig", ActionUnrecognized},
		{"HIT it!", ActionAttack},
		{"wave a white flag", ActionUnrecognized},
		{"prune the vines", ActionUnrecognized},
		{"the guardian watches", ActionUnrecognized},
		{"我要攻击它", ActionAttack},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAction(tt.text))
		})
	}
}

func TestSpawnKnownEnemy(t *testing.T) {
	cr, _ := newTestResolver()
	state := freshState()

	tmpl, err := cr.Spawn(state, "Skeleton")
	require.NoError(t, err)
	assert.Equal(t, "skeleton", tmpl.Key)
	assert.True(t, state.Combat.Active)
	assert.Equal(t, "Skeleton Warrior", state.Combat.EnemyName)
	assert.Equal(t, 13, state.Combat.EnemyHP)
	assert.Equal(t, models.StatusFighting, state.Status)
}

func TestSpawnUnknownEnemyPicksRandomTemplate(t *testing.T) {
	// d8 = 3 -> third template
	cr, roller := newTestResolver(3)
	state := freshState()

	tmpl, err := cr.Spawn(state, "dragon")
	require.NoError(t, err)

	expected := catalog.Default().EnemyAt(2)
	assert.Equal(t, expected.Key, tmpl.Key)
	assert.Equal(t, []int{catalog.Default().EnemyCount()}, roller.sizes)
	assert.True(t, state.Combat.Active)
	assert.Equal(t, expected.HP, state.Combat.EnemyHP)
	assert.Equal(t, state.Combat.EnemyHP, state.Combat.EnemyMaxHP)
}

func TestSpawnWhileFighting(t *testing.T) {
	cr, _ := newTestResolver()
	state := freshState()
	fight(state, "goblin")

	_, err := cr.Spawn(state, "troll")
	assert.ErrorIs(t, err, ErrAlreadyInCombat)
	assert.Equal(t, "goblin", state.Combat.EnemyType)
}

func TestResolveOutsideCombat(t *testing.T) {
	cr, _ := newTestResolver()
	assert.Nil(t, cr.Resolve(freshState(), "attack"))
}

func TestAttackHitAndRetaliation(t *testing.T) {
	// d20 15 hit, d8 4 damage, troll d10 6 (+2)
	cr, _ := newTestResolver(15, 4, 6)
	state := freshState()
	fight(state, "troll")

	out := cr.Resolve(state, "attack")
	require.NotNil(t, out)
	assert.Equal(t, ActionAttack, out.Action)
	assert.True(t, out.Roll.Success)
	assert.Equal(t, 4, out.DamageDealt)
	assert.Equal(t, 26, out.EnemyHP)
	assert.Equal(t, 26, state.Combat.EnemyHP)
	assert.Equal(t, 8, out.DamageTaken)
	assert.Equal(t, 15, state.Combat.LastRoll)
	assert.Equal(t, 4, state.Combat.LastDamage)
	assert.True(t, state.Combat.Active)
	assert.Equal(t, 100, state.Health, "resolver leaves player numbers to the state service")
}

func TestAttackMissDealsNoDamage(t *testing.T) {
	cr, _ := newTestResolver(5, 3)
	state := freshState()
	fight(state, "goblin")

	out := cr.Resolve(state, "swing at it")
	assert.False(t, out.Roll.Success)
	assert.Zero(t, out.DamageDealt)
	assert.Equal(t, 7, state.Combat.EnemyHP)
	assert.Equal(t, 3, out.DamageTaken)
}

func TestNaturalOneAlwaysMisses(t *testing.T) {
	cr, _ := newTestResolver(1, 2)
	state := freshState()
	state.Level = 10
	state.Equipment.Weapon = "Battle Axe"
	fight(state, "goblin")

	out := cr.Resolve(state, "attack")
	assert.False(t, out.Roll.Success)
	assert.True(t, out.Roll.Critical)
	assert.Zero(t, out.DamageDealt)
}

func TestCriticalHitDoublesDamage(t *testing.T) {
	for _, weapon := range []string{"", "Short Sword"} {
		t.Run("weapon="+weapon, func(t *testing.T) {
			normal, _ := newTestResolver(15, 5, 1)
			crit, _ := newTestResolver(20, 5, 1)

			s1 := freshState()
			s1.Equipment.Weapon = weapon
			fight(s1, "troll")
			s2 := freshState()
			s2.Equipment.Weapon = weapon
			fight(s2, "troll")

			n := normal.Resolve(s1, "attack")
			c := crit.Resolve(s2, "attack")
			require.True(t, n.Roll.Success)
			require.True(t, c.Roll.Success)
			assert.Equal(t, 2*n.DamageDealt, c.DamageDealt)
		})
	}
}

func TestKillGrantsRewardsWithoutRetaliation(t *testing.T) {
	cr, roller := newTestResolver(18, 8)
	state := freshState()
	fight(state, "goblin")

	out := cr.Resolve(state, "stab the goblin")
	assert.True(t, out.EnemyDefeated)
	assert.Zero(t, out.EnemyHP, "enemy hp floors at zero")
	assert.Equal(t, 50, out.XPGained)
	assert.Equal(t, 8, out.GoldGained)
	assert.Zero(t, out.DamageTaken)
	assert.Len(t, roller.sizes, 2, "no enemy damage roll after a kill")

	assert.False(t, state.Combat.Active)
	assert.Equal(t, 18, state.Combat.LastRoll, "last roll survives the reset")
}

func TestEnemyHPNeverIncreasesAcrossAttacks(t *testing.T) {
	cr, _ := newTestResolver(15, 3, 1, 15, 2, 1, 2, 1, 15, 8, 1)
	state := freshState()
	fight(state, "troll")

	prev := state.Combat.EnemyHP
	for i := 0; i < 4 && state.Combat.Active; i++ {
		out := cr.Resolve(state, "attack")
		assert.LessOrEqual(t, out.EnemyHP, prev)
		assert.GreaterOrEqual(t, out.EnemyHP, 0)
		prev = out.EnemyHP
	}
}

func TestDefendHalvesDamage(t *testing.T) {
	tests := []struct {
		roll int
		want int
	}{
		{5, 2},
		{6, 3},
		{1, 1},
	}
	for _, tt := range tests {
		cr, _ := newTestResolver(tt.roll)
		state := freshState()
		fight(state, "goblin")

		out := cr.Resolve(state, "defend")
		assert.Equal(t, ActionDefend, out.Action)
		assert.Equal(t, tt.want, out.DamageTaken)
		assert.True(t, state.Combat.Active)
	}
}

func TestFlee(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		cr, _ := newTestResolver(10)
		state := freshState()
		fight(state, "orc")

		out := cr.Resolve(state, "flee")
		assert.True(t, out.Fled)
		assert.Zero(t, out.DamageTaken)
		assert.False(t, state.Combat.Active)
	})
	t.Run("failure", func(t *testing.T) {
		cr, _ := newTestResolver(9, 4)
		state := freshState()
		fight(state, "goblin")

		out := cr.Resolve(state, "run")
		assert.False(t, out.Fled)
		assert.Equal(t, 4, out.DamageTaken)
		assert.True(t, state.Combat.Active)
	})
}

func TestUnrecognizedActionForfeitsTurn(t *testing.T) {
	cr, _ := newTestResolver(6)
	state := freshState()
	fight(state, "goblin")

	out := cr.Resolve(state, "sing a song")
	assert.Equal(t, ActionUnrecognized, out.Action)
	assert.Nil(t, out.Roll)
	assert.Equal(t, 6, out.DamageTaken)
	assert.Contains(t, out.Fact(state), "loses the turn")
}

func TestEffectsInCombat(t *testing.T) {
	t.Run("blinded lowers attack total", func(t *testing.T) {
		cr, _ := newTestResolver(13, 2)
		state := freshState()
		state.Effects.Blinded = true
		fight(state, "goblin")

		out := cr.Resolve(state, "attack")
		assert.Equal(t, -catalog.BlindedPenalty, out.Roll.Modifier)
		assert.False(t, out.Roll.Success)
	})
	t.Run("poison and bleeding add damage", func(t *testing.T) {
		cr, _ := newTestResolver(3)
		state := freshState()
		state.Effects.Poisoned = true
		state.Effects.Bleeding = true
		fight(state, "goblin")

		out := cr.Resolve(state, "sing")
		assert.Equal(t, 5, out.DamageTaken)
	})
	t.Run("wolf causes bleeding", func(t *testing.T) {
		cr, _ := newTestResolver(2)
		state := freshState()
		fight(state, "wolf")

		out := cr.Resolve(state, "defend")
		assert.Equal(t, catalog.EffectBleeding, out.EffectInflicted)
	})
}

func TestCombatFactMentionsNumbers(t *testing.T) {
	cr, _ := newTestResolver(20, 3, 4)
	state := freshState()
	fight(state, "troll")

	out := cr.Resolve(state, "attack")
	fact := out.Fact(state)
	assert.Contains(t, fact, "CRITICAL HIT for 6 damage")
	assert.Contains(t, fact, "Cave Troll HP 24/30")
	assert.Contains(t, fact, "Player HP now 100/100")
}
