package services

import (
	"fmt"
	"strings"

	"github.com/aiwuxian/dungeon-core/internal/catalog"
	"github.com/aiwuxian/dungeon-core/internal/models"
)

const deathLine = "💀 YOU HAVE DIED."

// RenderHelp 帮助文本
func RenderHelp() string {
	return strings.Join([]string{
		"📖 COMMANDS",
		"  help                 show this list",
		"  status               show health, gold, inventory and equipment",
		"  spawn [enemy]        summon an enemy (random if unknown)",
		"  use <item>           use an item from your inventory",
		"  equip <item>         equip a weapon, armor or shield",
		"  attack / defend / flee   while in combat",
		"  anything else        describe what you do",
		"",
		"  enemies: " + strings.Join(catalog.Default().EnemyKeys(), ", "),
	}, "\n")
}

// RenderStatus 状态面板文本
func RenderStatus(state *models.PlayerState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 STATUS\n")
	fmt.Fprintf(&b, "  Level %d (XP %d)", state.Level, state.XP)
	if state.Level < catalog.MaxLevel {
		if next, ok := catalog.Default().XPThreshold(state.Level + 1); ok {
			fmt.Fprintf(&b, ", next at %d", next)
		}
	}
	fmt.Fprintf(&b, "\n  HP %d/%d | Gold %d | %s\n", state.Health, state.MaxHealth, state.Gold, state.Location)

	inventory := "(empty)"
	if len(state.Inventory) > 0 {
		inventory = strings.Join(state.Inventory, ", ")
	}
	fmt.Fprintf(&b, "  Inventory (%d/%d): %s\n", len(state.Inventory), catalog.MaxInventory, inventory)
	fmt.Fprintf(&b, "  Equipment: %s\n", equipmentLine(state.Equipment))

	if effects := activeEffects(state.Effects); len(effects) > 0 {
		fmt.Fprintf(&b, "  Effects: %s\n", strings.Join(effects, ", "))
	}
	if state.Combat.Active {
		fmt.Fprintf(&b, "  ⚔️ Fighting %s (HP %d/%d)\n", state.Combat.EnemyName, state.Combat.EnemyHP, state.Combat.EnemyMaxHP)
	}
	fmt.Fprintf(&b, "  Kills %d | Deaths %d", state.TotalKills, state.DeathCount)
	return b.String()
}

// RenderTurn 渲染一回合: 输入、叙事、变化行、选项
func RenderTurn(input, narrative string, changes TurnChanges, choices []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "> YOU: %s\n\nDM: %s", input, narrative)

	if line := ChangesLine(changes); line != "" {
		fmt.Fprintf(&b, "\n\n%s", line)
	}
	if len(choices) > 0 {
		b.WriteString("\n")
		for i, c := range choices {
			fmt.Fprintf(&b, "\n%d. %s", i+1, c)
		}
	}
	if changes.Died {
		fmt.Fprintf(&b, "\n\n%s", deathLine)
	}
	return b.String()
}

// ChangesLine 形如 (-5 HP, +10 gold, +Item, LEVEL UP! 3)，无变化时为空
func ChangesLine(c TurnChanges) string {
	var parts []string
	if c.HP != 0 {
		parts = append(parts, fmt.Sprintf("%+d HP", c.HP))
	}
	if c.Gold != 0 {
		parts = append(parts, fmt.Sprintf("%+d gold", c.Gold))
	}
	if c.XP != 0 {
		parts = append(parts, fmt.Sprintf("%+d XP", c.XP))
	}
	for _, item := range c.ItemsGained {
		parts = append(parts, "+"+item)
	}
	for _, item := range c.ItemsLost {
		parts = append(parts, "-"+item)
	}
	if c.NewLevel > 0 {
		parts = append(parts, fmt.Sprintf("LEVEL UP! %d", c.NewLevel))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// RenderTerminal 死亡后的固定回复
func RenderTerminal(state *models.PlayerState) string {
	return fmt.Sprintf("%s Level %d, %d kills. Start a new game to play again.", deathLine, state.Level, state.TotalKills)
}
