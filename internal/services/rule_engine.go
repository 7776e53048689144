package services

import (
	"log"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/aiwuxian/dungeon-core/internal/models"
)

type RuleEngine struct {
	roller dice.Roller
}

func NewRuleEngine() *RuleEngine {
	return NewRuleEngineWithRoller(dice.DefaultRoller)
}

// NewRuleEngineWithRoller 使用指定骰子（测试中注入固定序列）
func NewRuleEngineWithRoller(roller dice.Roller) *RuleEngine {
	return &RuleEngine{roller: roller}
}

// RollDice 投任意骰子，结果 1..sides
func (re *RuleEngine) RollDice(sides int) int {
	if sides <= 1 {
		return 1
	}
	n, err := re.roller.Roll(sides)
	if err != nil {
		log.Printf("⚠️ 投骰失败 d%d: %v\n", sides, err)
		return 1
	}
	if n < 1 {
		return 1
	}
	if n > sides {
		return sides
	}
	return n
}

// RollD20 投D20骰子
func (re *RuleEngine) RollD20() int {
	return re.RollDice(20)
}

// Pick 在 [0, n) 中均匀选一个下标
func (re *RuleEngine) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return re.RollDice(n) - 1
}

// Check 执行检定：自然 20 必定成功，自然 1 必定失败
func (re *RuleEngine) Check(modifier int, target int) *models.DiceRoll {
	roll := re.RollD20()

	result := &models.DiceRoll{
		Type:     "D20",
		Result:   roll,
		Modifier: modifier,
		Target:   target,
		Success:  roll+modifier >= target,
		Critical: roll == 20 || roll == 1,
	}

	// 大成功
	if roll == 20 {
		result.Success = true
	}
	// 大失败
	if roll == 1 {
		result.Success = false
	}

	return result
}

// CalculateDamage 计算伤害：1..die + bonus，暴击翻倍
func (re *RuleEngine) CalculateDamage(die int, bonus int, critical bool) int {
	damage := re.RollDice(die) + bonus
	if damage < 1 {
		damage = 1
	}
	if critical {
		damage *= 2
	}
	return damage
}
