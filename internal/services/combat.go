package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aiwuxian/dungeon-core/internal/catalog"
	"github.com/aiwuxian/dungeon-core/internal/models"
)

// ErrAlreadyInCombat 战斗中不能再召唤敌人
var ErrAlreadyInCombat = errors.New("already in combat")

// CombatAction 战斗行动分类
type CombatAction string

const (
	ActionAttack       CombatAction = "attack"
	ActionDefend       CombatAction = "defend"
	ActionFlee         CombatAction = "flee"
	ActionUnrecognized CombatAction = "unrecognized"
)

// 关键词集合，按 攻击 > 防御 > 逃跑 的顺序匹配
var (
	attackKeywords = []string{"attack", "attacks", "hit", "hits", "strike", "strikes", "slash", "slashes", "stab", "stabs", "swing", "swings", "fight", "fights", "atacar", "ataco", "ataca", "golpe", "golpear", "攻击", "砍"}
	defendKeywords = []string{"defend", "defends", "block", "blocks", "parry", "guard", "defender", "defiendo", "bloquear", "cubrir", "cubro", "防御", "格挡"}
	fleeKeywords   = []string{"flee", "run", "escape", "retreat", "huir", "huyo", "escapar", "correr", "逃跑", "撤退"}
)

// ClassifyAction 启发式意图分类，多个关键词同时出现时按固定优先级
func ClassifyAction(text string) CombatAction {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, attackKeywords):
		return ActionAttack
	case containsAny(lower, defendKeywords):
		return ActionDefend
	case containsAny(lower, fleeKeywords):
		return ActionFlee
	default:
		return ActionUnrecognized
	}
}

// containsAny 拉丁字母关键词按整词匹配；中文关键词没有空格分词，按子串匹配
func containsAny(text string, keywords []string) bool {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, k := range keywords {
		if r, _ := utf8.DecodeRuneInString(k); r >= utf8.RuneSelf {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == k {
				return true
			}
		}
	}
	return false
}

// CombatOutcome 一回合战斗的骰子结果，作为事实交给 AI 叙述
type CombatOutcome struct {
	Action          CombatAction     `json:"action"`
	Enemy           string           `json:"enemy"`
	Roll            *models.DiceRoll `json:"roll,omitempty"`
	DamageDealt     int              `json:"damage_dealt"`
	DamageTaken     int              `json:"damage_taken"`
	EnemyHP         int              `json:"enemy_hp"`
	EnemyMaxHP      int              `json:"enemy_max_hp"`
	EnemyDefeated   bool             `json:"enemy_defeated"`
	Fled            bool             `json:"fled"`
	XPGained        int              `json:"xp_gained"`
	GoldGained      int              `json:"gold_gained"`
	EffectInflicted string           `json:"effect_inflicted,omitempty"`
}

// Fact 生成给 AI 的权威事实描述
func (o *CombatOutcome) Fact(state *models.PlayerState) string {
	var b strings.Builder
	b.WriteString("COMBAT RESULT: ")
	switch o.Action {
	case ActionAttack:
		fmt.Fprintf(&b, "the player attacks the %s. d20 roll %d %+d = %d vs AC %d: ",
			o.Enemy, o.Roll.Result, o.Roll.Modifier, o.Roll.Total(), o.Roll.Target)
		if o.Roll.Success {
			if o.Roll.Result == 20 {
				b.WriteString("CRITICAL HIT")
			} else {
				b.WriteString("HIT")
			}
			fmt.Fprintf(&b, " for %d damage. ", o.DamageDealt)
		} else {
			b.WriteString("MISS, no damage. ")
		}
	case ActionDefend:
		fmt.Fprintf(&b, "the player takes a defensive stance against the %s. ", o.Enemy)
	case ActionFlee:
		fmt.Fprintf(&b, "the player tries to flee from the %s. d20 roll %d vs %d: ", o.Enemy, o.Roll.Result, o.Roll.Target)
		if o.Fled {
			b.WriteString("ESCAPED, combat is over. ")
		} else {
			b.WriteString("FAILED to escape. ")
		}
	default:
		fmt.Fprintf(&b, "the player hesitates and loses the turn; the %s seizes the opening. ", o.Enemy)
	}

	if o.EnemyDefeated {
		fmt.Fprintf(&b, "The %s is DEAD. Rewards: +%d XP, +%d gold. ", o.Enemy, o.XPGained, o.GoldGained)
	} else if !o.Fled {
		fmt.Fprintf(&b, "%s HP %d/%d. ", o.Enemy, o.EnemyHP, o.EnemyMaxHP)
	}
	if o.DamageTaken > 0 {
		fmt.Fprintf(&b, "The %s hits the player for %d damage. ", o.Enemy, o.DamageTaken)
	}
	if o.EffectInflicted != "" {
		fmt.Fprintf(&b, "The player is now %s. ", o.EffectInflicted)
	}
	fmt.Fprintf(&b, "Player HP now %d/%d.", state.Health, state.MaxHealth)
	return b.String()
}

// CombatResolver 战斗结算
type CombatResolver struct {
	rules   *RuleEngine
	catalog *catalog.Catalog
}

func NewCombatResolver(rules *RuleEngine, cat *catalog.Catalog) *CombatResolver {
	return &CombatResolver{
		rules:   rules,
		catalog: cat,
	}
}

// Spawn 开始战斗，未知类型时随机选一个模板
func (cr *CombatResolver) Spawn(state *models.PlayerState, enemyType string) (catalog.EnemyTemplate, error) {
	if state.Combat.Active {
		return catalog.EnemyTemplate{}, ErrAlreadyInCombat
	}

	tmpl, ok := cr.catalog.Enemy(enemyType)
	if !ok {
		tmpl = cr.catalog.EnemyAt(cr.rules.Pick(cr.catalog.EnemyCount()))
	}

	state.Combat = models.CombatRecord{
		Active:     true,
		EnemyType:  tmpl.Key,
		EnemyName:  tmpl.Name,
		EnemyHP:    tmpl.HP,
		EnemyMaxHP: tmpl.HP,
	}
	state.Status = models.StatusFighting

	log.Printf("⚔️ [战斗] 出现敌人: %s (HP %d)\n", tmpl.Name, tmpl.HP)
	return tmpl, nil
}

// Resolve 结算一回合战斗，只修改战斗记录，玩家数值由 StateService 应用
func (cr *CombatResolver) Resolve(state *models.PlayerState, text string) *CombatOutcome {
	if !state.Combat.Active {
		return nil
	}

	tmpl := cr.enemyTemplate(state.Combat)
	action := ClassifyAction(text)
	outcome := &CombatOutcome{
		Action:     action,
		Enemy:      state.Combat.EnemyName,
		EnemyMaxHP: state.Combat.EnemyMaxHP,
	}
	state.Combat.LastDamage = 0

	switch action {
	case ActionAttack:
		bonus := cr.catalog.WeaponBonus(state.Equipment.Weapon) + (state.Level-1)/2
		modifier := bonus
		if state.Effects.Blinded {
			modifier -= catalog.BlindedPenalty
		}
		roll := cr.rules.Check(modifier, catalog.ArmorClass)
		outcome.Roll = roll
		state.Combat.LastRoll = roll.Result

		if roll.Success {
			damage := cr.rules.CalculateDamage(catalog.AttackDie, bonus, roll.Result == 20)
			outcome.DamageDealt = damage
			state.Combat.LastDamage = damage
			state.Combat.EnemyHP -= damage
			if state.Combat.EnemyHP < 0 {
				state.Combat.EnemyHP = 0
			}
		}

		if state.Combat.EnemyHP == 0 {
			outcome.EnemyDefeated = true
			outcome.XPGained = tmpl.XP
			outcome.GoldGained = tmpl.Gold
		} else {
			cr.enemyStrike(state, tmpl, outcome, false)
		}

	case ActionDefend:
		state.Combat.LastRoll = 0
		cr.enemyStrike(state, tmpl, outcome, true)

	case ActionFlee:
		roll := cr.rules.RollD20()
		outcome.Roll = &models.DiceRoll{
			Type:    "D20",
			Result:  roll,
			Target:  catalog.FleeThreshold,
			Success: roll >= catalog.FleeThreshold,
		}
		state.Combat.LastRoll = roll
		if roll >= catalog.FleeThreshold {
			outcome.Fled = true
		} else {
			cr.enemyStrike(state, tmpl, outcome, false)
		}

	default:
		state.Combat.LastRoll = 0
		cr.enemyStrike(state, tmpl, outcome, false)
	}

	outcome.EnemyHP = state.Combat.EnemyHP
	if outcome.EnemyDefeated || outcome.Fled {
		state.Combat.Clear()
	}

	log.Println("🎲 ========================================")
	log.Printf("🎲 [战斗] 行动: %s | 敌人: %s\n", action, outcome.Enemy)
	if outcome.Roll != nil {
		log.Printf("🎲 投掷结果: %d %+d = %d (目标 %d)\n", outcome.Roll.Result, outcome.Roll.Modifier, outcome.Roll.Total(), outcome.Roll.Target)
	}
	log.Printf("🎲 造成伤害: %d | 承受伤害: %d | 敌人HP: %d/%d\n", outcome.DamageDealt, outcome.DamageTaken, outcome.EnemyHP, outcome.EnemyMaxHP)
	if outcome.EnemyDefeated {
		log.Printf("🎲 ⭐ 击败 %s！+%d XP +%d 金币\n", outcome.Enemy, outcome.XPGained, outcome.GoldGained)
	}
	if outcome.Fled {
		log.Println("🎲 🏃 成功逃离")
	}
	log.Println("🎲 ========================================")

	return outcome
}

// enemyStrike 敌人攻击；防御时伤害减半（向下取整，至少 1）
func (cr *CombatResolver) enemyStrike(state *models.PlayerState, tmpl catalog.EnemyTemplate, outcome *CombatOutcome, defending bool) {
	damage := cr.rules.CalculateDamage(tmpl.DamageDie, tmpl.DamageBonus, false)
	if defending {
		damage /= 2
		if damage < 1 {
			damage = 1
		}
	}
	if state.Effects.Poisoned {
		damage++
	}
	if state.Effects.Bleeding {
		damage++
	}
	outcome.DamageTaken = damage

	if tmpl.Inflicts != "" && !hasEffect(state.Effects, tmpl.Inflicts) {
		outcome.EffectInflicted = tmpl.Inflicts
	}
}

func (cr *CombatResolver) enemyTemplate(record models.CombatRecord) catalog.EnemyTemplate {
	if tmpl, ok := cr.catalog.Enemy(record.EnemyType); ok {
		return tmpl
	}
	// 旧存档中的未知敌人
	return catalog.EnemyTemplate{
		Key:       record.EnemyType,
		Name:      record.EnemyName,
		HP:        record.EnemyMaxHP,
		DamageDie: 6,
	}
}

func hasEffect(e models.Effects, name string) bool {
	switch name {
	case catalog.EffectPoisoned:
		return e.Poisoned
	case catalog.EffectBleeding:
		return e.Bleeding
	case catalog.EffectBlinded:
		return e.Blinded
	}
	return false
}

func setEffect(e *models.Effects, name string, on bool) bool {
	switch name {
	case catalog.EffectPoisoned:
		e.Poisoned = on
	case catalog.EffectBleeding:
		e.Bleeding = on
	case catalog.EffectBlinded:
		e.Blinded = on
	default:
		return false
	}
	return true
}
