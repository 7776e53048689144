package services

import (
	"fmt"
	"log"

	"github.com/aiwuxian/dungeon-core/internal/catalog"
	"github.com/aiwuxian/dungeon-core/internal/models"
)

// ItemOutcome 使用/装备道具的结果
type ItemOutcome struct {
	Item     string `json:"item"`
	OK       bool   `json:"ok"`
	Consumed bool   `json:"consumed"`
	Healed   int    `json:"healed,omitempty"`
	Cured    string `json:"cured,omitempty"`
	Escaped  bool   `json:"escaped,omitempty"`
	Slot     string `json:"slot,omitempty"`
	Fact     string `json:"fact"`
}

// Authoritative 结果是否带有由引擎计算的数值
func (o *ItemOutcome) Authoritative() bool {
	return o.OK && (o.Consumed || o.Healed > 0 || o.Cured != "" || o.Escaped)
}

// ItemService 道具使用与装备
type ItemService struct {
	catalog *catalog.Catalog
}

func NewItemService(cat *catalog.Catalog) *ItemService {
	return &ItemService{catalog: cat}
}

// Use 使用背包中的道具
func (is *ItemService) Use(state *models.PlayerState, name string) *ItemOutcome {
	out := &ItemOutcome{Item: name}

	if name == "" {
		out.Fact = "SYSTEM: the player wants to use something but did not say what. Nothing happens."
		return out
	}
	if !state.HasItem(name) {
		out.Fact = fmt.Sprintf("SYSTEM: the player tried to use '%s' but does not carry it. Nothing happens.", name)
		return out
	}

	tmpl, known := is.catalog.Item(name)
	if !known || tmpl.Kind == catalog.KindMisc {
		out.OK = true
		out.Fact = fmt.Sprintf("SYSTEM: the player uses '%s'. It has no mechanical effect; narrate it freely but do not change any numbers.", name)
		return out
	}
	if tmpl.Equippable() {
		out.Fact = fmt.Sprintf("SYSTEM: '%s' is equipment and cannot be used; the player should equip it instead.", name)
		return out
	}

	if tmpl.Escape {
		if !state.Combat.Active {
			out.Fact = fmt.Sprintf("SYSTEM: the player readies '%s' but there is nothing to escape from. It is not used.", name)
			return out
		}
		enemy := state.Combat.EnemyName
		state.Combat.Clear()
		state.Status = models.StatusExploring
		out.Escaped = true
		out.Fact = fmt.Sprintf("SYSTEM: the player uses '%s' and escapes from the %s. Combat is over.", name, enemy)
	}

	if tmpl.Heal > 0 {
		heal := tmpl.Heal
		if missing := state.MaxHealth - state.Health; heal > missing {
			heal = missing
		}
		state.Health += heal
		out.Healed = heal
	}
	if tmpl.Cures != "" && hasEffect(state.Effects, tmpl.Cures) {
		setEffect(&state.Effects, tmpl.Cures, false)
		out.Cured = tmpl.Cures
	}

	state.RemoveItem(name)
	out.OK = true
	out.Consumed = true

	if !out.Escaped {
		out.Fact = fmt.Sprintf("SYSTEM: the player consumes '%s'.", name)
	}
	if out.Healed > 0 {
		out.Fact += fmt.Sprintf(" Restores %d HP (now %d/%d).", out.Healed, state.Health, state.MaxHealth)
	}
	if out.Cured != "" {
		out.Fact += fmt.Sprintf(" The player is no longer %s.", out.Cured)
	}

	log.Printf("🧪 [道具] 使用 %s: 回复 %d, 治愈 %q, 逃脱 %v\n", name, out.Healed, out.Cured, out.Escaped)
	return out
}

// Equip 装备背包中的武器/护甲/盾牌
func (is *ItemService) Equip(state *models.PlayerState, name string) *ItemOutcome {
	out := &ItemOutcome{Item: name}

	if !state.HasItem(name) {
		out.Fact = fmt.Sprintf("SYSTEM: the player tried to equip '%s' but does not carry it. Nothing changes.", name)
		return out
	}
	tmpl, known := is.catalog.Item(name)
	if !known || !tmpl.Equippable() {
		out.Fact = fmt.Sprintf("SYSTEM: '%s' cannot be equipped. Nothing changes.", name)
		return out
	}

	switch tmpl.Kind {
	case catalog.KindWeapon:
		state.Equipment.Weapon = name
	case catalog.KindArmor:
		state.Equipment.Armor = name
	case catalog.KindShield:
		state.Equipment.Shield = name
	}
	out.OK = true
	out.Slot = string(tmpl.Kind)
	out.Fact = fmt.Sprintf("SYSTEM: the player equips '%s' as %s.", name, tmpl.Kind)
	if tmpl.Kind == catalog.KindWeapon {
		out.Fact += fmt.Sprintf(" Weapon damage bonus is now %+d.", tmpl.DamageBonus)
	}

	log.Printf("🗡️ [装备] %s -> %s\n", name, tmpl.Kind)
	return out
}
