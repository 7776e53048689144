package services

import (
	"strings"
	"unicode/utf8"

	"github.com/aiwuxian/dungeon-core/internal/catalog"
	"github.com/aiwuxian/dungeon-core/internal/models"
)

// CommandKind 指令类型
type CommandKind string

const (
	CmdHelp     CommandKind = "help"
	CmdStatus   CommandKind = "status"
	CmdSpawn    CommandKind = "spawn"
	CmdUseItem  CommandKind = "use_item"
	CmdEquip    CommandKind = "equip_item"
	CmdCombat   CommandKind = "combat"
	CmdFreeform CommandKind = "freeform"
)

// Command 分类后的玩家输入
type Command struct {
	Kind  CommandKind `json:"kind"`
	Input string      `json:"input"` // 清洗后的原文
	Arg   string      `json:"arg,omitempty"`
}

var (
	helpWords     = []string{"help", "/help", "?", "ayuda", "/ayuda", "帮助"}
	statusWords   = []string{"status", "/status", "stats", "estado", "/estado", "inventory", "inventario", "状态"}
	spawnPrefixes = []string{"/spawn", "spawn", "summon", "invocar", "召唤"}
	usePrefixes   = []string{"/use", "use", "usar", "使用"}
	equipPrefixes = []string{"/equip", "equip", "equipar", "装备"}
)

// SanitizeInput 去掉空字符、首尾空白并截断到最大长度
func SanitizeInput(raw string) string {
	s := strings.ReplaceAll(raw, "\x00", "")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > catalog.MaxInputLength {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:catalog.MaxInputLength]))
	}
	return s
}

// Classify 按固定优先级分类：帮助 > 状态 > 召唤 > 使用 > 装备 > 战斗/自由叙述
func Classify(input string, state *models.PlayerState) Command {
	lower := strings.ToLower(input)

	if _, ok := matchPrefix(input, lower, helpWords); ok {
		return Command{Kind: CmdHelp, Input: input}
	}
	if _, ok := matchPrefix(input, lower, statusWords); ok {
		return Command{Kind: CmdStatus, Input: input}
	}
	if arg, ok := matchPrefix(input, lower, spawnPrefixes); ok {
		return Command{Kind: CmdSpawn, Input: input, Arg: arg}
	}
	if arg, ok := matchPrefix(input, lower, usePrefixes); ok {
		return Command{Kind: CmdUseItem, Input: input, Arg: arg}
	}
	if arg, ok := matchPrefix(input, lower, equipPrefixes); ok {
		return Command{Kind: CmdEquip, Input: input, Arg: arg}
	}
	if state.Combat.Active {
		return Command{Kind: CmdCombat, Input: input}
	}
	return Command{Kind: CmdFreeform, Input: input}
}

// matchPrefix 前缀后必须是结尾或空白；中文前缀可直接接参数
func matchPrefix(input, lower string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if !strings.HasPrefix(lower, p) || len(p) > len(input) {
			continue
		}
		rest := input[len(p):]
		if rest != "" && !isWordBoundary(p, rest) {
			continue
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

func isWordBoundary(prefix, rest string) bool {
	r, _ := utf8.DecodeRuneInString(rest)
	if r == ' ' || r == '\t' {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(prefix)
	return last >= utf8.RuneSelf
}
