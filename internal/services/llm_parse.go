package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aiwuxian/dungeon-core/internal/models"
)

const (
	maxChoices  = 4
	maxXPReward = 50
)

var (
	errNoJSON           = errors.New("reply contains no JSON object")
	errMissingNarrative = errors.New("reply has no narrative")

	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// modelReply 模型回复的宽松结构
type modelReply struct {
	Narrative   *string  `json:"narrative" yaml:"narrative"`
	HPChange    looseInt `json:"hp_change" yaml:"hp_change"`
	GoldChange  looseInt `json:"gold_change" yaml:"gold_change"`
	NewItem     *string  `json:"new_item" yaml:"new_item"`
	ItemUsed    *string  `json:"item_used" yaml:"item_used"`
	CombatEnded bool     `json:"combat_ended" yaml:"combat_ended"`
	LevelUp     bool     `json:"level_up" yaml:"level_up"`
	XPGained    looseInt `json:"xp_gained" yaml:"xp_gained"`
	Choices     []string `json:"choices" yaml:"choices"`
}

// looseInt 接受数字、带引号的数字与 null
type looseInt int

func (n *looseInt) UnmarshalJSON(b []byte) error {
	return n.parse(strings.Trim(string(b), `"`))
}

func (n *looseInt) UnmarshalYAML(value *yaml.Node) error {
	return n.parse(value.Value)
}

func (n *looseInt) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "~" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*n = looseInt(f)
	return nil
}

// ExtractJSON 截取第一个 '{' 到最后一个 '}'，去掉模型常加的前后说明文字
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseModelReply 解析模型回复；严格 JSON 失败时去掉尾逗号并按 YAML 流式映射再试一次
// （可容忍单引号字符串与未加引号的键）
func ParseModelReply(text string) (models.ModelTurnResult, error) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return models.ModelTurnResult{}, errNoJSON
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		reply = modelReply{}
		repaired := trailingComma.ReplaceAllString(raw, "$1")
		if yerr := yaml.Unmarshal([]byte(repaired), &reply); yerr != nil {
			return models.ModelTurnResult{}, fmt.Errorf("decode reply: %w", err)
		}
	}

	if reply.Narrative == nil || strings.TrimSpace(*reply.Narrative) == "" {
		return models.ModelTurnResult{}, errMissingNarrative
	}

	result := models.ModelTurnResult{
		Narrative:   strings.TrimSpace(*reply.Narrative),
		HPChange:    int(reply.HPChange),
		GoldChange:  int(reply.GoldChange),
		NewItem:     cleanItemName(reply.NewItem),
		ItemUsed:    cleanItemName(reply.ItemUsed),
		CombatEnded: reply.CombatEnded,
		LevelUp:     reply.LevelUp,
		XPGained:    clamp(int(reply.XPGained), 0, maxXPReward),
	}
	for _, c := range reply.Choices {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		result.Choices = append(result.Choices, c)
		if len(result.Choices) == maxChoices {
			break
		}
	}
	return result, nil
}

func cleanItemName(s *string) string {
	if s == nil {
		return ""
	}
	name := strings.TrimSpace(*s)
	switch strings.ToLower(name) {
	case "", "null", "none", "nil", "n/a":
		return ""
	}
	return name
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
