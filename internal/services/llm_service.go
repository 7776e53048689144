package services

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"syscall"
	"text/template"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/aiwuxian/dungeon-core/internal/models"
)

//go:generate mockgen -destination=mock/mock_narrator.go -package=servicesmock github.com/aiwuxian/dungeon-core/internal/services Narrator

//go:embed prompts/system.tmpl
var systemPrompt string

//go:embed prompts/turn.tmpl
var turnPrompt string

var (
	systemTmpl = template.Must(template.New("system").Parse(systemPrompt))
	turnTmpl   = template.Must(template.New("turn").Parse(turnPrompt))
)

const maxDebugLen = 120

// Narrator AI 叙事接口，任何失败都以安全的默认结果返回而不是 error
type Narrator interface {
	Query(ctx context.Context, input string, facts []string, state *models.PlayerState) models.ModelTurnResult
}

// attemptKind 单次调用结果类别
type attemptKind int

const (
	attemptOK attemptKind = iota
	attemptRetryable
	attemptFatal
)

// LLMService AI 集成客户端（OpenAI 兼容的 chat completions 接口）
type LLMService struct {
	client    *openai.Client
	config    models.LLMConfig
	mockReply func(input string) models.ModelTurnResult
}

var _ Narrator = (*LLMService)(nil)

func NewLLMService(config models.LLMConfig) *LLMService {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.APIBase != "" {
		clientConfig.BaseURL = strings.TrimRight(config.APIBase, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout()}

	return &LLMService{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// SetMockReply 替换 mock 模式下的固定回复
func (s *LLMService) SetMockReply(fn func(input string) models.ModelTurnResult) {
	s.mockReply = fn
}

// Query 构建提示词、调用模型并在失败时重试，最终总能返回一个可合并的结果
func (s *LLMService) Query(ctx context.Context, input string, facts []string, state *models.PlayerState) models.ModelTurnResult {
	log.Printf("🧙 [DM] 玩家: %s\n", input)

	if s.config.Mock {
		return s.mock(ctx, input)
	}

	messages, err := s.BuildMessages(input, facts, state)
	if err != nil {
		log.Printf("❌ [DM] 构建提示词失败: %v\n", err)
		return FallbackResult(err, 0)
	}

	maxAttempts := s.config.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		result, kind, err := s.attempt(ctx, messages)
		switch kind {
		case attemptOK:
			result.Status = models.ResultOK
			result.Attempts = attempt
			log.Printf("✅ [DM] 第 %d 次尝试成功\n", attempt)
			return result
		case attemptFatal:
			log.Printf("🔌 [DM] 无法连接模型服务: %v\n", err)
			return UnreachableResult(attempt)
		}

		lastErr = err
		log.Printf("⚠️ [DM] 第 %d/%d 次尝试失败: %v\n", attempt, maxAttempts, err)
		if attempt < maxAttempts && !sleepContext(ctx, s.config.RetryBackoff()) {
			break
		}
	}

	log.Printf("❌ [DM] 重试耗尽，返回兜底结果: %v\n", lastErr)
	return FallbackResult(lastErr, attempts)
}

func (s *LLMService) attempt(ctx context.Context, messages []openai.ChatCompletionMessage) (models.ModelTurnResult, attemptKind, error) {
	if err := ctx.Err(); err != nil {
		return models.ModelTurnResult{}, attemptRetryable, err
	}

	reqCtx := ctx
	if timeout := s.config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := s.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    messages,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		if isConnectionError(err) {
			return models.ModelTurnResult{}, attemptFatal, err
		}
		return models.ModelTurnResult{}, attemptRetryable, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.ModelTurnResult{}, attemptRetryable, errors.New("empty choices")
	}

	content := resp.Choices[0].Message.Content
	result, err := ParseModelReply(content)
	if err != nil {
		return models.ModelTurnResult{}, attemptRetryable, fmt.Errorf("%w (raw: %s)", err, truncate(content, maxDebugLen))
	}
	return result, attemptOK, nil
}

// BuildMessages 系统提示 + 最近历史 + 本回合指令
func (s *LLMService) BuildMessages(input string, facts []string, state *models.PlayerState) ([]openai.ChatCompletionMessage, error) {
	var sys bytes.Buffer
	if err := systemTmpl.Execute(&sys, promptState(state)); err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}

	var turn bytes.Buffer
	data := struct {
		Input string
		Facts []string
	}{
		Input: input,
		Facts: facts,
	}
	if err := turnTmpl.Execute(&turn, data); err != nil {
		return nil, fmt.Errorf("render turn prompt: %w", err)
	}

	history := state.History
	if window := s.config.HistoryWindow; window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: sys.String(),
	})
	for _, h := range history {
		role := openai.ChatMessageRoleUser
		if h.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: turn.String(),
	})
	return messages, nil
}

func (s *LLMService) mock(ctx context.Context, input string) models.ModelTurnResult {
	log.Println("⚠️ 使用 MOCK AI（不连接模型服务）")
	sleepContext(ctx, s.config.MockDelay())

	var result models.ModelTurnResult
	if s.mockReply != nil {
		result = s.mockReply(input)
	} else {
		result = models.ModelTurnResult{
			Narrative: fmt.Sprintf("[MOCK] You said '%s'. The system works.", input),
			Choices:   []string{"Keep testing", "Quit"},
		}
	}
	result.Status = models.ResultMock
	return result
}

// FallbackResult 重试耗尽后的中性结果
func FallbackResult(err error, attempts int) models.ModelTurnResult {
	debug := "unknown error"
	if err != nil {
		debug = truncate(err.Error(), maxDebugLen)
	}
	return models.ModelTurnResult{
		Narrative: fmt.Sprintf("⚠️ The Dungeon Master mutters something unintelligible and the world holds its breath. (system error: %s)", debug),
		Choices:   []string{},
		Status:    models.ResultFallback,
		Attempts:  attempts,
	}
}

// UnreachableResult 连接失败时的中性结果，不重试
func UnreachableResult(attempts int) models.ModelTurnResult {
	return models.ModelTurnResult{
		Narrative: "🔌 The server of the universe seems to be switched off. (connection error: the AI endpoint is unreachable)",
		Choices:   []string{},
		Status:    models.ResultUnreachable,
		Attempts:  attempts,
	}
}

// isConnectionError 主机不可达类错误（拒绝连接、DNS 失败、非超时的拨号错误）
func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return true
	}
	return false
}

type promptData struct {
	Level     int
	Health    int
	MaxHealth int
	Gold      int
	Location  string
	Status    string
	Inventory string
	Equipment string
	Summary   string
}

func promptState(state *models.PlayerState) promptData {
	inventory := "(empty)"
	if len(state.Inventory) > 0 {
		inventory = strings.Join(state.Inventory, ", ")
	}
	return promptData{
		Level:     state.Level,
		Health:    state.Health,
		MaxHealth: state.MaxHealth,
		Gold:      state.Gold,
		Location:  state.Location,
		Status:    state.Status,
		Inventory: inventory,
		Equipment: equipmentLine(state.Equipment),
		Summary:   StateSummary(state),
	}
}

func equipmentLine(e models.Equipment) string {
	slot := func(name string) string {
		if name == "" {
			return "none"
		}
		return name
	}
	return fmt.Sprintf("weapon: %s, armor: %s, shield: %s", slot(e.Weapon), slot(e.Armor), slot(e.Shield))
}

// StateSummary 状态文字摘要
func StateSummary(state *models.PlayerState) string {
	var parts []string
	if state.Combat.Active {
		parts = append(parts, fmt.Sprintf("In combat with %s (HP %d/%d).", state.Combat.EnemyName, state.Combat.EnemyHP, state.Combat.EnemyMaxHP))
	} else {
		parts = append(parts, "Not in combat.")
	}
	if effects := activeEffects(state.Effects); len(effects) > 0 {
		parts = append(parts, "Effects: "+strings.Join(effects, ", ")+".")
	}
	parts = append(parts, fmt.Sprintf("XP %d. Kills %d. Deaths %d.", state.XP, state.TotalKills, state.DeathCount))
	return strings.Join(parts, " ")
}

func activeEffects(e models.Effects) []string {
	var out []string
	if e.Poisoned {
		out = append(out, "poisoned")
	}
	if e.Bleeding {
		out = append(out, "bleeding")
	}
	if e.Blinded {
		out = append(out, "blinded")
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
