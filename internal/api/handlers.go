package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/aiwuxian/dungeon-core/internal/models"
	"github.com/aiwuxian/dungeon-core/internal/services"
	"github.com/aiwuxian/dungeon-core/internal/storage"
)

// Handler 单会话 HTTP 接口，回合串行处理
type Handler struct {
	mu        sync.Mutex
	game      *services.GameService
	store     storage.SlotStore
	llmConfig models.LLMConfig
	state     *models.PlayerState
}

func NewHandler(game *services.GameService, store storage.SlotStore, llmConfig models.LLMConfig) *Handler {
	return &Handler{
		game:      game,
		store:     store,
		llmConfig: llmConfig,
		state:     game.NewGame(nil),
	}
}

// Routes 注册 API 路由
func (h *Handler) Routes(r gin.IRouter) {
	apiGroup := r.Group("/api")
	{
		// 会话
		apiGroup.POST("/game/new", h.NewGame)
		apiGroup.GET("/game", h.GetGame)
		apiGroup.POST("/game/turn", h.TakeTurn)

		// 存档
		apiGroup.GET("/saves", h.ListSaves)
		apiGroup.GET("/saves/:slot", h.SlotInfo)
		apiGroup.POST("/saves/:slot", h.SaveGame)
		apiGroup.POST("/saves/:slot/load", h.LoadGame)
	}
}

// gameService 配置允许时从请求头获取自定义模型配置，否则使用默认服务
func (h *Handler) gameService(c *gin.Context) *services.GameService {
	apiKey := c.GetHeader("X-Custom-API-Key")
	apiBase := c.GetHeader("X-Custom-API-Base")
	model := c.GetHeader("X-Custom-API-Model")

	if apiKey == "" && apiBase == "" && model == "" {
		return h.game
	}
	if !h.llmConfig.AllowCustomHeaders {
		log.Println("⚠️ 未开启 allow_custom_headers，忽略自定义模型请求头")
		return h.game
	}

	config := h.llmConfig
	config.Mock = false
	if apiKey != "" {
		config.APIKey = apiKey
	}
	if apiBase != "" {
		config.APIBase = apiBase
	}
	if model != "" {
		config.Model = model
	}

	log.Printf("🔧 使用自定义模型配置: %s @ %s\n", config.Model, config.APIBase)
	return h.game.WithNarrator(services.NewLLMService(config))
}

// NewGame 开始新游戏
func (h *Handler) NewGame(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state = h.game.NewGame(h.state)
	c.JSON(http.StatusOK, gin.H{
		"state": h.state.Clone(),
		"text":  services.RenderHelp(),
	})
}

// GetGame 当前状态
func (h *Handler) GetGame(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"state": h.state.Clone()})
}

// TakeTurn 提交一回合输入
func (h *Handler) TakeTurn(c *gin.Context) {
	var req struct {
		Input string `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	game := h.gameService(c)

	h.mu.Lock()
	defer h.mu.Unlock()

	result := game.ProcessTurn(c.Request.Context(), h.state, req.Input)
	h.state.AppendDisplay(result.Text)

	c.JSON(http.StatusOK, gin.H{
		"result": result,
		"state":  h.state.Clone(),
	})
}

// ListSaves 所有存档摘要
func (h *Handler) ListSaves(c *gin.Context) {
	infos, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saves": infos})
}

// SlotInfo 单个槽位摘要
func (h *Handler) SlotInfo(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}
	info, err := h.store.Info(c.Request.Context(), slot)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// SaveGame 保存到槽位
func (h *Handler) SaveGame(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Save(c.Request.Context(), slot, h.state); err != nil {
		writeStoreError(c, err)
		return
	}
	info, err := h.store.Info(c.Request.Context(), slot)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// LoadGame 从槽位读档，失败时当前状态不变
func (h *Handler) LoadGame(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	state, err := h.store.Load(c.Request.Context(), slot)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	h.state = state
	c.JSON(http.StatusOK, gin.H{"state": h.state.Clone()})
}

func slotParam(c *gin.Context) (int, bool) {
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "槽位必须是数字"})
		return 0, false
	}
	return slot, true
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidSlot):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("❌ [存档] %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
