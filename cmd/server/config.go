package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aiwuxian/dungeon-core/internal/catalog"
	"github.com/aiwuxian/dungeon-core/internal/models"
	"github.com/aiwuxian/dungeon-core/internal/services"
	"github.com/aiwuxian/dungeon-core/internal/storage"
)

// loadConfig 默认值 -> yaml 文件 -> 环境变量
func loadConfig(path string) (*models.Config, error) {
	config := models.DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("⚠️ 配置文件 %s 不存在，使用默认配置\n", path)
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if config.Game.SaveSlots < 1 {
		config.Game.SaveSlots = 1
	}

	return &config, nil
}

// app 组装好的服务
type app struct {
	config *models.Config
	game   *services.GameService
	store  storage.SlotStore
}

func buildApp(config *models.Config) (*app, error) {
	store, err := storage.Open(config.Database, config.Game.SaveSlots)
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}

	cat := catalog.Default()
	llmService := services.NewLLMService(config.LLM)
	ruleEngine := services.NewRuleEngine()
	progression := services.NewProgression(cat)
	stateService := services.NewStateService(config.Game, progression)
	combat := services.NewCombatResolver(ruleEngine, cat)
	items := services.NewItemService(cat)
	game := services.NewGameService(llmService, stateService, combat, items)

	if config.LLM.Mock {
		log.Println("⚠️ MOCK 模式：不连接模型服务")
	} else {
		log.Printf("🧠 模型: %s @ %s\n", config.LLM.Model, config.LLM.APIBase)
	}

	return &app{config: config, game: game, store: store}, nil
}
