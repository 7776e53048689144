// Package main 地牢文字冒险的入口：HTTP 服务与终端游玩
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dungeon",
	Short: "AI narrated dungeon crawler",
	Long:  `A turn-based text adventure: the engine rolls the dice, an OpenAI-compatible model narrates.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "config file path")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
}
