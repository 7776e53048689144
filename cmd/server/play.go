package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aiwuxian/dungeon-core/internal/models"
	"github.com/aiwuxian/dungeon-core/internal/services"
	"github.com/aiwuxian/dungeon-core/internal/storage"
)

var playMock bool

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&playMock, "mock", false, "use the canned narrator instead of the model endpoint")
}

func runPlay(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if playMock {
		config.LLM.Mock = true
	}

	a, err := buildApp(config)
	if err != nil {
		return err
	}
	defer a.store.Close()

	return repl(cmd.Context(), a, os.Stdin, cmd.OutOrStdout())
}

// repl 逐行读取输入；斜杠命令管理会话与存档，其余都是一回合
func repl(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	state := a.game.NewGame(nil)
	fmt.Fprintln(out, services.RenderHelp())
	fmt.Fprintln(out, "  /new  /save N  /load N  /slots  /quit")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "/quit", "/exit":
			fmt.Fprintln(out, "Farewell, adventurer.")
			return nil
		case "/new":
			state = a.game.NewGame(state)
			fmt.Fprintf(out, "A new adventure begins at %s.\n", state.Location)
		case "/save":
			slot, ok := parseSlot(out, fields)
			if !ok {
				continue
			}
			if err := a.store.Save(ctx, slot, state); err != nil {
				fmt.Fprintf(out, "Save failed: %s\n", slotError(err))
				continue
			}
			fmt.Fprintf(out, "💾 Saved to slot %d.\n", slot)
		case "/load":
			slot, ok := parseSlot(out, fields)
			if !ok {
				continue
			}
			loaded, err := a.store.Load(ctx, slot)
			if err != nil {
				fmt.Fprintf(out, "Load failed: %s\n", slotError(err))
				continue
			}
			state = loaded
			fmt.Fprintf(out, "📂 Loaded slot %d: level %d at %s.\n", slot, state.Level, state.Location)
		case "/slots":
			printSlots(ctx, out, a)
		default:
			result := a.game.ProcessTurn(ctx, state, line)
			state.AppendDisplay(result.Text)
			fmt.Fprintln(out, result.Text)
		}
	}
}

func parseSlot(out io.Writer, fields []string) (int, bool) {
	if len(fields) < 2 {
		fmt.Fprintf(out, "Usage: %s N\n", fields[0])
		return 0, false
	}
	slot, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Fprintf(out, "Slot must be a number, got %q.\n", fields[1])
		return 0, false
	}
	return slot, true
}

func printSlots(ctx context.Context, out io.Writer, a *app) {
	infos, err := a.store.List(ctx)
	if err != nil {
		fmt.Fprintf(out, "Could not list slots: %v\n", err)
		return
	}
	byslot := make(map[int]models.SlotInfo, len(infos))
	for _, info := range infos {
		byslot[info.Slot] = info
	}
	for slot := 1; slot <= a.config.Game.SaveSlots; slot++ {
		info, ok := byslot[slot]
		if !ok {
			fmt.Fprintf(out, "  [%d] (empty)\n", slot)
			continue
		}
		dead := ""
		if info.GameOver {
			dead = " 💀"
		}
		fmt.Fprintf(out, "  [%d] Lv %d | HP %d | %s | %s%s\n", slot, info.Level, info.Health, info.Location,
			info.LastPlayed.Format("2006-01-02 15:04"), dead)
	}
}

func slotError(err error) string {
	switch {
	case errors.Is(err, storage.ErrSlotNotFound):
		return "that slot is empty"
	case errors.Is(err, storage.ErrInvalidSlot):
		return "no such slot"
	case errors.Is(err, storage.ErrCorruptSlot):
		return "that save is damaged"
	default:
		return err.Error()
	}
}
