package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== BTC Bot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit sizing and exit knobs")
		fmt.Println("3) Edit engine cadence")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editRisk(reader, cfg)
		case "3":
			editEngine(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchBot(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Symbol: %s | tick every %ds\n", cfg.Engine.Symbol, cfg.Engine.IntervalSecs)
	fmt.Printf("Exchange provider: %s\n", cfg.Exchange.Provider)
	fmt.Printf("Oracle provider: %s\n", cfg.Oracle.Provider)
	fmt.Printf("Venue provider: %s\n", cfg.Venue.Provider)
	fmt.Printf("Notional cap: $%.2f\n", cfg.Risk.NotionalCapUSD)
	fmt.Printf("Take profit: %.2f%% | stop loss: %.2f%% | max age: %dh\n",
		cfg.Exit.TakeProfitPct, cfg.Exit.StopLossPct, cfg.Exit.MaxAgeHours)
	fmt.Printf("Paper starting collateral: $%.2f\n", cfg.Venue.Paper.StartingCollateralUSD)
}

func editRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Sizing / Exits ---")
	cfg.Risk.NotionalCapUSD = promptFloat(reader, "Notional cap (USD)", cfg.Risk.NotionalCapUSD)
	cfg.Exit.TakeProfitPct = promptFloat(reader, "Take profit (%)", cfg.Exit.TakeProfitPct)
	cfg.Exit.StopLossPct = promptFloat(reader, "Stop loss (%)", cfg.Exit.StopLossPct)
	cfg.Exit.MaxAgeHours = int(promptFloat(reader, "Max position age (hours)", float64(cfg.Exit.MaxAgeHours)))
	cfg.Venue.Paper.StartingCollateralUSD = promptFloat(reader, "Paper starting collateral (USD)", cfg.Venue.Paper.StartingCollateralUSD)
}

func editEngine(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Engine ---")
	fmt.Printf("Symbol [%s]: ", cfg.Engine.Symbol)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		cfg.Engine.Symbol = strings.ToUpper(strings.TrimSpace(line))
	}
	cfg.Engine.IntervalSecs = int(promptFloat(reader, "Tick interval (seconds)", float64(cfg.Engine.IntervalSecs)))
}

func launchBot(reader *bufio.Reader) {
	fmt.Println("Launching bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/bot")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
