// fellowship runs the multi-agent LOTR collaboration demo: a poet/critic
// poetry ping-pong, or a three-party mystery investigation, both backed by
// a quote-retrieval tool.
//
// Usage: fellowship [-config config.yaml]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/term"

	"fellowship/pkg/agent"
	"fellowship/pkg/config"
	"fellowship/pkg/logx"
	"fellowship/pkg/lotr"
	"fellowship/pkg/metrics"
	"fellowship/pkg/scenario"
	"fellowship/pkg/tools"
)

// EnvSecretsPassword unlocks the encrypted secrets file when present.
const EnvSecretsPassword = "FELLOWSHIP_SECRETS_PASSWORD"

func main() {
	if err := run(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nProgram interrupted by user")
			fmt.Println("Program finished.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "An unexpected error occurred: %v\n", err)
		fmt.Println("Program finished.")
		os.Exit(1)
	}
	fmt.Println("Program finished.")
}

func run() error {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	runID := uuid.New().String()[:8]
	logger := logx.NewLogger("fellowship-" + runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if err := loadSecrets(logger); err != nil {
		return err
	}

	// Credentials are a configuration concern: fail before any agent exists.
	apiKey := ""
	if name := config.ProviderSecretName(cfg.LLM.Provider); name != "" {
		apiKey, err = config.GetSecret(name)
		if err != nil {
			return err
		}
	}

	scenarioName := cfg.Scenario
	if scenarioName == "" {
		scenarioName, err = promptScenario()
		if err != nil {
			return err
		}
		fmt.Printf("\n✨ Starting %s scenario...\n", strings.ToUpper(scenarioName))
	}

	personas := scenario.Personas{}
	if strings.EqualFold(scenarioName, scenario.ScenarioMystery) {
		personas, err = loadPersonas(cfg.AgentsDir)
		if err != nil {
			return err
		}
	}

	if err := setupQuoteTools(cfg, logger); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				logger.Error("metrics server: %v", err)
			}
		}()
	}

	client, err := agent.NewLLMClient(cfg.LLM.Provider, cfg.LLM.Model, apiKey, cfg.LLM.OllamaHost)
	if err != nil {
		return err
	}

	orchestrator := scenario.NewOrchestrator(scenario.NewChatAgentFactory(client), scenario.OrchestratorConfig{
		Personas:        personas,
		Out:             os.Stdout,
		QuoteTools:      []string{tools.ToolGetLotrQuote, tools.ToolDescribeLotrQuote},
		PingPongLimit:   cfg.PingPongLimit,
		MysteryMaxTurns: cfg.MysteryMaxTurns,
	})

	result, err := orchestrator.Run(ctx, scenarioName)
	if err != nil {
		return err
	}
	logger.Info("run ended in terminal state %s after %d turn(s)", result.Terminal, result.Turns)

	fmt.Println("\n--- Collaboration complete ---")

	if logx.IsDebugEnabled() {
		if err := metrics.DumpText(os.Stderr); err != nil {
			logger.Warn("failed to dump metrics: %v", err)
		}
	}
	return nil
}

// loadSecrets decrypts the local secrets file when a password is available.
// Without one, environment variables are the only secret source.
func loadSecrets(logger *logx.Logger) error {
	password := os.Getenv(EnvSecretsPassword)
	if password == "" || !config.SecretsFileExists(".") {
		return nil
	}
	secrets, err := config.DecryptSecretsFile(".", password)
	if err != nil {
		return fmt.Errorf("failed to unlock secrets file: %w", err)
	}
	config.SetDecryptedSecrets(secrets)
	logger.Debug("loaded %d secrets from encrypted file", len(secrets))
	return nil
}

// loadPersonas reads the mystery participants' instruction files.
func loadPersonas(agentsDir string) (scenario.Personas, error) {
	sauron, err := agent.LoadInstructions(filepath.Join(agentsDir, "Sauron.md"))
	if err != nil {
		return scenario.Personas{}, err
	}
	gandalf, err := agent.LoadInstructions(filepath.Join(agentsDir, "Gandalf.md"))
	if err != nil {
		return scenario.Personas{}, err
	}
	bilbo, err := agent.LoadInstructions(filepath.Join(agentsDir, "BilboBot.md"))
	if err != nil {
		return scenario.Personas{}, err
	}
	return scenario.Personas{Sauron: sauron, Gandalf: gandalf, Bilbo: bilbo}, nil
}

// setupQuoteTools wires the quote client, its cache, and the tool registry.
func setupQuoteTools(cfg config.Config, logger *logx.Logger) error {
	oneAPIKey, err := config.GetSecret(config.SecretOneAPIKey)
	if err != nil {
		return err
	}

	var opts []lotr.Option
	if cfg.QuoteCachePath != "" {
		cache, err := lotr.OpenCache(cfg.QuoteCachePath)
		if err != nil {
			// A broken cache degrades to direct API calls.
			logger.Warn("quote cache unavailable: %v", err)
		} else {
			opts = append(opts, lotr.WithCache(cache))
		}
	}

	tools.RegisterLotrTools(lotr.NewClient(oneAPIKey, opts...))
	return nil
}

// promptScenario asks the user to choose a scenario interactively.
func promptScenario() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no scenario configured and stdin is not a terminal (set %s)", config.EnvScenario)
	}

	frame := strings.Repeat("=", 80)
	fmt.Println("\n" + frame)
	fmt.Println("🌟 Welcome to the LOTR Multi-Agent Demo 🌟")
	fmt.Println(frame)
	fmt.Print("\nChoose your adventure:\n\n")
	fmt.Println("  1. 🎭 Poetry Collaboration")
	fmt.Println("     - Poet creates LOTR-inspired poems")
	fmt.Print("     - Critic reviews and refines them\n\n")
	fmt.Println("  2. 🕵️  Mystery Solving")
	fmt.Println("     - Sauron weaves a dark mystery")
	fmt.Print("     - Gandalf & Bilbo investigate and solve it\n\n")
	fmt.Println(frame)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\nEnter your choice (1 or 2): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read choice: %w", err)
		}
		switch strings.TrimSpace(line) {
		case "1":
			return scenario.ScenarioPoetry, nil
		case "2":
			return scenario.ScenarioMystery, nil
		default:
			fmt.Println("❌ Invalid choice. Please enter 1 or 2.")
		}
	}
}
