// Command copilot is an interactive terminal front end for the AEP
// assistant. It reads platform credentials from the local connection store
// or the environment, then runs a chat loop in which gated tool calls
// require an explicit yes before they execute.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/aep"
	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/agent"
	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/configstore"
	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/llm"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", defaultDBPath(), "Path to the local configuration store")
	provider := flag.String("provider", "", "AI provider (openai, anthropic, gemini, ollama, openrouter, azure-openai, custom)")
	model := flag.String("model", "", "Model ID override")
	autoApprove := flag.Bool("yes", false, "Execute gated tools without asking for confirmation")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		logger.Error("creating configuration directory", "error", err)
		os.Exit(1)
	}
	store, err := configstore.Open(ctx, *dbPath)
	if err != nil {
		logger.Error("opening configuration store", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	platformCfg, err := resolvePlatformConfig(ctx, store)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	llmCfg, err := resolveLLMConfig(ctx, store, *provider, *model)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	svc := agent.NewService(logger)
	runREPL(ctx, svc, platformCfg, llmCfg, *autoApprove)
}

func defaultDBPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "aep-power-tools", "config.db")
	}
	return "aep-power-tools.db"
}

// resolvePlatformConfig prefers the active stored connection and falls back
// to AEP_* environment variables.
func resolvePlatformConfig(ctx context.Context, store *configstore.Store) (aep.Config, error) {
	if conn, err := store.Active(ctx); err == nil && conn != nil {
		return conn.Config, nil
	}
	cfg := aep.Config{
		ClientID:     os.Getenv("AEP_CLIENT_ID"),
		ClientSecret: os.Getenv("AEP_CLIENT_SECRET"),
		OrgID:        os.Getenv("AEP_ORG_ID"),
		Sandbox:      os.Getenv("AEP_SANDBOX"),
		SandboxID:    os.Getenv("AEP_SANDBOX_ID"),
		AuthToken:    os.Getenv("AEP_AUTH_TOKEN"),
	}
	if cfg.OrgID == "" {
		return cfg, fmt.Errorf("no active connection in the store and AEP_ORG_ID is not set")
	}
	return cfg, nil
}

// resolveLLMConfig merges stored AI settings, LLM_* environment variables,
// and command line overrides, in increasing precedence.
func resolveLLMConfig(ctx context.Context, store *configstore.Store, provider, model string) (llm.Config, error) {
	var cfg llm.Config
	if stored, err := store.AISettings(ctx); err == nil && stored != nil {
		cfg = *stored
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.Provider = llm.Provider(v)
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("LLM_AZURE_DEPLOYMENT"); v != "" {
		cfg.AzureDeployment = v
	}
	if provider != "" {
		cfg.Provider = llm.Provider(provider)
	}
	if model != "" {
		cfg.Model = model
	}
	if cfg.Provider == "" {
		return cfg, fmt.Errorf("no AI provider configured; set LLM_PROVIDER or pass -provider")
	}
	return cfg, nil
}

func runREPL(ctx context.Context, svc *agent.Service, platform aep.Config, llmCfg llm.Config, autoApprove bool) {
	fmt.Println("AEP copilot ready. Type a question, or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var history []llm.Message
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		resp := svc.Process(ctx, agent.Params{
			Message:     line,
			Platform:    platform,
			LLM:         llmCfg,
			History:     history,
			AutoApprove: autoApprove,
		})

		if resp.RequiresApproval && resp.Pending != nil {
			fmt.Println(resp.Content)
			fmt.Print("Approve? [y/N] ")
			if !scanner.Scan() {
				fmt.Println()
				return
			}
			answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if answer == "y" || answer == "yes" {
				resp = svc.Process(ctx, agent.Params{
					Message:  line,
					Platform: platform,
					LLM:      llmCfg,
					History:  history,
					Approved: &agent.ApprovedAction{
						ToolName:      resp.Pending.ToolName,
						ToolArguments: resp.Pending.ToolArguments,
					},
				})
			} else {
				fmt.Println("Cancelled.")
				continue
			}
		}

		fmt.Println(resp.Content)
		if len(resp.ToolsUsed) > 0 {
			fmt.Printf("(tools: %s)\n", strings.Join(resp.ToolsUsed, ", "))
		}

		history = append(history,
			llm.Message{Role: llm.RoleUser, Content: line},
			llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
		)
	}
}
