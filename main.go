package main

import (
	"context"
	"fmt"
	"os"

	logger "github.com/Easy-Infra-Ltd/easy-logger"

	"github.com/fernhealth/fertility-support-agent/src/agent"
	"github.com/fernhealth/fertility-support-agent/src/config"
	"github.com/fernhealth/fertility-support-agent/src/defense"
	"github.com/fernhealth/fertility-support-agent/src/llm"
	"github.com/fernhealth/fertility-support-agent/src/server"
	"github.com/fernhealth/fertility-support-agent/src/telemetry"
)

func main() {
	log := logger.CreateLoggerFromEnv(nil, "green").With("process", "fertilitysupportagent")

	cfg := config.Default()
	if len(os.Args) > 1 {
		loaded, err := config.Load(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "llm: %s must be set\n", cfg.LLM.APIKeyEnv)
		os.Exit(1)
	}

	detector, err := defense.NewDetector(cfg.Scoring.DisableBuiltInPatterns, cfg.Scoring.CustomInjectionPatterns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "detector: %v\n", err)
		os.Exit(1)
	}

	recorder, err := telemetry.NewRecorder(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: %v\n", err)
		os.Exit(1)
	}

	client := llm.NewOpenAIClient(cfg.LLM, apiKey)
	scorer := agent.New(client, log)

	srv := server.New(cfg, log, scorer, client, detector, recorder)
	if err := srv.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}
