// Command kb-proxy is the knowledge-base proxy. In its default mode it
// runs as an AWS Lambda handler invoked by an AgentCore gateway target.
// With --local it serves the same dispatch path over plain HTTP for
// development, with Prometheus metrics on /metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/Knowledge-Gate/kbgate/internal/adapter/inbound/http"
	"github.com/Knowledge-Gate/kbgate/internal/adapter/inbound/lambda"
	"github.com/Knowledge-Gate/kbgate/internal/adapter/outbound/bedrockkb"
	"github.com/Knowledge-Gate/kbgate/internal/config"
	"github.com/Knowledge-Gate/kbgate/internal/domain/guard"
	"github.com/Knowledge-Gate/kbgate/internal/observability"
	"github.com/Knowledge-Gate/kbgate/internal/service"
)

func main() {
	var (
		localMode  bool
		localAddr  string
		configFile string
	)
	flag.BoolVar(&localMode, "local", false, "serve HTTP locally instead of running as a Lambda handler")
	flag.StringVar(&localAddr, "addr", ":8080", "listen address for --local mode")
	flag.StringVar(&configFile, "config", "", "config file (default: search for kbgate.yaml)")
	flag.Parse()

	if err := run(localMode, localAddr, configFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(localMode bool, localAddr, configFile string) error {
	config.InitViper(configFile)
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	logger.Info("starting kb-proxy",
		"knowledge_base_id", cfg.KnowledgeBaseID,
		"region", cfg.Region,
		"local", localMode,
	)

	ctx := context.Background()

	shutdown, err := observability.Setup(ctx, "kb-proxy")
	if err != nil {
		return fmt.Errorf("failed to set up observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("observability shutdown failed", "error", err)
		}
	}()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	runtime := bedrockkb.NewRuntime(bedrockagentruntime.NewFromConfig(awsCfg), cfg.KnowledgeBaseID, logger)
	catalog := bedrockkb.NewCatalog(bedrockagent.NewFromConfig(awsCfg), cfg.KnowledgeBaseID, logger)

	opts := []service.Option{}
	if len(cfg.AccessRules) > 0 {
		g, err := guard.New(cfg.AccessRules)
		if err != nil {
			return fmt.Errorf("failed to compile access rules: %w", err)
		}
		opts = append(opts, service.WithGuard(g))
		logger.Info("access guard enabled", "rules", len(cfg.AccessRules))
	}

	settings := service.Settings{
		KnowledgeBaseID:   cfg.KnowledgeBaseID,
		ModelARN:          cfg.ModelARN,
		DefaultMaxResults: cfg.DefaultMaxResults,
		DefaultMaxTokens:  cfg.DefaultMaxTokens,
	}

	if localMode {
		reg := prometheus.NewRegistry()
		metrics := httpadapter.NewMetrics(reg)
		opts = append(opts, service.WithObserver(metrics))

		dispatcher := service.NewDispatcher(settings, runtime, runtime, catalog, logger, opts...)
		handler := lambda.NewHandler(dispatcher, logger)
		transport := httpadapter.NewTransport(handler, reg, logger)
		return transport.ListenAndServe(localAddr)
	}

	dispatcher := service.NewDispatcher(settings, runtime, runtime, catalog, logger, opts...)
	handler := lambda.NewHandler(dispatcher, logger)
	awslambda.Start(handler.Invoke)
	return nil
}
