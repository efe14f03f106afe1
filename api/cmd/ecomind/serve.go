package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ecomind/api/internal/advisor"
	"ecomind/api/internal/config"
	"ecomind/api/internal/httpserver"
	"ecomind/api/internal/llm"
	"ecomind/api/internal/logger"
	"ecomind/api/internal/prompt"
	"ecomind/api/internal/telegram"
	"ecomind/api/internal/web"
)

var (
	port    string
	withBot bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and the optional Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if port != "" {
			cfg.Port = port
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Listen port, overrides PORT")
	serveCmd.Flags().BoolVar(&withBot, "bot", true, "Run the Telegram bot when TELEGRAM_BOT_TOKEN is set")
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New(cfg)
	defer func() { _ = log.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.APIKey() == "" {
		// requests will fail with an authentication error until a key is set
		log.Warn("no Gemini API key configured")
	}

	client := llm.New(llm.Config{
		APIKey:      cfg.APIKey(),
		Model:       cfg.GeminiModel,
		RESTBaseURL: cfg.GeminiRESTBaseURL,
		Timeout:     cfg.LLMTimeout,
	}, log)

	prompts, err := prompt.Load(cfg.PromptsFile)
	if err != nil {
		return fmt.Errorf("prompts: %w", err)
	}
	svc, err := advisor.New(client, prompts, cfg.LLMTimeout, log)
	if err != nil {
		return fmt.Errorf("advisor: %w", err)
	}

	router, err := web.NewRouter(log, web.NewHandler(log, svc, client.Model()))
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	if withBot && cfg.TelegramBotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		log.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
		tr := telegram.NewRouter(bot, svc, client.Model(), log.Named("telegram"))
		go telegram.Poll(ctx, bot, log.Named("telegram"), tr.HandleUpdate)
	}

	log.Info("ecomind starting",
		zap.String("addr", cfg.Addr()),
		zap.String("mode", cfg.Mode),
		zap.String("model", client.Model()),
	)
	return httpserver.Run(ctx, cfg.Addr(), router, cfg.LLMTimeout+15*time.Second, log)
}
