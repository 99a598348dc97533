package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/healthcareplus/clinic-assistant/internal/api/router"
	appconfig "github.com/healthcareplus/clinic-assistant/internal/config"
	"github.com/healthcareplus/clinic-assistant/internal/conversation"
	"github.com/healthcareplus/clinic-assistant/internal/observability/metrics"
	"github.com/healthcareplus/clinic-assistant/internal/scheduling"
	"github.com/healthcareplus/clinic-assistant/internal/webchat"
	"github.com/healthcareplus/clinic-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}

	// Calendar
	scheduleCfg, err := scheduling.LoadScheduleConfig(cfg.SchedulePath)
	if err != nil {
		logger.Error("failed to load doctor schedule", "path", cfg.SchedulePath, "error", err)
		os.Exit(1)
	}
	registry, err := scheduling.BuildRegistry(scheduleCfg)
	if err != nil {
		logger.Error("failed to build slot registry", "error", err)
		os.Exit(1)
	}
	policy := &scheduling.DurationPolicy{
		BufferMinutes:      cfg.BufferMinutes,
		AllowBufferAtClose: cfg.AllowBufferAtClose,
	}

	promReg := prometheus.NewRegistry()
	schedulingMetrics := metrics.NewSchedulingMetrics(promReg)
	conversationMetrics := metrics.NewConversationMetrics(promReg)

	schedulingService := scheduling.NewService(registry, policy, loc, cfg.MaxSlotResults, logger, schedulingMetrics)

	// Clinic knowledge base
	knowledge, err := conversation.LoadClinicKnowledge(cfg.KnowledgePath)
	if err != nil {
		logger.Error("failed to load clinic knowledge", "path", cfg.KnowledgePath, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// LLM providers: Gemini primary, OpenAI fallback. Either may be absent;
	// the agent degrades to rule-based replies when both are.
	var gemini, openaiLLM conversation.LLMClient
	var geminiClient *conversation.GeminiLLMClient
	if cfg.GeminiAPIKey != "" {
		geminiClient, err = conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		gemini = geminiClient
	}
	if cfg.OpenAIAPIKey != "" {
		client, err := conversation.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			logger.Error("failed to initialize OpenAI client", "error", err)
			os.Exit(1)
		}
		openaiLLM = client
	}
	var llm conversation.LLMClient
	switch {
	case gemini != nil && openaiLLM != nil:
		llm = conversation.NewFallbackLLMClient(gemini, openaiLLM, logger, conversationMetrics)
	case gemini != nil:
		llm = gemini
	case openaiLLM != nil:
		llm = openaiLLM
	default:
		logger.Warn("no LLM API keys configured, running with rule-based replies only")
	}

	// RAG store over the knowledge base, keyword search as the fallback.
	var ragStore conversation.Retriever
	if cfg.OpenAIAPIKey != "" {
		store := conversation.NewMemoryRAGStore(openai.NewClient(cfg.OpenAIAPIKey), cfg.EmbeddingModel, logger)
		if err := store.AddDocuments(ctx, knowledge.Documents()); err != nil {
			logger.Warn("failed to embed clinic documents, keyword search only", "error", err)
		} else {
			ragStore = store
		}
	}
	retriever := conversation.NewFallbackRetriever(ragStore, knowledge, logger, conversationMetrics)

	// Conversation history (optional)
	var historyStore *conversation.HistoryStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, sessions will not persist", "addr", cfg.RedisAddr, "error", err)
		} else {
			historyStore = conversation.NewHistoryStore(redisClient, cfg.HistoryTTL)
		}
	}

	agent := conversation.NewAgent(llm, retriever, schedulingService, conversation.AgentConfig{
		DefaultDoctor: cfg.DefaultDoctor,
		ClinicPhone:   cfg.ClinicPhone,
		RAGTopK:       cfg.RAGTopK,
		MaxSlots:      cfg.MaxSlotResults,
		Timezone:      loc,
		LLMTimeout:    cfg.LLMTimeout,
	}, logger, conversationMetrics)

	widgetJS, err := os.ReadFile(cfg.WidgetJSPath)
	if err != nil {
		logger.Warn("widget JS not found, /webchat/widget.js will be empty", "path", cfg.WidgetJSPath)
	}

	routerCfg := &router.Config{
		Logger:          logger,
		ChatHandler:     conversation.NewHandler(agent, historyStore, logger),
		CalendarHandler: scheduling.NewHandler(schedulingService, logger),
		WebChatHandler:  webchat.NewHandler(webchat.NewResponder(agent, historyStore, logger), widgetJS, logger),
		MetricsHandler:  promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),

		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRateLimit:      cfg.ChatRateLimit,
		ChatRateBurst:      cfg.ChatRateBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if geminiClient != nil {
		_ = geminiClient.Close()
	}

	logger.Info("server stopped")
}
