package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hlavac/versionone-go/internal/agent"
	"github.com/hlavac/versionone-go/internal/audio"
	"github.com/hlavac/versionone-go/internal/config"
	"github.com/hlavac/versionone-go/internal/conversation"
	"github.com/hlavac/versionone-go/internal/llm"
	"github.com/hlavac/versionone-go/internal/logger"
	"github.com/hlavac/versionone-go/internal/retriever"
	"github.com/hlavac/versionone-go/internal/server"
	"github.com/hlavac/versionone-go/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	store := conversation.NewStore(cfg.History.DBPath)
	retrieverClient := retriever.NewClient(cfg.Pinecone)
	llmClient := llm.NewClient(cfg.LLM)
	synthesizer := voice.NewSynthesizer(cfg.ElevenLabs)
	artifacts := audio.NewStore(cfg.Audio.Dir)

	pipeline := agent.NewPipeline(store, retrieverClient, llmClient, synthesizer, artifacts, cfg.LLM)
	srv := server.New(pipeline, artifacts)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.L.Error("server stopped", "error", err)
		os.Exit(1)
	case sig := <-stop:
		logger.L.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.L.Error("shutdown error", "error", err)
		}
	}
}
