package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docchat/internal/api"
	"docchat/internal/config"
	"docchat/internal/core"
	"docchat/internal/llm"
	"docchat/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize the LLM backend (embeddings + generation)
	provider, err := llm.NewProvider(context.Background(), config.AppConfig)
	if err != nil {
		log.Fatalf("Failed to initialize LLM provider: %v", err)
	}
	defer provider.Close()

	// Connect the conversation store. A failed connection is a warning, not
	// a fatal error: the chatbot still answers questions, history is just
	// not persisted until the store comes back and the process restarts.
	var conversations core.ConversationStore
	mongoStore, err := store.NewMongoStore(
		config.AppConfig.MongoURI,
		config.AppConfig.MongoDatabase,
		config.AppConfig.MongoCollection,
		config.AppConfig.MongoTimeout(),
	)
	if err != nil {
		log.Printf("Warning: conversation store unavailable, running without persistence: %v", err)
	} else {
		conversations = mongoStore
		defer mongoStore.Close()
		log.Printf("Connected to MongoDB (%s/%s)", config.AppConfig.MongoDatabase, config.AppConfig.MongoCollection)
	}

	// Initialize the session controller
	sessionService := core.NewSessionService(core.SessionConfig{
		UploadDir:    config.AppConfig.UploadDir,
		IndexPath:    config.AppConfig.IndexPath,
		ChunkSize:    config.AppConfig.ChunkSize,
		ChunkOverlap: config.AppConfig.ChunkOverlap,
		TopK:         config.AppConfig.TopK,
		HistoryLimit: config.AppConfig.HistoryLimit,
	}, provider.Embedder, provider.Generator, conversations)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(sessionService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,  // uploads can be large
		WriteTimeout: 300 * time.Second, // index builds and LLM calls block the request
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
