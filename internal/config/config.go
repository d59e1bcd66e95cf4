package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort string `yaml:"http_port"`
	LogLevel string `yaml:"log_level"`

	// LLM backend selection: "ollama" (default) or "gemini".
	LLMProvider      string `yaml:"llm_provider"`
	OllamaURL        string `yaml:"ollama_url"`
	OllamaModel      string `yaml:"ollama_model"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`
	GeminiAPIKey     string `yaml:"gemini_api_key"`
	GeminiModel      string `yaml:"gemini_model"`
	GeminiEmbedModel string `yaml:"gemini_embed_model"`

	MongoURI         string `yaml:"mongo_uri"`
	MongoDatabase    string `yaml:"mongo_database"`
	MongoCollection  string `yaml:"mongo_collection"`
	MongoTimeoutSecs int    `yaml:"mongo_timeout_secs"`

	UploadDir    string `yaml:"upload_dir"`
	IndexPath    string `yaml:"index_path"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
	HistoryLimit int    `yaml:"history_limit"`
}

var AppConfig Config

// LoadConfig fills AppConfig from defaults, then an optional YAML file
// (CONFIG_FILE, falling back to ./config.yaml), then environment variables.
// Environment always wins so deployments can override a checked-in file.
func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		HTTPPort:         "8080",
		LogLevel:         "INFO",
		LLMProvider:      "ollama",
		OllamaURL:        "http://localhost:11434",
		OllamaModel:      "llama3.2",
		OllamaEmbedModel: "nomic-embed-text",
		GeminiModel:      "gemini-1.5-flash-latest",
		GeminiEmbedModel: "text-embedding-004",
		MongoURI:         "mongodb://127.0.0.1:27017",
		MongoDatabase:    "chatbot",
		MongoCollection:  "conversations",
		MongoTimeoutSecs: 5,
		UploadDir:        "uploaded",
		IndexPath:        "vector_index",
		ChunkSize:        1000,
		ChunkOverlap:     200,
		TopK:             4,
		HistoryLimit:     10,
	}

	loadYAMLFile(&AppConfig)
	loadEnv(&AppConfig)

	if AppConfig.LLMProvider == "gemini" && AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required when LLM_PROVIDER=gemini")
	}
	if AppConfig.ChunkOverlap >= AppConfig.ChunkSize {
		log.Fatalf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", AppConfig.ChunkOverlap, AppConfig.ChunkSize)
	}
}

func loadYAMLFile(cfg *Config) {
	path := getEnv("CONFIG_FILE", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Could not read config file %s: %v", path, err)
		}
		return
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Fatalf("Failed to parse config file %s: %v", path, err)
	}
	log.Printf("Loaded configuration overrides from %s", path)
}

func loadEnv(cfg *Config) {
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LLMProvider = getEnv("LLM_PROVIDER", cfg.LLMProvider)
	cfg.OllamaURL = getEnv("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaModel = getEnv("OLLAMA_MODEL", cfg.OllamaModel)
	cfg.OllamaEmbedModel = getEnv("OLLAMA_EMBED_MODEL", cfg.OllamaEmbedModel)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiEmbedModel = getEnv("GEMINI_EMBED_MODEL", cfg.GeminiEmbedModel)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DB", cfg.MongoDatabase)
	cfg.MongoCollection = getEnv("MONGO_COLLECTION", cfg.MongoCollection)
	cfg.MongoTimeoutSecs = getEnvAsInt("MONGO_TIMEOUT_SECS", cfg.MongoTimeoutSecs)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.IndexPath = getEnv("INDEX_PATH", cfg.IndexPath)
	cfg.ChunkSize = getEnvAsInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = getEnvAsInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.TopK = getEnvAsInt("TOP_K", cfg.TopK)
	cfg.HistoryLimit = getEnvAsInt("HISTORY_LIMIT", cfg.HistoryLimit)
}

// MongoTimeout bounds the store connection and liveness probe.
func (c Config) MongoTimeout() time.Duration {
	return time.Duration(c.MongoTimeoutSecs) * time.Second
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
