package config

import (
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	Pinecone   PineconeConfig   `mapstructure:"pinecone"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	Server     ServerConfig     `mapstructure:"server"`
	History    HistoryConfig    `mapstructure:"history"`
	Audio      AudioConfig      `mapstructure:"audio"`
	LogLevel   string           `mapstructure:"log_level"`
}

// LLMConfig holds the completion provider configuration.
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// PineconeConfig holds the vector store configuration.
type PineconeConfig struct {
	APIKey         string `mapstructure:"api_key"`
	IndexHost      string `mapstructure:"index_host"`
	IndexName      string `mapstructure:"index_name"`
	Namespace      string `mapstructure:"namespace"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	TopK           int    `mapstructure:"top_k"`
}

// ElevenLabsConfig holds the speech synthesis configuration.
type ElevenLabsConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	VoiceID         string  `mapstructure:"voice_id"`
	Stability       float64 `mapstructure:"stability"`
	SimilarityBoost float64 `mapstructure:"similarity_boost"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// HistoryConfig holds the conversation persistence configuration.
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// AudioConfig holds the audio artifact store configuration.
type AudioConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load loads the configuration from config.yaml with environment overrides.
// API credentials are usually supplied via environment variables rather
// than the config file.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("pinecone.index_name", "versionone")
	viper.SetDefault("pinecone.namespace", "ns1")
	viper.SetDefault("pinecone.embedding_model", "llama-text-embed-v2")
	viper.SetDefault("pinecone.top_k", 3)
	viper.SetDefault("elevenlabs.voice_id", "Ib4kDyWcM5DppIOQH52e")
	viper.SetDefault("elevenlabs.stability", 0.3)
	viper.SetDefault("elevenlabs.similarity_boost", 0.75)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("history.db_path", "history.db")
	viper.SetDefault("audio.dir", "audio_files")
	viper.SetDefault("log_level", "info")

	viper.AutomaticEnv()
	_ = viper.BindEnv("llm.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("pinecone.api_key", "PINECONE_API_KEY")
	_ = viper.BindEnv("pinecone.index_host", "PINECONE_INDEX_HOST")
	_ = viper.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
