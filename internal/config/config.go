package config

import "time"

// Config 服务配置，通过构造函数显式传入各组件
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Knowledge  KnowledgeConfig  `mapstructure:"knowledge" validate:"required"`
	Support    SupportConfig    `mapstructure:"support" validate:"required"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding" validate:"required"`
	Vector     VectorConfig     `mapstructure:"vector" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Timeouts   TimeoutConfig    `mapstructure:"timeouts"`
	Pinecone   PineconeConfig   `mapstructure:"pinecone"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Google     GoogleConfig     `mapstructure:"google"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Milvus     MilvusConfig     `mapstructure:"milvus"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

type ServerConfig struct {
	Port        string   `mapstructure:"port" validate:"required"`
	Env         string   `mapstructure:"env" validate:"required,oneof=development staging production"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// AuthConfig 管理端JWT认证，secret为空时不启用
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

// KnowledgeConfig 知识库入库配置
type KnowledgeConfig struct {
	ChunkSize int `mapstructure:"chunk_size" validate:"gt=0"`
	ListTopK  int `mapstructure:"list_top_k" validate:"gt=0"`
}

// SupportConfig 客服问答配置
type SupportConfig struct {
	AnswerTopK    int    `mapstructure:"answer_top_k" validate:"gt=0"`
	SearchTopK    int    `mapstructure:"search_top_k" validate:"gt=0"`
	Locale        string `mapstructure:"locale" validate:"required,oneof=ko en"`
	AssistantName string `mapstructure:"assistant_name" validate:"required"`
}

type EmbeddingConfig struct {
	Provider     string        `mapstructure:"provider" validate:"required,oneof=pinecone openai google"`
	Model        string        `mapstructure:"model" validate:"required"`
	Dimension    int           `mapstructure:"dimension" validate:"gt=0"`
	CacheEnabled bool          `mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type VectorConfig struct {
	Provider  string `mapstructure:"provider" validate:"required,oneof=pinecone qdrant milvus postgres memory"`
	Index     string `mapstructure:"index" validate:"required"`
	Namespace string `mapstructure:"namespace"`
}

type GenerationConfig struct {
	Provider        string  `mapstructure:"provider" validate:"required,oneof=gemini openai anthropic"`
	Model           string  `mapstructure:"model" validate:"required"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens" validate:"gt=0"`
	Temperature     float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// TimeoutConfig 外部调用超时，0表示只受请求上下文约束
type TimeoutConfig struct {
	Embedding  time.Duration `mapstructure:"embedding"`
	Index      time.Duration `mapstructure:"index"`
	Generation time.Duration `mapstructure:"generation"`
}

type PineconeConfig struct {
	APIKey       string `mapstructure:"api_key"`
	Host         string `mapstructure:"host"`
	InferenceURL string `mapstructure:"inference_url" validate:"omitempty,url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

type GoogleConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type QdrantConfig struct {
	URL    string `mapstructure:"url" validate:"omitempty,url"`
	APIKey string `mapstructure:"api_key"`
}

type MilvusConfig struct {
	Address  string `mapstructure:"address"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// StorageConfig 原始上传文件归档(MinIO)
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// IsDevelopment 是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
