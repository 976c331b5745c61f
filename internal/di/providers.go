package di

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"
	"gorm.io/gorm"

	"github.com/kiwimarket/backend-go/internal/auth"
	"github.com/kiwimarket/backend-go/internal/config"
	"github.com/kiwimarket/backend-go/internal/database"
	"github.com/kiwimarket/backend-go/internal/interfaces"
	"github.com/kiwimarket/backend-go/internal/kafka"
	"github.com/kiwimarket/backend-go/internal/knowledge"
	"github.com/kiwimarket/backend-go/internal/logger"
	"github.com/kiwimarket/backend-go/internal/services"
	"github.com/kiwimarket/backend-go/internal/storage"
)

// Cleanup 记录已打开的客户端，Run时按打开顺序的逆序关闭
type Cleanup struct {
	mu    sync.Mutex
	tasks []cleanupTask
}

type cleanupTask struct {
	name string
	fn   func() error
}

// NewCleanup 创建关闭队列
func NewCleanup() *Cleanup {
	return &Cleanup{}
}

// Add 登记关闭函数
func (c *Cleanup) Add(name string, fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, cleanupTask{name: name, fn: fn})
}

// Names 已登记的资源名，按登记顺序
func (c *Cleanup) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.tasks))
	for _, t := range c.tasks {
		names = append(names, t.name)
	}
	return names
}

// Run 逆序执行全部关闭函数(尽力而为)，执行后队列清空
func (c *Cleanup) Run(log interfaces.LoggerInterface) []error {
	c.mu.Lock()
	tasks := c.tasks
	c.tasks = nil
	c.mu.Unlock()

	var errs []error
	for i := len(tasks) - 1; i >= 0; i-- {
		if err := tasks[i].fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tasks[i].name, err))
			if log != nil {
				log.Warn("Cleanup failed", "resource", tasks[i].name, "error", err)
			}
		}
	}
	return errs
}

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	providers := []interface{}{
		func() *config.Config { return cfg },
		NewCleanup,
		func() interfaces.LoggerInterface { return logger.NewLogger(logger.GetLogger()) },
		NewLogrusLogger,
		NewRedisClient,
		NewDatabase,
		NewHealthChecker,
		NewEmbedder,
		NewVectorStore,
		NewGenerator,
		NewEventPublisher,
		NewFileArchiver,
		NewKnowledgeBaseService,
		NewSupportService,
		NewJWTService,
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

// NewLogrusLogger 数据库迁移与健康检查使用的logrus实例
func NewLogrusLogger(cfg *config.Config) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		l.SetLevel(level)
	}
	return l
}

// NewRedisClient 仅在启用查询向量缓存时连接Redis，连接失败不阻塞启动
func NewRedisClient(cfg *config.Config, cleanup *Cleanup, log interfaces.LoggerInterface) *redis.Client {
	if !cfg.Embedding.CacheEnabled || cfg.Redis.Host == "" {
		return nil
	}

	rdb, err := database.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Warn("Failed to initialize Redis, query embedding cache disabled", "error", err)
		return nil
	}
	cleanup.Add("redis", rdb.Close)
	return rdb
}

// NewDatabase 仅postgres向量后端需要数据库连接
func NewDatabase(cfg *config.Config, cleanup *Cleanup) (*gorm.DB, error) {
	if cfg.Vector.Provider != "postgres" {
		return nil, nil
	}

	db, err := database.Open(cfg.Database, cfg.IsDevelopment())
	if err != nil {
		return nil, err
	}
	cleanup.Add("postgres", func() error { return database.Close(db) })
	return db, nil
}

// NewHealthChecker 没有数据库连接时返回nil
func NewHealthChecker(db *gorm.DB, log *logrus.Logger) (*database.HealthChecker, error) {
	if db == nil {
		return nil, nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return database.NewHealthChecker(sqlDB, log), nil
}

// NewEmbedder 按embedding.provider创建嵌入网关，配置了Redis时包一层查询缓存。
// 缺少凭据时返回未就绪的网关，调用时以EMBEDDING_FAILED失败。
func NewEmbedder(cfg *config.Config, rdb *redis.Client, cleanup *Cleanup, log interfaces.LoggerInterface) (knowledge.Embedder, error) {
	var provider knowledge.EmbeddingProvider

	switch cfg.Embedding.Provider {
	case "pinecone":
		if cfg.Pinecone.APIKey != "" {
			e, err := knowledge.NewPineconeEmbedder(knowledge.PineconeEmbedderOptions{
				APIKey:  cfg.Pinecone.APIKey,
				Host:    cfg.Pinecone.InferenceURL,
				Model:   cfg.Embedding.Model,
				Timeout: cfg.Timeouts.Embedding,
			})
			if err != nil {
				return nil, err
			}
			provider = e
		}
	case "openai":
		if cfg.OpenAI.APIKey != "" {
			provider = knowledge.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Embedding.Model, cfg.Embedding.Dimension)
		}
	case "google":
		if cfg.Google.APIKey != "" {
			e, err := knowledge.NewGoogleEmbedder(context.Background(), cfg.Google.APIKey, cfg.Embedding.Model)
			if err != nil {
				return nil, err
			}
			cleanup.Add("google-embedder", e.Close)
			provider = e
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}

	if provider == nil {
		log.Warn("Embedding provider credentials not configured", "provider", cfg.Embedding.Provider)
	}

	var embedder knowledge.Embedder = knowledge.NewEmbeddingGateway(provider, cfg.Embedding.Dimension)
	if rdb != nil {
		embedder = knowledge.NewCachedEmbedder(embedder, rdb, cfg.Embedding.Provider+"/"+cfg.Embedding.Model, cfg.Embedding.CacheTTL, log)
	}
	return embedder, nil
}

// NewVectorStore 按vector.provider创建向量索引
func NewVectorStore(cfg *config.Config, db *gorm.DB, cleanup *Cleanup) (knowledge.VectorStore, error) {
	dimension := cfg.Embedding.Dimension

	switch cfg.Vector.Provider {
	case "pinecone":
		store, err := knowledge.NewPineconeVectorStore(knowledge.PineconeOptions{
			APIKey:    cfg.Pinecone.APIKey,
			Host:      cfg.Pinecone.Host,
			Namespace: cfg.Vector.Namespace,
			Dimension: dimension,
		})
		if err != nil {
			return nil, err
		}
		if closer, ok := store.(interface{ Close() error }); ok {
			cleanup.Add("pinecone", closer.Close)
		}
		return store, nil
	case "qdrant":
		return knowledge.NewQdrantVectorStore(knowledge.QdrantOptions{
			Endpoint:   cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: collectionName(cfg.Vector),
			VectorSize: dimension,
			Timeout:    cfg.Timeouts.Index,
		})
	case "milvus":
		store, err := knowledge.NewMilvusVectorStore(context.Background(), knowledge.MilvusOptions{
			Address:    cfg.Milvus.Address,
			Username:   cfg.Milvus.Username,
			Password:   cfg.Milvus.Password,
			Database:   cfg.Milvus.Database,
			Collection: collectionName(cfg.Vector),
			VectorSize: dimension,
		})
		if err != nil {
			return nil, err
		}
		if closer, ok := store.(interface{ Close() error }); ok {
			cleanup.Add("milvus", closer.Close)
		}
		return store, nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres vector store requires a database connection")
		}
		return knowledge.NewPostgresVectorStore(db, dimension), nil
	case "memory":
		return knowledge.NewMemoryVectorStore(dimension), nil
	default:
		return nil, fmt.Errorf("unknown vector provider: %s", cfg.Vector.Provider)
	}
}

// collectionName 命名空间非空时作为集合名后缀
func collectionName(cfg config.VectorConfig) string {
	if ns := strings.TrimSpace(cfg.Namespace); ns != "" {
		return cfg.Index + "-" + ns
	}
	return cfg.Index
}

// NewGenerator 按generation.provider创建答案生成器，缺少凭据时使用未就绪的空实现
func NewGenerator(cfg *config.Config, cleanup *Cleanup, log interfaces.LoggerInterface) (knowledge.Generator, error) {
	model := cfg.Generation.Model

	switch cfg.Generation.Provider {
	case "gemini":
		if cfg.Google.APIKey == "" {
			break
		}
		g, err := knowledge.NewGeminiGenerator(context.Background(), cfg.Google.APIKey, model)
		if err != nil {
			return nil, err
		}
		cleanup.Add("gemini", g.Close)
		return g, nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			break
		}
		return knowledge.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, model), nil
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			break
		}
		return knowledge.NewAnthropicGenerator(cfg.Anthropic.APIKey, model), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Generation.Provider)
	}

	log.Warn("Generation provider credentials not configured", "provider", cfg.Generation.Provider)
	return &knowledge.NoopGenerator{}, nil
}

// NewEventPublisher kafka.enabled时发布变更事件，否则为空实现
func NewEventPublisher(cfg *config.Config, cleanup *Cleanup, log interfaces.LoggerInterface) interfaces.EventPublisher {
	if !cfg.Kafka.Enabled {
		return interfaces.NoopPublisher{}
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		log.Warn("Failed to initialize Kafka producer", "error", err)
		return interfaces.NoopPublisher{}
	}
	cleanup.Add("kafka", producer.Close)
	return producer
}

// NewFileArchiver storage.enabled时归档原始上传文件，否则为空实现
func NewFileArchiver(cfg *config.Config, log interfaces.LoggerInterface) interfaces.FileArchiver {
	if !cfg.Storage.Enabled {
		return interfaces.NoopArchiver{}
	}

	archiver, err := storage.NewMinioArchiver(cfg.Storage, log)
	if err != nil {
		log.Warn("Failed to initialize MinIO archiver", "error", err)
		return interfaces.NoopArchiver{}
	}
	return archiver
}

// NewKnowledgeBaseService 组装入库服务
func NewKnowledgeBaseService(
	cfg *config.Config,
	embedder knowledge.Embedder,
	store knowledge.VectorStore,
	publisher interfaces.EventPublisher,
	archiver interfaces.FileArchiver,
	log interfaces.LoggerInterface,
) *services.KnowledgeBaseService {
	return services.NewKnowledgeBaseService(services.KnowledgeBaseConfig{
		Embedder:  embedder,
		Store:     store,
		Publisher: publisher,
		Archiver:  archiver,
		Logger:    log.With("service", "knowledge_base"),
		Locale:    cfg.Support.Locale,
		ChunkSize: cfg.Knowledge.ChunkSize,
		ListTopK:  cfg.Knowledge.ListTopK,
		Timeouts:  cfg.Timeouts,
	})
}

// NewSupportService 组装问答服务
func NewSupportService(
	cfg *config.Config,
	embedder knowledge.Embedder,
	store knowledge.VectorStore,
	generator knowledge.Generator,
	log interfaces.LoggerInterface,
) *services.SupportService {
	return services.NewSupportService(services.SupportConfig{
		Embedder:        embedder,
		Store:           store,
		Generator:       generator,
		Logger:          log.With("service", "support"),
		Locale:          cfg.Support.Locale,
		AssistantName:   cfg.Support.AssistantName,
		AnswerTopK:      cfg.Support.AnswerTopK,
		SearchTopK:      cfg.Support.SearchTopK,
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
		Temperature:     cfg.Generation.Temperature,
		Timeouts:        cfg.Timeouts,
	})
}

// NewJWTService auth.jwt_secret为空时返回nil，管理端不做认证
func NewJWTService(cfg *config.Config) (*auth.JWTService, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
}
