package di

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiwimarket/backend-go/internal/auth"
	"github.com/kiwimarket/backend-go/internal/config"
	"github.com/kiwimarket/backend-go/internal/interfaces"
	"github.com/kiwimarket/backend-go/internal/knowledge"
	"github.com/kiwimarket/backend-go/internal/logger"
	"github.com/kiwimarket/backend-go/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{Port: "8080", Env: "development"},
		Auth:       config.AuthConfig{TokenTTL: time.Hour},
		Knowledge:  config.KnowledgeConfig{ChunkSize: 500, ListTopK: 100},
		Support:    config.SupportConfig{AnswerTopK: 5, SearchTopK: 10, Locale: "ko", AssistantName: "키위마켓"},
		Embedding:  config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimension: 3},
		Vector:     config.VectorConfig{Provider: "memory", Index: "kiwi-rag"},
		Generation: config.GenerationConfig{Provider: "openai", Model: "gpt-4o-mini", MaxOutputTokens: 500, Temperature: 0.3},
		OpenAI:     config.OpenAIConfig{APIKey: "sk-test"},
	}
}

func TestDependencyInjectionContainer(t *testing.T) {
	// 初始化DI容器
	container := InitContainer()
	assert.NotNil(t, container)

	// 验证容器已创建
	assert.Same(t, container, GetContainer())
}

func TestContainerBasicOperations(t *testing.T) {
	InitContainer()

	type TestService struct {
		Name string
	}

	require.NoError(t, Provide(func() *TestService {
		return &TestService{Name: "test"}
	}))

	err := Invoke(func(svc *TestService) {
		assert.Equal(t, "test", svc.Name)
	})
	assert.NoError(t, err)
}

func TestRegisterProviders_BuildsServices(t *testing.T) {
	container := InitContainer()
	require.NoError(t, RegisterProviders(container, testConfig()))

	err := container.Invoke(func(
		kb *services.KnowledgeBaseService,
		support *services.SupportService,
		store knowledge.VectorStore,
		embedder knowledge.Embedder,
		generator knowledge.Generator,
		publisher interfaces.EventPublisher,
		archiver interfaces.FileArchiver,
		jwtService *auth.JWTService,
	) {
		assert.NotNil(t, kb)
		assert.NotNil(t, support)
		assert.IsType(t, &knowledge.MemoryVectorStore{}, store)
		assert.True(t, embedder.Ready())
		assert.Equal(t, 3, embedder.Dimensions())
		assert.IsType(t, &knowledge.OpenAIGenerator{}, generator)
		assert.IsType(t, interfaces.NoopPublisher{}, publisher)
		assert.IsType(t, interfaces.NoopArchiver{}, archiver)
		assert.Nil(t, jwtService)
	})
	require.NoError(t, err)
}

func TestRegisterProviders_RequiresConfig(t *testing.T) {
	assert.Error(t, RegisterProviders(InitContainer(), nil))
}

func TestNewJWTService_WithSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "secret"

	svc, err := NewJWTService(cfg)

	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestNewEmbedder_MissingCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAI.APIKey = ""

	embedder, err := NewEmbedder(cfg, nil, NewCleanup(), logger.NewNop())

	require.NoError(t, err)
	assert.False(t, embedder.Ready())
}

func TestNewGenerator_MissingCredentialsUsesNoop(t *testing.T) {
	cfg := testConfig()
	cfg.Generation.Provider = "anthropic"

	generator, err := NewGenerator(cfg, NewCleanup(), logger.NewNop())

	require.NoError(t, err)
	assert.False(t, generator.Ready())
}

func TestNewVectorStore_Errors(t *testing.T) {
	cfg := testConfig()

	cfg.Vector.Provider = "postgres"
	_, err := NewVectorStore(cfg, nil, NewCleanup())
	assert.Error(t, err)

	cfg.Vector.Provider = "faiss"
	_, err = NewVectorStore(cfg, nil, NewCleanup())
	assert.Error(t, err)
}

func TestNewDatabase_SkippedForOtherBackends(t *testing.T) {
	cleanup := NewCleanup()

	db, err := NewDatabase(testConfig(), cleanup)

	require.NoError(t, err)
	assert.Nil(t, db)
	assert.Empty(t, cleanup.Names())
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "kiwi-rag", collectionName(config.VectorConfig{Index: "kiwi-rag"}))
	assert.Equal(t, "kiwi-rag-faq", collectionName(config.VectorConfig{Index: "kiwi-rag", Namespace: " faq "}))
}

func TestCleanup_RunsInReverseOrder(t *testing.T) {
	cleanup := NewCleanup()
	var order []string

	cleanup.Add("postgres", func() error { order = append(order, "postgres"); return nil })
	cleanup.Add("kafka", func() error { order = append(order, "kafka"); return stderrors.New("broker gone") })
	cleanup.Add("redis", func() error { order = append(order, "redis"); return nil })

	errs := cleanup.Run(logger.NewNop())

	assert.Equal(t, []string{"redis", "kafka", "postgres"}, order)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "kafka")

	assert.Empty(t, cleanup.Run(nil))
	assert.Len(t, order, 3)
}
