package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"supportchat/internal/ai"
	"supportchat/internal/config"
	"supportchat/internal/llm"
	"supportchat/internal/model"
	mysqlClient "supportchat/internal/platform/mysql"
	rabbitmqClient "supportchat/internal/platform/rabbitmq"
	redisClient "supportchat/internal/platform/redis"
	"supportchat/internal/rag"
	"supportchat/internal/repository"
	"supportchat/internal/worker"
)

const indexWarmBatchSize = 500

type App struct {
	Config        *config.Config
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	MessageWorker *worker.MessagePersistWorker

	Embedder *ai.EmbeddingClient
	Index    *rag.Index
	Chunker  *rag.Chunker
	Chain    *llm.Chain

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.Tenant{},
		&model.User{},
		&model.Session{},
		&model.Message{},
		&model.Document{},
		&model.Chunk{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	messageRepo := repository.NewMessageRepository(mysqlDB)
	messageWorker := worker.NewMessagePersistWorker(mqConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue)
	if err := messageWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	chunker, err := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	embedder := ai.NewEmbeddingClient(
		cfg.Embedding.BaseURL,
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.Dimension,
	)

	index := rag.NewIndex(cfg.Embedding.Dimension)
	if err := warmIndex(mysqlDB, index); err != nil {
		return nil, fmt.Errorf("warm embedding index failed: %w", err)
	}

	chain, err := buildProviderChain(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:        cfg,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		MessageWorker: messageWorker,
		Embedder:      embedder,
		Index:         index,
		Chunker:       chunker,
		Chain:         chain,
		StartedAt:     time.Now(),
	}, nil
}

// warmIndex reloads every persisted chunk vector into the in-memory index, so
// search works immediately after a restart.
func warmIndex(db *gorm.DB, index *rag.Index) error {
	chunkRepo := repository.NewChunkRepository(db)
	loaded := 0
	err := chunkRepo.ListAll(indexWarmBatchSize, func(chunks []model.Chunk) error {
		for i := range chunks {
			vector := chunks[i].EmbeddingVector()
			if len(vector) == 0 {
				log.Printf("skip chunk %d with unreadable embedding", chunks[i].ID)
				continue
			}
			if err := index.Upsert(chunks[i].TenantID, chunks[i].ID, chunks[i].DocumentID, vector); err != nil {
				log.Printf("skip chunk %d: %v", chunks[i].ID, err)
				continue
			}
			loaded++
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("embedding index warmed with %d chunks", loaded)
	return nil
}

// buildProviderChain assembles the generation fallback chain in config order.
// Providers missing credentials are skipped at startup rather than failing
// every request later.
func buildProviderChain(ctx context.Context, cfg *config.Config) (*llm.Chain, error) {
	chain := llm.NewChain(cfg.Chat.FallbackMessage)

	added := 0
	for _, p := range cfg.Providers {
		timeout := time.Duration(p.TimeoutSeconds) * time.Second
		switch p.Type {
		case "gemini":
			if p.APIKey == "" {
				log.Printf("provider %s skipped: no api key configured", p.Name)
				continue
			}
			provider, err := llm.NewGeminiProvider(ctx, p.Name, p.APIKey, p.Model, p.MaxTokens)
			if err != nil {
				log.Printf("provider %s skipped: %v", p.Name, err)
				continue
			}
			chain.Add(provider, timeout)
			added++
		case "openai":
			if p.APIKey == "" {
				log.Printf("provider %s skipped: no api key configured", p.Name)
				continue
			}
			provider, err := llm.NewOpenAIProvider(p.Name, p.APIKey, p.BaseURL, p.Model, p.MaxTokens)
			if err != nil {
				log.Printf("provider %s skipped: %v", p.Name, err)
				continue
			}
			chain.Add(provider, timeout)
			added++
		case "canned":
			chain.Add(llm.NewCannedProvider(p.Name, ""), timeout)
			added++
		}
	}

	if added == 0 {
		log.Printf("no providers configured, every answer will use the fallback text")
	}
	return chain, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
