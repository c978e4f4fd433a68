package testutil

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs-ent/starglow-sub013/config"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/logger"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func MockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	cfg := config.Configs{
		Env: "testing",
		Kafka: config.KafkaConfigs{
			TokenEventTopic: "token-events",
		},
		Storage: config.S3Configs{
			Bucket: "metadata",
		},
		Blockchain: config.BlockchainConfigs{
			SecretKey:           "secret",
			ReceiptTimeout:      time.Minute,
			ReceiptPollInterval: time.Second,
			MetadataBatchSize:   20,
			Networks: []config.NetworkConfigs{
				{
					Name:    "testnet",
					ChainID: 1337,
					RPCs:    []string{"http://localhost:8545"},
				},
			},
		},
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithSnowFlake(ctx, node)
	ctx = xcontext.WithDB(ctx, db)

	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	return ctx
}

func MockContextWithUserID(userID string) context.Context {
	return xcontext.WithRequestUserID(MockContext(), userID)
}
