package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rs-ent/starglow-sub013/internal/chain"
	"github.com/rs-ent/starglow-sub013/internal/chain/eth"
	"github.com/rs-ent/starglow-sub013/internal/domain"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/kafka"
	"github.com/rs-ent/starglow-sub013/pkg/logger"
	"github.com/rs-ent/starglow-sub013/pkg/pubsub"
	"github.com/rs-ent/starglow-sub013/pkg/storage"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"github.com/rs-ent/starglow-sub013/pkg/xredis"
	"github.com/urfave/cli/v2"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	ctx context.Context
	app *cli.App

	collectionRepo   repository.CollectionRepository
	escrowWalletRepo repository.EscrowWalletRepository
	tokenRepo        repository.TokenRepository
	tokenEventRepo   repository.TokenEventRepository
	metadataFailRepo repository.TokenMetadataFailureRepository
	paymentRepo      repository.PaymentRepository
	stakeRewardRepo  repository.StakeRewardRepository
	rewardLogRepo    repository.StakeRewardLogRepository
	playerAssetRepo  repository.PlayerAssetRepository
	blockchainTxRepo repository.BlockchainTransactionRepository

	mintDomain      domain.MintDomain
	transferDomain  domain.TransferDomain
	paymentDomain   domain.PaymentDomain
	stakingDomain   domain.StakingDomain
	reconcileDomain domain.ReconcileDomain

	gateway      chain.Gateway
	walletLocker *chain.WalletLocker
	redisClient  xredis.Client
	publisher    pubsub.Publisher
	storage      storage.Storage
}

func (s *srv) loadConfig() {
	s.ctx = xcontext.WithConfigs(context.Background(), loadConfigs())
}

func (s *srv) loadLogger() {
	level := logger.INFO
	if xcontext.Configs(s.ctx).Env == "dev" {
		level = logger.DEBUG
	}

	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(level))

	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}

	s.ctx = xcontext.WithSnowFlake(s.ctx, node)
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := xcontext.Configs(s.ctx)
	db, err := gorm.Open(mysql.Open(cfg.Database.ConnectionString()), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	return db
}

func (s *srv) migrateDB() {
	if err := entity.MigrateTable(s.ctx); err != nil {
		panic(err)
	}
}

func (s *srv) loadRedisClient() {
	var err error
	s.redisClient, err = xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadStorage() {
	s.storage = storage.NewS3Storage(xcontext.Configs(s.ctx).Storage)
}

func (s *srv) loadPublisher() {
	var err error
	s.publisher, err = kafka.NewPublisher(
		"starglow-fulfillment", []string{xcontext.Configs(s.ctx).Kafka.Addr})
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadGateway() {
	gateway := eth.NewGateway(s.ctx)
	gateway.Start(s.ctx)
	s.gateway = gateway
	s.walletLocker = chain.NewWalletLocker()
}

func (s *srv) loadRepos() {
	s.collectionRepo = repository.NewCollectionRepository()
	s.escrowWalletRepo = repository.NewEscrowWalletRepository()
	s.tokenRepo = repository.NewTokenRepository()
	s.tokenEventRepo = repository.NewTokenEventRepository()
	s.metadataFailRepo = repository.NewTokenMetadataFailureRepository()
	s.paymentRepo = repository.NewPaymentRepository()
	s.stakeRewardRepo = repository.NewStakeRewardRepository()
	s.rewardLogRepo = repository.NewStakeRewardLogRepository()
	s.playerAssetRepo = repository.NewPlayerAssetRepository()
	s.blockchainTxRepo = repository.NewBlockchainTransactionRepository()
}

func (s *srv) loadDomains() {
	metadata := domain.NewMetadataGenerator(s.storage, s.tokenRepo, s.metadataFailRepo)

	s.mintDomain = domain.NewMintDomain(
		s.collectionRepo, s.escrowWalletRepo, s.tokenRepo, s.tokenEventRepo,
		s.blockchainTxRepo, s.gateway, s.walletLocker, metadata)

	s.transferDomain = domain.NewTransferDomain(
		s.paymentRepo, s.collectionRepo, s.escrowWalletRepo, s.tokenRepo,
		s.tokenEventRepo, s.blockchainTxRepo, s.gateway, s.walletLocker, s.publisher)

	s.paymentDomain = domain.NewPaymentDomain(s.paymentRepo, s.transferDomain, s.redisClient)

	s.stakingDomain = domain.NewStakingDomain(
		s.collectionRepo, s.escrowWalletRepo, s.tokenRepo, s.tokenEventRepo,
		s.stakeRewardRepo, s.rewardLogRepo, s.playerAssetRepo, s.blockchainTxRepo,
		s.gateway, s.walletLocker, s.redisClient)

	s.reconcileDomain = domain.NewReconcileDomain(
		s.collectionRepo, s.tokenRepo, s.blockchainTxRepo, s.gateway)
}
