package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env string

	Database   DatabaseConfigs
	Redis      RedisConfigs
	Kafka      KafkaConfigs
	Storage    S3Configs
	Blockchain BlockchainConfigs
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type RedisConfigs struct {
	Addr string
}

type KafkaConfigs struct {
	Addr string

	// TokenEventTopic is the topic that token ownership audit events are
	// published to.
	TokenEventTopic string
}

type S3Configs struct {
	Region         string
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	SSLDisabled    bool
}

type BlockchainConfigs struct {
	// SecretKey is the platform master secret. Escrow wallet private keys are
	// derived from it combined with the wallet nonce.
	SecretKey string

	// ReceiptTimeout bounds how long a caller blocks waiting for a
	// transaction receipt. After the timeout the outcome is reported as
	// unknown, not as a failure.
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration

	RefreshConnectionFrequency time.Duration

	MetadataBatchSize     int
	MetadataBatchCooldown time.Duration

	RewardScanInterval time.Duration
	ReconcileInterval  time.Duration

	Networks []NetworkConfigs
}

type NetworkConfigs struct {
	Name      string
	ChainID   int64
	RPCs      []string
	BlockTime int
}

func (c BlockchainConfigs) Network(name string) (NetworkConfigs, bool) {
	for _, n := range c.Networks {
		if n.Name == name {
			return n, true
		}
	}

	return NetworkConfigs{}, false
}
