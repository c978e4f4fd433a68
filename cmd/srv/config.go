package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs-ent/starglow-sub013/config"
)

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvDuration(key, def string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		panic(err)
	}

	return d
}

func getEnvInt(key, def string) int {
	n, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		panic(err)
	}

	return n
}

func loadConfigs() config.Configs {
	return config.Configs{
		Env: getEnv("ENV", "dev"),
		Database: config.DatabaseConfigs{
			Host:     getEnv("MYSQL_HOST", "localhost"),
			Port:     getEnv("MYSQL_PORT", "3306"),
			Database: getEnv("MYSQL_DATABASE", "starglow"),
			User:     getEnv("MYSQL_USER", "root"),
			Password: getEnv("MYSQL_PASSWORD", ""),
		},
		Redis: config.RedisConfigs{
			Addr: getEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Kafka: config.KafkaConfigs{
			Addr:            getEnv("KAFKA_ADDRESS", "localhost:9092"),
			TokenEventTopic: getEnv("KAFKA_TOKEN_EVENT_TOPIC", "token-events"),
		},
		Storage: config.S3Configs{
			Region:         getEnv("STORAGE_REGION", "auto"),
			Endpoint:       getEnv("STORAGE_ENDPOINT", ""),
			PublicEndpoint: getEnv("STORAGE_PUBLIC_ENDPOINT", ""),
			AccessKey:      getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:      getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:         getEnv("STORAGE_BUCKET", "metadata"),
			SSLDisabled:    getEnv("STORAGE_SSL_DISABLED", "false") == "true",
		},
		Blockchain: config.BlockchainConfigs{
			SecretKey:                  getEnv("BLOCKCHAIN_SECRET_KEY", ""),
			ReceiptTimeout:             getEnvDuration("RECEIPT_TIMEOUT", "2m"),
			ReceiptPollInterval:        getEnvDuration("RECEIPT_POLL_INTERVAL", "2s"),
			RefreshConnectionFrequency: getEnvDuration("REFRESH_CONNECTION_FREQUENCY", "5m"),
			MetadataBatchSize:          getEnvInt("METADATA_BATCH_SIZE", "20"),
			MetadataBatchCooldown:      getEnvDuration("METADATA_BATCH_COOLDOWN", "1s"),
			RewardScanInterval:         getEnvDuration("REWARD_SCAN_INTERVAL", "10m"),
			ReconcileInterval:          getEnvDuration("RECONCILE_INTERVAL", "30m"),
			Networks:                   loadNetworkConfigs(),
		},
	}
}

// loadNetworkConfigs reads NETWORKS as a comma-separated list of names; each
// name has its own <NAME>_CHAIN_ID and comma-separated <NAME>_RPCS.
func loadNetworkConfigs() []config.NetworkConfigs {
	names := strings.Split(getEnv("NETWORKS", "polygon"), ",")
	networks := make([]config.NetworkConfigs, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		prefix := strings.ToUpper(name)
		chainID, err := strconv.ParseInt(getEnv(prefix+"_CHAIN_ID", "137"), 10, 64)
		if err != nil {
			panic(err)
		}

		networks = append(networks, config.NetworkConfigs{
			Name:      name,
			ChainID:   chainID,
			RPCs:      strings.Split(getEnv(prefix+"_RPCS", ""), ","),
			BlockTime: getEnvInt(prefix+"_BLOCK_TIME", "2"),
		})
	}

	return networks
}
