package entity

import (
	"context"

	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&Collection{},
		&EscrowWallet{},
		&Token{},
		&TokenEvent{},
		&TokenMetadataFailure{},
		&Payment{},
		&StakeReward{},
		&StakeRewardLog{},
		&PlayerAsset{},
		&BlockchainTransaction{},
	)
}
