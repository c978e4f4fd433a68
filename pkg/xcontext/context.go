package xcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rs-ent/starglow-sub013/config"
	"github.com/rs-ent/starglow-sub013/pkg/logger"
	"gorm.io/gorm"
)

type (
	configsKey       struct{}
	loggerKey        struct{}
	dbKey            struct{}
	dbTransactionKey struct{}
	snowflakeKey     struct{}
	requestUserIDKey struct{}
)

func WithConfigs(ctx context.Context, cfg config.Configs) context.Context {
	return context.WithValue(ctx, configsKey{}, cfg)
}

func Configs(ctx context.Context) config.Configs {
	cfg, ok := ctx.Value(configsKey{}).(config.Configs)
	if !ok {
		return config.Configs{}
	}

	return cfg
}

func WithLogger(ctx context.Context, l logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func Logger(ctx context.Context) logger.Logger {
	l, ok := ctx.Value(loggerKey{}).(logger.Logger)
	if !ok {
		return logger.NewLogger(logger.SILENCE)
	}

	return l
}

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DB returns the current database handle. If the context carries an open
// transaction, the transaction is returned instead of the root handle.
func DB(ctx context.Context) *gorm.DB {
	if holder, ok := ctx.Value(dbTransactionKey{}).(*txHolder); ok && holder.tx != nil {
		return holder.tx
	}

	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		return nil
	}

	return db
}

type txHolder struct {
	tx   *gorm.DB
	done bool
}

// WithDBTransaction begins a database transaction and attaches it to the
// returned context. Every DB(ctx) call on that context joins the transaction
// until it is committed or rolled back.
func WithDBTransaction(ctx context.Context) context.Context {
	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		return ctx
	}

	return context.WithValue(ctx, dbTransactionKey{}, &txHolder{tx: db.Begin()})
}

func WithCommitDBTransaction(ctx context.Context) {
	holder, ok := ctx.Value(dbTransactionKey{}).(*txHolder)
	if !ok || holder.done {
		return
	}

	holder.tx.Commit()
	holder.done = true
}

// WithRollbackDBTransaction rolls back the context transaction unless it was
// already committed. Intended to be deferred right after WithDBTransaction.
func WithRollbackDBTransaction(ctx context.Context) {
	holder, ok := ctx.Value(dbTransactionKey{}).(*txHolder)
	if !ok || holder.done {
		return
	}

	holder.tx.Rollback()
	holder.done = true
}

func WithSnowFlake(ctx context.Context, node *snowflake.Node) context.Context {
	return context.WithValue(ctx, snowflakeKey{}, node)
}

func SnowFlake(ctx context.Context) *snowflake.Node {
	node, ok := ctx.Value(snowflakeKey{}).(*snowflake.Node)
	if !ok {
		return nil
	}

	return node
}

func WithRequestUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestUserIDKey{}, id)
}

func RequestUserID(ctx context.Context) string {
	id, ok := ctx.Value(requestUserIDKey{}).(string)
	if !ok {
		return ""
	}

	return id
}
