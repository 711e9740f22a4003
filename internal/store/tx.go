package store

import (
	"context"

	"gorm.io/gorm"
)

// txContextKey is the context key carrying an open transaction handle
type txContextKey struct{}

// ContextWithTx returns a context carrying the given transaction handle
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction handle carried by ctx, or nil
func TxFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx
}

// Conn returns the connection to use for ctx: the ambient transaction if
// one is open, otherwise the given base connection. Every component that
// shares the database goes through this so that a whole public operation
// commits or rolls back as one unit.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}
