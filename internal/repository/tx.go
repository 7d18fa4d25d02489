package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

type txKey struct{}

// TxManager runs functions inside a database transaction carried by the context.
// Repositories pick the transaction up through dbFrom, so a service composes
// several repository calls atomically without passing *gorm.DB around.
type TxManager struct {
	db   *gorm.DB
	opts *sql.TxOptions
}

// NewTxManager uses serializable isolation on postgres. SQLite transactions are
// already serialized by its write lock.
func NewTxManager(db *gorm.DB) *TxManager {
	m := &TxManager{db: db}
	if db.Dialector.Name() == "postgres" {
		m.opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return m
}

// ExecuteTransaction commits when fn returns nil and rolls back otherwise.
// Calls nested inside a running transaction join it. The returned error is
// classified by ClassifyError.
func (m *TxManager) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	var err error
	if m.opts != nil {
		err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		}, m.opts)
	} else {
		err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
	}
	return ClassifyError(err)
}

// dbFrom returns the transaction stored in ctx, or db bound to ctx.
func dbFrom(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
