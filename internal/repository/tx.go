package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxRunner opens the unit of work services compose repository *Tx calls in.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTxRunner struct{ db *gorm.DB }

func NewTxRunner(db *gorm.DB) TxRunner { return &gormTxRunner{db: db} }

// Transaction runs fn in a GORM transaction, rolled back when fn errors.
func (r *gormTxRunner) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
