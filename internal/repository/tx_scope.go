package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// TxScope implements TxRunner on a sqlx database handle.
type TxScope struct {
	db *sqlx.DB
}

// NewTxScope creates a new TxScope.
func NewTxScope(db *sqlx.DB) *TxScope {
	return &TxScope{db: db}
}

// Execute begins a transaction, hands fn the stores bound to it and commits
// when fn succeeds. Panics roll back and are re-raised.
func (s *TxScope) Execute(ctx context.Context, fn func(scope Scope) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txScope{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn().Err(rbErr).Msg("transaction rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

type txScope struct {
	tx *sqlx.Tx
}

func (s *txScope) Agents() AgentStore       { return &AgentRepository{db: s.tx} }
func (s *txScope) Stock() StockStore        { return &StockRepository{db: s.tx} }
func (s *txScope) Sales() SaleStore         { return &SaleRepository{db: s.tx} }
func (s *txScope) Snapshots() SnapshotStore { return &SnapshotRepository{db: s.tx} }
