package database

import (
	"context"
	"fmt"

	"menedzer-sesji/internal/websocket"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool  *pgxpool.Pool
	wsHub *websocket.Hub
	*Queries
}

func NewStore(pool *pgxpool.Pool, wsHub *websocket.Hub) *Store {
	return &Store{
		pool:    pool,
		wsHub:   wsHub,
		Queries: New(pool),
	}
}

func (s *Store) ExecTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := New(tx)
	err = fn(q)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}
