package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atmx/portfolio-engine/internal/model"
)

// PostgresSource implements Source over an event index populated by an
// external indexer (one row per MarketActionTx log). Amounts are stored as
// NUMERIC for exact uint256 precision; NULL columns decode as missing.
//
// Expected schema:
//
//	market_action_events(tx_hash, log_index, block_number, contract,
//	    user_address, action, market_id, outcome_id, shares, value, timestamp)
//	ledger_checkpoints(id, head_block)
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a new PostgreSQL-backed source.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// HeadPosition returns the last block the indexer has fully processed.
func (s *PostgresSource) HeadPosition(ctx context.Context) (uint64, error) {
	var head int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(head_block), 0) FROM ledger_checkpoints`).Scan(&head)
	if err != nil {
		return 0, fmt.Errorf("get head position: %w", err)
	}
	if head < 0 {
		head = 0
	}
	return uint64(head), nil
}

func (s *PostgresSource) Logs(ctx context.Context, q Query) ([]model.RawLogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tx_hash, block_number, log_index, user_address, action,
		        market_id::TEXT, outcome_id::TEXT, shares::TEXT, value::TEXT, timestamp::TEXT
		 FROM market_action_events
		 WHERE LOWER(contract) = LOWER($1)
		   AND LOWER(user_address) = LOWER($2)
		   AND block_number BETWEEN $3 AND $4
		 ORDER BY block_number, log_index`,
		q.Contract, q.User, int64(q.From), int64(q.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLogEntries(rows)
}

// pgxRows is the subset of pgx.Rows used by scanLogEntries.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanLogEntries(rows pgxRows) ([]model.RawLogEntry, error) {
	var entries []model.RawLogEntry
	for rows.Next() {
		var e model.RawLogEntry
		var txHash, user *string
		var block, logIndex int64
		var action *int16
		var marketS, outcomeS, sharesS, valueS, tsS *string

		if err := rows.Scan(&txHash, &block, &logIndex, &user, &action,
			&marketS, &outcomeS, &sharesS, &valueS, &tsS); err != nil {
			return nil, err
		}

		if txHash != nil {
			e.TxHash = *txHash
		}
		if user != nil {
			e.User = *user
		}
		e.BlockNumber = uint64(block)
		e.LogIndex = uint(logIndex)
		if action != nil && *action >= 0 && *action <= 0xff {
			a := uint8(*action)
			e.Action = &a
		}
		e.MarketID = parseNumeric(marketS)
		e.OutcomeID = parseNumeric(outcomeS)
		e.Shares = parseNumeric(sharesS)
		e.Value = parseNumeric(valueS)
		e.Timestamp = parseNumeric(tsS)

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// parseNumeric converts a NUMERIC::TEXT column; NULL or garbage yields nil.
func parseNumeric(s *string) *big.Int {
	if s == nil {
		return nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil
	}
	return v
}
