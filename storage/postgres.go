package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NotYourBr0/GTD-backend/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const generateTimeout = 2 * time.Second

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgr *PostgresRepo) Ping(ctx context.Context) error {
	return pgr.pool.Ping(ctx)
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

// Generate fetches count random words from the words table. It returns an
// empty slice when the query fails so callers can fall back to another
// source.
func (pgr *PostgresRepo) Generate(count int) []string {
	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	rows, err := pgr.pool.Query(ctx, `SELECT word FROM words ORDER BY RANDOM() LIMIT $1`, count)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch words")
		return []string{}
	}
	defer rows.Close()

	words := make([]string, 0, count)
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			continue
		}
		words = append(words, word)
	}

	return words
}

// RecordGameResult stores a finished game and its scoreboard in one
// transaction.
func (pgr *PostgresRepo) RecordGameResult(ctx context.Context, result domain.GameResult) error {
	tx, err := pgr.pool.Begin(ctx)
	if err != nil {
		return wrapErr(err)
	}
	defer tx.Rollback(ctx)

	var resultID string
	err = tx.QueryRow(ctx,
		`INSERT INTO game_results(room_id, rounds, started_at, finished_at) VALUES($1, $2, $3, $4) RETURNING id`,
		result.RoomID, result.Rounds, result.StartedAt, result.FinishedAt,
	).Scan(&resultID)
	if err != nil {
		var pgErr *pgconn.PgError
		// "23505" is the PostgreSQL error code for unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateResult
		}
		return wrapErr(err)
	}

	batch := &pgx.Batch{}
	for i, s := range result.Scores {
		batch.Queue(
			`INSERT INTO game_result_scores(result_id, position, player_id, player_name, score) VALUES($1, $2, $3, $4, $5)`,
			resultID, i+1, s.PlayerID, s.PlayerName, s.Score,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return wrapErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func wrapErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
}
