package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"zoopr/internal/pass/models"
	"zoopr/internal/sentinel"
)

// Postgres persists pass issuance state in PostgreSQL. The stage row is a
// singleton locked FOR UPDATE on every mint, so ids and counters advance
// under the same serialization the in-memory store gets from its mutex.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs the store and installs the stage row if the table is
// empty, so a fresh database starts at the deployment-time configuration.
func NewPostgres(ctx context.Context, db *sql.DB, initial models.StageDetail) (*Postgres, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO pass_stage (label, stage_cap, fee, stage_minted)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (singleton) DO NOTHING
	`, initial.Label, int64(initial.StageCap), initial.Fee.String())
	if err != nil {
		return nil, fmt.Errorf("seed pass stage: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) StageDetail(ctx context.Context) (models.StageDetail, error) {
	row := s.db.QueryRowContext(ctx, `SELECT label, stage_cap, fee FROM pass_stage`)
	return scanStage(row)
}

func (s *Postgres) Counters(ctx context.Context) (total, stageMinted uint64, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM pass_tokens), stage_minted FROM pass_stage
	`)
	var t, sm int64
	if err := row.Scan(&t, &sm); err != nil {
		return 0, 0, fmt.Errorf("load pass counters: %w", err)
	}
	return uint64(t), uint64(sm), nil
}

func (s *Postgres) ReplaceStage(ctx context.Context, detail models.StageDetail) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pass_stage SET label = $1, stage_cap = $2, fee = $3, stage_minted = 0
	`, detail.Label, int64(detail.StageCap), detail.Fee.String())
	if err != nil {
		return fmt.Errorf("replace pass stage: %w", err)
	}
	return nil
}

func (s *Postgres) CountByOwner(ctx context.Context, owner common.Address) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pass_tokens WHERE owner = $1`, addressKey(owner),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count passes by owner: %w", err)
	}
	return count, nil
}

func (s *Postgres) Mint(ctx context.Context, owner common.Address, uri string) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin pass mint tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var stageMinted int64
	if err := tx.QueryRowContext(ctx,
		`SELECT stage_minted FROM pass_stage FOR UPDATE`,
	).Scan(&stageMinted); err != nil {
		return 0, fmt.Errorf("lock pass stage: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pass_tokens`,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("next pass id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pass_tokens (id, owner, uri) VALUES ($1, $2, $3)`,
		id, addressKey(owner), uri,
	); err != nil {
		return 0, fmt.Errorf("insert pass token: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE pass_stage SET stage_minted = stage_minted + 1`,
	); err != nil {
		return 0, fmt.Errorf("bump pass stage counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit pass mint: %w", err)
	}
	return uint64(id), nil
}

func (s *Postgres) FindToken(ctx context.Context, id uint64) (*models.Token, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner, uri, minted_at FROM pass_tokens WHERE id = $1`, int64(id),
	)

	var tok models.Token
	var tokID int64
	var owner string
	var mintedAt time.Time
	if err := row.Scan(&tokID, &owner, &tok.URI, &mintedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find pass token: %w", err)
	}
	tok.ID = uint64(tokID)
	tok.Owner = common.HexToAddress(owner)
	tok.MintedAt = mintedAt
	return &tok, nil
}

func scanStage(row *sql.Row) (models.StageDetail, error) {
	var detail models.StageDetail
	var stageCap int64
	var fee string
	if err := row.Scan(&detail.Label, &stageCap, &fee); err != nil {
		return models.StageDetail{}, fmt.Errorf("load pass stage: %w", err)
	}
	detail.StageCap = uint64(stageCap)
	amount, ok := new(big.Int).SetString(fee, 10)
	if !ok {
		return models.StageDetail{}, fmt.Errorf("malformed pass stage fee %q", fee)
	}
	detail.Fee = amount
	return detail, nil
}

// addressKey normalizes an address for storage so lookups are
// case-insensitive over checksummed input.
func addressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}
