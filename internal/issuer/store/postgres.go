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
	"github.com/jackc/pgx/v5/pgconn"

	"zoopr/internal/issuer/models"
	"zoopr/internal/sentinel"
)

const uniqueViolation = "23505"

// Postgres persists the name-token issuer state in PostgreSQL. The state row
// is a singleton locked FOR UPDATE on every mint; the minted_names primary
// key backstops name uniqueness even if two mints race past the service.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs the store and installs the state row if the table is
// empty.
func NewPostgres(ctx context.Context, db *sql.DB, initial models.StageDetail, totalCap uint64) (*Postgres, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO unt_state (stage_label, stage_cap, fee, stage_minted, total_cap)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (singleton) DO NOTHING
	`, initial.Label, int64(initial.StageCap), initial.Fee.String(), int64(totalCap))
	if err != nil {
		return nil, fmt.Errorf("seed unt state: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) StageDetail(ctx context.Context) (models.StageDetail, error) {
	row := s.db.QueryRowContext(ctx, `SELECT stage_label, stage_cap, fee FROM unt_state`)

	var detail models.StageDetail
	var stageCap int64
	var fee string
	if err := row.Scan(&detail.Label, &stageCap, &fee); err != nil {
		return models.StageDetail{}, fmt.Errorf("load unt stage: %w", err)
	}
	detail.StageCap = uint64(stageCap)
	amount, ok := new(big.Int).SetString(fee, 10)
	if !ok {
		return models.StageDetail{}, fmt.Errorf("malformed unt stage fee %q", fee)
	}
	detail.Fee = amount
	return detail, nil
}

func (s *Postgres) Cap(ctx context.Context) (uint64, error) {
	var cap int64
	if err := s.db.QueryRowContext(ctx, `SELECT total_cap FROM unt_state`).Scan(&cap); err != nil {
		return 0, fmt.Errorf("load unt cap: %w", err)
	}
	return uint64(cap), nil
}

func (s *Postgres) SetCap(ctx context.Context, cap uint64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE unt_state SET total_cap = $1`, int64(cap)); err != nil {
		return fmt.Errorf("set unt cap: %w", err)
	}
	return nil
}

func (s *Postgres) Counters(ctx context.Context) (total, stageMinted uint64, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM unt_tokens), stage_minted FROM unt_state
	`)
	var t, sm int64
	if err := row.Scan(&t, &sm); err != nil {
		return 0, 0, fmt.Errorf("load unt counters: %w", err)
	}
	return uint64(t), uint64(sm), nil
}

func (s *Postgres) ReplaceStage(ctx context.Context, detail models.StageDetail) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE unt_state SET stage_label = $1, stage_cap = $2, fee = $3, stage_minted = 0
	`, detail.Label, int64(detail.StageCap), detail.Fee.String())
	if err != nil {
		return fmt.Errorf("replace unt stage: %w", err)
	}
	return nil
}

func (s *Postgres) NameMinted(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM minted_names WHERE username = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check minted name: %w", err)
	}
	return exists, nil
}

func (s *Postgres) FreeMintUsed(ctx context.Context, account common.Address) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM free_mint_claims WHERE account = $1)`, addressKey(account),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check free mint claim: %w", err)
	}
	return exists, nil
}

// Mint commits the token, the name registration, the stage counter bump, and
// optionally the free-mint claim as one transaction.
func (s *Postgres) Mint(ctx context.Context, owner common.Address, username, uri string, claimFreeFor *common.Address) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin unt mint tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var stageMinted int64
	if err := tx.QueryRowContext(ctx,
		`SELECT stage_minted FROM unt_state FOR UPDATE`,
	).Scan(&stageMinted); err != nil {
		return 0, fmt.Errorf("lock unt state: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO minted_names (username) VALUES ($1)`, username,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, sentinel.ErrAlreadyUsed
		}
		return 0, fmt.Errorf("register minted name: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM unt_tokens`,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("next unt id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO unt_tokens (id, owner, username, uri) VALUES ($1, $2, $3, $4)`,
		id, addressKey(owner), username, uri,
	); err != nil {
		return 0, fmt.Errorf("insert unt token: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE unt_state SET stage_minted = stage_minted + 1`,
	); err != nil {
		return 0, fmt.Errorf("bump unt stage counter: %w", err)
	}

	if claimFreeFor != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO free_mint_claims (account) VALUES ($1)`, addressKey(*claimFreeFor),
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return 0, sentinel.ErrAlreadyUsed
			}
			return 0, fmt.Errorf("record free mint claim: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit unt mint: %w", err)
	}
	return uint64(id), nil
}

func (s *Postgres) FindToken(ctx context.Context, id uint64) (*models.Token, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner, username, uri, minted_at FROM unt_tokens WHERE id = $1`, int64(id),
	)

	var tok models.Token
	var tokID int64
	var owner string
	var mintedAt time.Time
	if err := row.Scan(&tokID, &owner, &tok.Username, &tok.URI, &mintedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find unt token: %w", err)
	}
	tok.ID = uint64(tokID)
	tok.Owner = common.HexToAddress(owner)
	tok.MintedAt = mintedAt
	return &tok, nil
}

func addressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}
