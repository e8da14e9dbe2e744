//go:build integration

package store_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"zoopr/internal/pass/models"
	"zoopr/internal/pass/store"
	"zoopr/internal/sentinel"
	"zoopr/pkg/testutil/containers"
)

var (
	owner1 = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	owner2 = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.postgres.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()

	err := s.postgres.TruncateTables(ctx, "pass_tokens", "pass_stage")
	s.Require().NoError(err)

	// Re-seeds the stage row truncated above.
	s.store, err = store.NewPostgres(ctx, s.postgres.DB,
		models.StageDetail{Label: "SEED", StageCap: 1000, Fee: big.NewInt(100)})
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestMintAllocatesSequentialIDs() {
	ctx := context.Background()

	id, err := s.store.Mint(ctx, owner1, "ipfs://pass.json")
	s.Require().NoError(err)
	s.Equal(uint64(0), id)

	id, err = s.store.Mint(ctx, owner1, "ipfs://pass.json")
	s.Require().NoError(err)
	s.Equal(uint64(1), id)

	total, stageMinted, err := s.store.Counters(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(2), total)
	s.Equal(uint64(2), stageMinted)

	tok, err := s.store.FindToken(ctx, 0)
	s.Require().NoError(err)
	s.Equal(owner1, tok.Owner)
	s.Equal("ipfs://pass.json", tok.URI)
	s.False(tok.MintedAt.IsZero())
}

func (s *PostgresStoreSuite) TestCountByOwner() {
	ctx := context.Background()

	count, err := s.store.CountByOwner(ctx, owner1)
	s.Require().NoError(err)
	s.Equal(0, count)

	_, err = s.store.Mint(ctx, owner1, "ipfs://pass.json")
	s.Require().NoError(err)
	_, err = s.store.Mint(ctx, owner1, "ipfs://pass.json")
	s.Require().NoError(err)
	_, err = s.store.Mint(ctx, owner2, "ipfs://pass.json")
	s.Require().NoError(err)

	count, err = s.store.CountByOwner(ctx, owner1)
	s.Require().NoError(err)
	s.Equal(2, count)

	count, err = s.store.CountByOwner(ctx, owner2)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestReplaceStageResetsCounter() {
	ctx := context.Background()

	_, err := s.store.Mint(ctx, owner1, "ipfs://pass.json")
	s.Require().NoError(err)

	s.Require().NoError(s.store.ReplaceStage(ctx, models.StageDetail{Label: "PUBLIC", StageCap: 500, Fee: big.NewInt(200)}))

	stage, err := s.store.StageDetail(ctx)
	s.Require().NoError(err)
	s.Equal("PUBLIC", stage.Label)
	s.Equal(uint64(500), stage.StageCap)
	s.Equal("200", stage.Fee.String())

	total, stageMinted, err := s.store.Counters(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), total)
	s.Equal(uint64(0), stageMinted)
}

func (s *PostgresStoreSuite) TestFindTokenNotFound() {
	_, err := s.store.FindToken(context.Background(), 42)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
