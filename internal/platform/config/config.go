package config

import (
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// Server captures process level configuration so main stays lean.
type Server struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	// Chain binding for the voucher typed-data domain. Changing either value
	// invalidates every previously issued voucher.
	ChainID         uint64
	ContractAddress common.Address

	// Admin is the deployer account: receives fees, holds the admin role on
	// both issuers, and signs vouchers until more validators are granted.
	Admin common.Address

	PassTokenURI string
}

// Dev defaults, overridden in production via environment.
const (
	devSigningKey   = "dev-secret-key-change-in-production"
	devContractAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	devAdminAddr    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	devPassURI      = "https://bafyreig57eyhpv3bz42aauid7iuv3knrz6v4wnx43rehu74zo7rraekrye.ipfs.dweb.link/metadata.json"
)

// DefaultMintingFee is 0.08 native units in wei, the seed-stage fee of the
// voucher-gated issuer.
func DefaultMintingFee() *big.Int {
	return new(big.Int).Mul(big.NewInt(8), exp(16))
}

// DefaultPassFee is 1 native unit in wei, the seed-stage pass fee.
func DefaultPassFee() *big.Int {
	return exp(18)
}

func exp(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("ZOOPR_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	signingKey := os.Getenv("JWT_SIGNING_KEY")
	if signingKey == "" {
		signingKey = devSigningKey
	}

	chainID := uint64(31337)
	if raw := os.Getenv("ZOOPR_CHAIN_ID"); raw != "" {
		if id, ok := new(big.Int).SetString(raw, 10); ok && id.IsUint64() {
			chainID = id.Uint64()
		}
	}

	contract := devContractAddr
	if raw := os.Getenv("ZOOPR_CONTRACT_ADDRESS"); common.IsHexAddress(raw) {
		contract = raw
	}

	admin := devAdminAddr
	if raw := os.Getenv("ZOOPR_ADMIN_ADDRESS"); common.IsHexAddress(raw) {
		admin = raw
	}

	passURI := os.Getenv("ZOOPR_PASS_TOKEN_URI")
	if passURI == "" {
		passURI = devPassURI
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSigningKey:   signingKey,
		ChainID:         chainID,
		ContractAddress: common.HexToAddress(contract),
		Admin:           common.HexToAddress(admin),
		PassTokenURI:    passURI,
	}
}
