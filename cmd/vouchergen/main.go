// Package main provides a CLI tool for signing mint vouchers and generating
// admin tokens for local development. Keys passed on the command line are for
// dev chains only.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"

	"zoopr/internal/platform/config"
	"zoopr/internal/voucher"
)

const (
	devSigningKey   = "dev-secret-key-change-in-production"
	defaultContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	defaultTTL      = 24 * time.Hour
)

type voucherOutput struct {
	Voucher   *voucher.Voucher `json:"voucher"`
	Validator string           `json:"validator"`
	Digest    string           `json:"digest"`
}

func main() {
	voucherCmd := flag.NewFlagSet("voucher", flag.ExitOnError)
	keyHex := voucherCmd.String("key", "", "Validator private key (hex, no 0x). Required.")
	account := voucherCmd.String("account", "", "Recipient account address. Required.")
	username := voucherCmd.String("username", "", "Name to issue. Required.")
	tokenURI := voucherCmd.String("token-uri", "", "Metadata URI for the token. Required.")
	fees := voucherCmd.String("fees", "0", "Voucher fee in wei; 0 defers to the stage fee")
	ttl := voucherCmd.Duration("ttl", defaultTTL, "Signature validity window")
	chainID := voucherCmd.Uint64("chain-id", 31337, "Chain id bound into the signature")
	contract := voucherCmd.String("contract", defaultContract, "Verifying contract address")

	adminCmd := flag.NewFlagSet("admin", flag.ExitOnError)
	adminAddr := adminCmd.String("account", "", "Admin account address. Required.")
	adminKey := adminCmd.String("signing-key", devSigningKey, "JWT signing key")
	adminTTL := adminCmd.Duration("ttl", time.Hour, "Token time-to-live")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "voucher":
		voucherCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		signVoucher(*keyHex, *account, *username, *tokenURI, *fees, *ttl, *chainID, *contract)
	case "admin":
		adminCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		generateAdminToken(*adminAddr, *adminKey, *adminTTL)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func signVoucher(keyHex, account, username, tokenURI, fees string, ttl time.Duration, chainID uint64, contract string) {
	if keyHex == "" || username == "" || tokenURI == "" {
		fatal("voucher requires -key, -account, -username and -token-uri")
	}
	if !common.IsHexAddress(account) {
		fatal("-account must be a hex address")
	}
	if !common.IsHexAddress(contract) {
		fatal("-contract must be a hex address")
	}

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		fatal("parse private key: %v", err)
	}

	domain := voucher.NewDomain(chainID, common.HexToAddress(contract))
	v := &voucher.Voucher{
		Account:  common.HexToAddress(account),
		Username: username,
		TokenURI: tokenURI,
		Fees:     fees,
		Deadline: strconv.FormatInt(time.Now().Add(ttl).Unix(), 10),
	}
	if _, err := v.FeeAmount(); err != nil {
		fatal("-fees must be a decimal wei amount")
	}

	sig, err := voucher.Sign(domain, v, key)
	if err != nil {
		fatal("sign voucher: %v", err)
	}
	v.Signature = sig

	digest := domain.Digest(v)
	writeJSON(voucherOutput{
		Voucher:   v,
		Validator: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Digest:    fmt.Sprintf("0x%x", digest),
	})
}

func generateAdminToken(account, signingKey string, ttl time.Duration) {
	if !common.IsHexAddress(account) {
		fatal("admin requires -account as a hex address")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   common.HexToAddress(account).Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString([]byte(signingKey))
	if err != nil {
		fatal("sign admin token: %v", err)
	}

	writeJSON(map[string]string{
		"token":      signed,
		"account":    common.HexToAddress(account).Hex(),
		"expires_in": ttl.String(),
		"usage":      "Authorization: Bearer <token>",
	})
}

func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode output: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Printf(`vouchergen - Sign mint vouchers and admin tokens for local development

WARNING: Keys passed on the command line are for dev chains only.

Usage:
  vouchergen voucher -key <hex> -account <addr> -username <name> -token-uri <uri> [-fees <wei>] [-ttl 24h] [-chain-id 31337] [-contract <addr>]
  vouchergen admin -account <addr> [-signing-key <key>] [-ttl 1h]

The default fee of a paid mint is %s wei. A voucher with -fees 0 charges the
active stage fee on the paid path and nothing on the free path.
`, config.DefaultMintingFee().String())
}
