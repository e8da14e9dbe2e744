// Package voucher implements the validator-signed mint authorization: a
// structured, domain-bound payload whose signature is verified against the
// validator role set before any mint proceeds.
package voucher

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"zoopr/internal/sentinel"
)

// Voucher is the signed, time-bounded assertion authorizing one account to
// mint one username/tokenURI at one fee. Fees and Deadline are string-encoded
// integers on the wire; they are hashed as strings and parsed only when the
// engine charges or expires them.
type Voucher struct {
	Signature hexutil.Bytes  `json:"signature"`
	Account   common.Address `json:"account"`
	Username  string         `json:"username"`
	TokenURI  string         `json:"tokenURI"`
	Fees      string         `json:"fees"`
	Deadline  string         `json:"deadline"`
}

// FeeAmount parses the string-encoded fee as a non-negative wei amount.
func (v *Voucher) FeeAmount() (*big.Int, error) {
	fee, ok := new(big.Int).SetString(v.Fees, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("voucher fees %q: %w", v.Fees, sentinel.ErrInvalidInput)
	}
	return fee, nil
}

// DeadlineUnix parses the string-encoded deadline as a unix timestamp.
func (v *Voucher) DeadlineUnix() (int64, error) {
	ts, err := strconv.ParseInt(v.Deadline, 10, 64)
	if err != nil || ts < 0 {
		return 0, fmt.Errorf("voucher deadline %q: %w", v.Deadline, sentinel.ErrInvalidInput)
	}
	return ts, nil
}

// RecoverSigner returns the account that signed the voucher under the given
// domain. Signatures with a recovery id of 27/28 (as produced by wallet
// signers) and 0/1 (as produced by crypto.Sign) are both accepted.
func RecoverSigner(d *Domain, v *Voucher) (common.Address, error) {
	if len(v.Signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, sentinel.ErrInvalidInput)
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, v.Signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	digest := d.Digest(v)
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover voucher signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Sign produces a voucher signature with the given validator key. Used by the
// vouchergen tool and tests; production signatures come from off-process
// validator wallets.
func Sign(d *Domain, v *Voucher, key *ecdsa.PrivateKey) (hexutil.Bytes, error) {
	digest := d.Digest(v)
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return nil, fmt.Errorf("sign voucher: %w", err)
	}
	// Wallet-style recovery id, matching signatures produced off-process.
	sig[64] += 27
	return sig, nil
}
