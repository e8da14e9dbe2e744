package handler

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"zoopr/internal/voucher"
	dErrors "zoopr/pkg/domain-errors"
)

// MintRequest carries the caller account, the attached payment in wei, and the
// validator-signed voucher. The voucher travels verbatim; tampering with any
// field changes the recovered signer and fails validation downstream.
type MintRequest struct {
	Caller  string          `json:"caller"`
	Payment string          `json:"payment"`
	Voucher voucher.Voucher `json:"voucher"`
}

func (r *MintRequest) Normalize() {
	r.Caller = strings.TrimSpace(r.Caller)
	r.Payment = strings.TrimSpace(r.Payment)
}

func (r *MintRequest) Validate() error {
	if !common.IsHexAddress(r.Caller) {
		return dErrors.New(dErrors.CodeValidation, "caller must be a hex account address")
	}
	if _, ok := new(big.Int).SetString(r.Payment, 10); !ok {
		return dErrors.New(dErrors.CodeValidation, "payment must be a decimal wei amount")
	}
	if len(r.Voucher.Signature) == 0 {
		return dErrors.New(dErrors.CodeValidation, "voucher signature is required")
	}
	return nil
}

func (r *MintRequest) CallerAddress() common.Address {
	return common.HexToAddress(r.Caller)
}

func (r *MintRequest) PaymentAmount() *big.Int {
	amount, _ := new(big.Int).SetString(r.Payment, 10)
	return amount
}

// FreeMintRequest carries the caller account and the signed voucher. No
// payment field: the free path never charges.
type FreeMintRequest struct {
	Caller  string          `json:"caller"`
	Voucher voucher.Voucher `json:"voucher"`
}

func (r *FreeMintRequest) Normalize() {
	r.Caller = strings.TrimSpace(r.Caller)
}

func (r *FreeMintRequest) Validate() error {
	if !common.IsHexAddress(r.Caller) {
		return dErrors.New(dErrors.CodeValidation, "caller must be a hex account address")
	}
	if len(r.Voucher.Signature) == 0 {
		return dErrors.New(dErrors.CodeValidation, "voucher signature is required")
	}
	return nil
}

func (r *FreeMintRequest) CallerAddress() common.Address {
	return common.HexToAddress(r.Caller)
}

// UpdateStageRequest carries a full replacement stage configuration.
type UpdateStageRequest struct {
	Label string `json:"label"`
	Cap   uint64 `json:"cap"`
	Fees  string `json:"fees"`
}

func (r *UpdateStageRequest) Normalize() {
	r.Label = strings.TrimSpace(r.Label)
	r.Fees = strings.TrimSpace(r.Fees)
}

func (r *UpdateStageRequest) Validate() error {
	if r.Label == "" {
		return dErrors.New(dErrors.CodeValidation, "label is required")
	}
	if _, ok := new(big.Int).SetString(r.Fees, 10); !ok {
		return dErrors.New(dErrors.CodeValidation, "fees must be a decimal wei amount")
	}
	return nil
}

func (r *UpdateStageRequest) FeeAmount() *big.Int {
	fee, _ := new(big.Int).SetString(r.Fees, 10)
	return fee
}

// UpdateCapRequest replaces the total supply cap.
type UpdateCapRequest struct {
	Cap uint64 `json:"cap"`
}

func (r *UpdateCapRequest) Normalize() {}

func (r *UpdateCapRequest) Validate() error {
	return nil
}

// ValidatorRequest names the account whose validator role is granted or
// revoked.
type ValidatorRequest struct {
	Validator string `json:"validator"`
}

func (r *ValidatorRequest) Normalize() {
	r.Validator = strings.TrimSpace(r.Validator)
}

func (r *ValidatorRequest) Validate() error {
	if !common.IsHexAddress(r.Validator) {
		return dErrors.New(dErrors.CodeValidation, "validator must be a hex account address")
	}
	return nil
}

func (r *ValidatorRequest) ValidatorAddress() common.Address {
	return common.HexToAddress(r.Validator)
}
