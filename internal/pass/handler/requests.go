package handler

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "zoopr/pkg/domain-errors"
)

// MintRequest carries the caller account and the attached payment in wei.
type MintRequest struct {
	Caller  string `json:"caller"`
	Payment string `json:"payment"`
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
	return nil
}

func (r *MintRequest) CallerAddress() common.Address {
	return common.HexToAddress(r.Caller)
}

func (r *MintRequest) PaymentAmount() *big.Int {
	amount, _ := new(big.Int).SetString(r.Payment, 10)
	return amount
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
