package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token is one issued name record. Ids are sequential from 0 and are
// allocated only on successful mints, never reused.
type Token struct {
	ID       uint64
	Owner    common.Address
	Username string
	URI      string
	MintedAt time.Time
}

// StageDetail is the mutable stage configuration: label, per-stage supply
// cap, and the default minting fee in wei. A voucher may override the fee
// per mint; the stage fee applies when the voucher carries zero.
type StageDetail struct {
	Label    string
	StageCap uint64
	Fee      *big.Int
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (d StageDetail) Clone() StageDetail {
	out := d
	if d.Fee != nil {
		out.Fee = new(big.Int).Set(d.Fee)
	}
	return out
}
