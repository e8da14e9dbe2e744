package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token is one issued pass record. Ids are sequential from 0 and are
// allocated only on successful mints.
type Token struct {
	ID       uint64
	Owner    common.Address
	URI      string
	MintedAt time.Time
}

// StageDetail is the mutable per-stage configuration: a label, the supply cap
// for the stage, and the fee charged per mint, in wei.
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
