package voucher

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// The typed-data layout below is a frozen wire contract. Field order, type
// strings, and domain parameters must not change: any edit invalidates every
// voucher signed before it.
const (
	domainName    = "UniqueNameToken"
	domainVersion = "1"

	eip712DomainType = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	voucherType      = "UNT(address account,string username,string tokenURI,string fees,string deadline)"
)

// Domain binds voucher digests to one chain and one contract deployment,
// preventing cross-contract and cross-chain replay.
type Domain struct {
	chainID           uint64
	verifyingContract common.Address
	separator         [32]byte
}

// NewDomain precomputes the domain separator for the given deployment.
func NewDomain(chainID uint64, verifyingContract common.Address) *Domain {
	d := &Domain{chainID: chainID, verifyingContract: verifyingContract}
	d.separator = keccak256(
		keccakSlice([]byte(eip712DomainType)),
		keccakSlice([]byte(domainName)),
		keccakSlice([]byte(domainVersion)),
		padUint64(chainID),
		padAddress(verifyingContract),
	)
	return d
}

// ChainID returns the chain the domain is bound to.
func (d *Domain) ChainID() uint64 { return d.chainID }

// VerifyingContract returns the contract address the domain is bound to.
func (d *Domain) VerifyingContract() common.Address { return d.verifyingContract }

// Digest computes the signable hash of a voucher:
// keccak256("\x19\x01" || domainSeparator || structHash).
func (d *Domain) Digest(v *Voucher) [32]byte {
	structHash := keccak256(
		keccakSlice([]byte(voucherType)),
		padAddress(v.Account),
		keccakSlice([]byte(v.Username)),
		keccakSlice([]byte(v.TokenURI)),
		keccakSlice([]byte(v.Fees)),
		keccakSlice([]byte(v.Deadline)),
	)
	return keccak256([]byte{0x19, 0x01}, d.separator[:], structHash[:])
}

func keccak256(chunks ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		h.Write(c)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

func keccakSlice(data []byte) []byte {
	h := keccak256(data)
	return h[:]
}

func padAddress(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

func padUint64(n uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(n).Bytes(), 32)
}
