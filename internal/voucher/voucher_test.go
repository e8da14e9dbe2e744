package voucher

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func testVoucher() *Voucher {
	return &Voucher{
		Account:  common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
		Username: "alice",
		TokenURI: "ipfs://alice.json",
		Fees:     "80000000000000000",
		Deadline: "1893456000",
	}
}

func TestSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	d := NewDomain(31337, testContract)
	v := testVoucher()

	v.Signature, err = Sign(d, v, key)
	require.NoError(t, err)
	require.Len(t, []byte(v.Signature), 65)

	signer, err := RecoverSigner(d, v)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer)
}

func TestRecoverAcceptsBothRecoveryIDForms(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	d := NewDomain(31337, testContract)
	v := testVoucher()
	v.Signature, err = Sign(d, v, key)
	require.NoError(t, err)

	want := crypto.PubkeyToAddress(key.PublicKey)

	// Sign emits v in {27,28}; the raw form in {0,1} must recover identically.
	raw := make([]byte, len(v.Signature))
	copy(raw, v.Signature)
	raw[64] -= 27
	v.Signature = raw

	signer, err := RecoverSigner(d, v)
	require.NoError(t, err)
	assert.Equal(t, want, signer)
}

func TestTamperedFieldChangesSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	d := NewDomain(31337, testContract)
	v := testVoucher()
	v.Signature, err = Sign(d, v, key)
	require.NoError(t, err)

	v.Username = "mallory"
	signer, err := RecoverSigner(d, v)
	require.NoError(t, err)
	assert.NotEqual(t, crypto.PubkeyToAddress(key.PublicKey), signer)
}

func TestDigestBoundToDomain(t *testing.T) {
	v := testVoucher()

	base := NewDomain(31337, testContract).Digest(v)
	otherChain := NewDomain(1, testContract).Digest(v)
	otherContract := NewDomain(31337, common.HexToAddress("0x00000000000000000000000000000000deadbeef")).Digest(v)

	assert.NotEqual(t, base, otherChain)
	assert.NotEqual(t, base, otherContract)
}

func TestDigestIsDeterministic(t *testing.T) {
	d := NewDomain(31337, testContract)
	assert.Equal(t, d.Digest(testVoucher()), d.Digest(testVoucher()))
}

func TestFeeAmount(t *testing.T) {
	v := testVoucher()

	fee, err := v.FeeAmount()
	require.NoError(t, err)
	assert.Equal(t, "80000000000000000", fee.String())

	v.Fees = "0"
	fee, err = v.FeeAmount()
	require.NoError(t, err)
	assert.Zero(t, fee.Sign())

	v.Fees = "not-a-number"
	_, err = v.FeeAmount()
	assert.Error(t, err)

	v.Fees = "-5"
	_, err = v.FeeAmount()
	assert.Error(t, err)
}

func TestDeadlineUnix(t *testing.T) {
	v := testVoucher()

	ts, err := v.DeadlineUnix()
	require.NoError(t, err)
	assert.Equal(t, int64(1893456000), ts)

	v.Deadline = "0"
	ts, err = v.DeadlineUnix()
	require.NoError(t, err)
	assert.Zero(t, ts)

	v.Deadline = "soon"
	_, err = v.DeadlineUnix()
	assert.Error(t, err)
}

func TestRecoverRejectsMalformedSignature(t *testing.T) {
	d := NewDomain(31337, testContract)
	v := testVoucher()
	v.Signature = []byte{0x01, 0x02}

	_, err := RecoverSigner(d, v)
	assert.Error(t, err)
}
