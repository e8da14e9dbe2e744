package roles

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "zoopr/pkg/domain-errors"
)

var (
	admin     = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	validator = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	stranger  = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func TestAdminStartsAsValidator(t *testing.T) {
	s := New(admin)
	assert.True(t, s.IsAdmin(admin))
	assert.True(t, s.IsValidator(admin))
	assert.False(t, s.IsValidator(validator))
}

func TestGrantAndRevoke(t *testing.T) {
	s := New(admin)

	require.NoError(t, s.Grant(admin, validator))
	assert.True(t, s.IsValidator(validator))

	require.NoError(t, s.Revoke(admin, validator))
	assert.False(t, s.IsValidator(validator))
}

func TestGrantRequiresAdmin(t *testing.T) {
	s := New(admin)

	err := s.Grant(stranger, validator)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.False(t, s.IsValidator(validator))

	err = s.Revoke(stranger, admin)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.True(t, s.IsValidator(admin))
}
