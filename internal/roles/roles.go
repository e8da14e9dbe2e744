// Package roles is the capability table shared by both issuers: one fixed
// admin account and a mutable set of validator accounts whose voucher
// signatures are accepted. Membership is an explicit set, not a hierarchy.
package roles

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	dErrors "zoopr/pkg/domain-errors"
)

// Set holds role membership. The admin is fixed at construction (the
// deployer); validators are granted and revoked by the admin at any time.
type Set struct {
	mu         sync.RWMutex
	admin      common.Address
	validators map[common.Address]struct{}
}

// New builds the role set. The admin starts as a validator as well, matching
// the deployment behavior of the original collection.
func New(admin common.Address) *Set {
	return &Set{
		admin:      admin,
		validators: map[common.Address]struct{}{admin: {}},
	}
}

// Admin returns the fixed admin account.
func (s *Set) Admin() common.Address {
	return s.admin
}

// IsAdmin reports whether the account holds the admin role.
func (s *Set) IsAdmin(account common.Address) bool {
	return account == s.admin
}

// IsValidator reports whether the account is a current validator-role member.
func (s *Set) IsValidator(account common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.validators[account]
	return ok
}

// Grant adds a validator. Admin only.
func (s *Set) Grant(caller, validator common.Address) error {
	if !s.IsAdmin(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the admin")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validators[validator] = struct{}{}
	return nil
}

// Revoke removes a validator. Admin only. Revoking a non-member is a no-op.
func (s *Set) Revoke(caller, validator common.Address) error {
	if !s.IsAdmin(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the admin")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.validators, validator)
	return nil
}
