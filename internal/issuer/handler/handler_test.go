package handler

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zoopr/internal/issuer/models"
	"zoopr/internal/issuer/service"
	"zoopr/internal/issuer/store"
	"zoopr/internal/ledger"
	"zoopr/internal/platform/logger"
	"zoopr/internal/platform/middleware"
	"zoopr/internal/roles"
	"zoopr/internal/voucher"
)

const signingKey = "test-signing-key"

var (
	admin    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	user1    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	contract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	mintingFee = new(big.Int).Mul(big.NewInt(8), new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil))
)

type passBalances map[common.Address]int

func (p passBalances) BalanceOf(_ context.Context, account common.Address) (int, error) {
	return p[account], nil
}

type testServer struct {
	router    chi.Router
	domain    *voucher.Domain
	validator *ecdsa.PrivateKey
	passes    passBalances
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.New()

	validatorKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	roleSet := roles.New(admin)
	require.NoError(t, roleSet.Grant(admin, crypto.PubkeyToAddress(validatorKey.PublicKey)))

	l := ledger.New()
	require.NoError(t, l.Deposit(user1, new(big.Int).Mul(big.NewInt(100), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))))

	domain := voucher.NewDomain(31337, contract)
	passes := passBalances{}
	svc := service.New(
		store.NewInMemory(models.StageDetail{Label: "SEED", StageCap: 1000, Fee: mintingFee}, 100000),
		passes,
		l,
		roleSet,
		domain,
	)

	h := New(svc, log)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminJWT(signingKey, log))
		h.RegisterAdmin(r)
	})

	return &testServer{router: r, domain: domain, validator: validatorKey, passes: passes}
}

func (ts *testServer) voucher(t *testing.T, account common.Address, username, fees string) voucher.Voucher {
	t.Helper()
	v := voucher.Voucher{
		Account:  account,
		Username: username,
		TokenURI: "ipfs://" + username + ".json",
		Fees:     fees,
		Deadline: strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
	}
	sig, err := voucher.Sign(ts.domain, &v, ts.validator)
	require.NoError(t, err)
	v.Signature = sig
	return v
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T, account common.Address) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   account.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func TestMintEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/unts/mint", MintRequest{
		Caller:  user1.Hex(),
		Payment: mintingFee.String(),
		Voucher: ts.voucher(t, user1, "alice", mintingFee.String()),
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, uint64(0), resp.TokenID)
	assert.Equal(t, user1.Hex(), resp.Owner)
	assert.Equal(t, "alice", resp.Username)

	// Token and name lookups reflect the mint.
	rec = ts.do(t, http.MethodGet, "/api/unts/tokens/0", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/unts/names/alice", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var name NameResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&name))
	assert.True(t, name.Minted)
}

func TestMintEndpointStatusMapping(t *testing.T) {
	ts := newTestServer(t)

	// Tampered voucher -> 401
	v := ts.voucher(t, user1, "alice", mintingFee.String())
	v.Username = "mallory"
	rec := ts.do(t, http.MethodPost, "/api/unts/mint", MintRequest{
		Caller: user1.Hex(), Payment: mintingFee.String(), Voucher: v,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Underpayment -> 402
	rec = ts.do(t, http.MethodPost, "/api/unts/mint", MintRequest{
		Caller: user1.Hex(), Payment: "0", Voucher: ts.voucher(t, user1, "alice", mintingFee.String()),
	}, "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	// Duplicate name -> 409
	ok := ts.do(t, http.MethodPost, "/api/unts/mint", MintRequest{
		Caller: user1.Hex(), Payment: mintingFee.String(), Voucher: ts.voucher(t, user1, "alice", mintingFee.String()),
	}, "")
	require.Equal(t, http.StatusCreated, ok.Code)
	rec = ts.do(t, http.MethodPost, "/api/unts/mint", MintRequest{
		Caller: user1.Hex(), Payment: mintingFee.String(), Voucher: ts.voucher(t, user1, "alice", mintingFee.String()),
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Malformed caller -> 400
	rec = ts.do(t, http.MethodPost, "/api/unts/mint", MintRequest{
		Caller: "nope", Payment: "0", Voucher: ts.voucher(t, user1, "bob", "0"),
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFreeMintEndpoint(t *testing.T) {
	ts := newTestServer(t)

	// Without a pass -> 403
	rec := ts.do(t, http.MethodPost, "/api/unts/free-mint", FreeMintRequest{
		Caller: user1.Hex(), Voucher: ts.voucher(t, user1, "alice", "0"),
	}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ts.passes[user1] = 1
	rec = ts.do(t, http.MethodPost, "/api/unts/free-mint", FreeMintRequest{
		Caller: user1.Hex(), Voucher: ts.voucher(t, user1, "alice", "0"),
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/unts/accounts/%s/free-mint", user1.Hex()), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status FreeMintStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.True(t, status.Used)
}

func TestCollectionEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/unts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CollectionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, service.Name, resp.Name)
	assert.Equal(t, "SEED", resp.Stage)
	assert.Equal(t, mintingFee.String(), resp.Fees)
	assert.Equal(t, uint64(100000), resp.Cap)
}

func TestAdminEndpointsRequireJWT(t *testing.T) {
	ts := newTestServer(t)
	body := UpdateStageRequest{Label: "PUBLIC", Cap: 5000, Fees: "100"}

	rec := ts.do(t, http.MethodPost, "/admin/unts/stage", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Authenticated but not the admin account -> 403 from the role check.
	rec = ts.do(t, http.MethodPost, "/admin/unts/stage", body, adminToken(t, user1))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/admin/unts/stage", body, adminToken(t, admin))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/unts", nil, "")
	var resp CollectionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "PUBLIC", resp.Stage)
}

func TestAdminCapAndValidatorEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := adminToken(t, admin)

	rec := ts.do(t, http.MethodPost, "/admin/unts/cap", UpdateCapRequest{Cap: 42}, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/unts", nil, "")
	var resp CollectionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, uint64(42), resp.Cap)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	validator := crypto.PubkeyToAddress(key.PublicKey)

	rec = ts.do(t, http.MethodPost, "/admin/unts/validators", ValidatorRequest{Validator: validator.Hex()}, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Vouchers signed by the new validator are honored.
	v := voucher.Voucher{
		Account:  user1,
		Username: "carol",
		TokenURI: "ipfs://carol.json",
		Fees:     mintingFee.String(),
		Deadline: strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
	}
	sig, err := voucher.Sign(ts.domain, &v, key)
	require.NoError(t, err)
	v.Signature = sig
	rec = ts.do(t, http.MethodPost, "/api/unts/mint", MintRequest{
		Caller: user1.Hex(), Payment: mintingFee.String(), Voucher: v,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/admin/unts/validators", ValidatorRequest{Validator: validator.Hex()}, token)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
