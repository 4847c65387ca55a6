package rpc

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"stakepool/core/events"
	"stakepool/native/bank"
	"stakepool/native/rewards"
	"stakepool/storage/pooldb"
)

const testAddress = "0x00000000000000000000000000000000000000a1"

type testServer struct {
	router http.Handler
	engine *rewards.Engine
	hub    *Hub
	ledger *bank.Ledger
	now    uint64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	program, err := rewards.NewProgram("STK", "RWD", 1000, 2000, big.NewInt(1_000_000))
	require.NoError(t, err)
	engine, err := rewards.NewEngine(program)
	require.NoError(t, err)

	store, err := pooldb.Open(filepath.Join(t.TempDir(), "pool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ledger := bank.NewLedger()
	require.NoError(t, ledger.Credit(common.HexToAddress(testAddress), "STK", big.NewInt(10_000)))
	require.NoError(t, ledger.CreditCustody("RWD", big.NewInt(1_000_000)))

	hub := NewHub()
	engine.SetState(store)
	engine.SetVault(ledger)
	engine.SetEmitter(hub)

	ts := &testServer{engine: engine, hub: hub, ledger: ledger, now: 1000}
	engine.SetNowFunc(func() int64 { return int64(ts.now) })

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ts.router = NewServer(engine, hub, logger, 10_000, 10_000).Router()
	return ts
}

func (ts *testServer) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:4000"
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:4000"
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestStakeUnstakeClaimFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.post(t, "/v1/pool/stake", `{"address":"`+testAddress+`","amount":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.get(t, "/v1/pool/totals")
	require.Equal(t, http.StatusOK, rec.Code)
	var totals totalsResult
	decodeBody(t, rec, &totals)
	require.Equal(t, "100", totals.TotalStaked)

	// 500 seconds at 1000/sec with a sole staker.
	ts.now = 1500
	rec = ts.get(t, "/v1/pool/participants/"+testAddress)
	require.Equal(t, http.StatusOK, rec.Code)
	var participant participantResult
	decodeBody(t, rec, &participant)
	require.Equal(t, "100", participant.Staked)
	require.Equal(t, "500000", participant.Claimable)

	rec = ts.post(t, "/v1/pool/claim", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var claimed claimResult
	decodeBody(t, rec, &claimed)
	require.Equal(t, "500000", claimed.Amount)
	require.Zero(t, big.NewInt(500_000).Cmp(ts.ledger.Balance(common.HexToAddress(testAddress), "RWD")))

	rec = ts.post(t, "/v1/pool/unstake", `{"address":"`+testAddress+`","amount":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Zero(t, big.NewInt(10_000).Cmp(ts.ledger.Balance(common.HexToAddress(testAddress), "STK")))
}

func TestClaimPartialAmount(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.post(t, "/v1/pool/stake", `{"address":"`+testAddress+`","amount":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	ts.now = 1500
	rec = ts.post(t, "/v1/pool/claim", `{"address":"`+testAddress+`","amount":"200000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var claimed claimResult
	decodeBody(t, rec, &claimed)
	require.Equal(t, "200000", claimed.Amount)

	rec = ts.get(t, "/v1/pool/participants/"+testAddress)
	var participant participantResult
	decodeBody(t, rec, &participant)
	require.Equal(t, "300000", participant.Claimable)
}

func TestSettleEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.post(t, "/v1/pool/stake", `{"address":"`+testAddress+`","amount":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	ts.now = 1250
	rec = ts.post(t, "/v1/pool/settle", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var settled settleResult
	decodeBody(t, rec, &settled)
	require.Equal(t, "250000", settled.Settled)
}

func TestEngineConflictsMapTo409(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.post(t, "/v1/pool/stake", `{"address":"`+testAddress+`","amount":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.post(t, "/v1/pool/unstake", `{"address":"`+testAddress+`","amount":"101"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.post(t, "/v1/pool/claim", `{"address":"`+testAddress+`","amount":"1"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Balance too small for the pull; surfaces as a transfer conflict.
	rec = ts.post(t, "/v1/pool/stake", `{"address":"`+testAddress+`","amount":"1000000000"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestBadRequestValidation(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name string
		path string
		body string
	}{
		{name: "malformed json", path: "/v1/pool/stake", body: `{"address":`},
		{name: "bad address", path: "/v1/pool/stake", body: `{"address":"bogus","amount":"10"}`},
		{name: "zero amount", path: "/v1/pool/stake", body: `{"address":"` + testAddress + `","amount":"0"}`},
		{name: "negative amount", path: "/v1/pool/unstake", body: `{"address":"` + testAddress + `","amount":"-5"}`},
		{name: "non numeric amount", path: "/v1/pool/claim", body: `{"address":"` + testAddress + `","amount":"ten"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.post(t, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := ts.get(t, "/v1/pool/participants/nothex")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProgramEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/v1/pool/program")
	require.Equal(t, http.StatusOK, rec.Code)
	var program programResult
	decodeBody(t, rec, &program)
	require.Equal(t, "STK", program.StakeAsset)
	require.Equal(t, "RWD", program.RewardAsset)
	require.Equal(t, uint64(1000), program.Start)
	require.Equal(t, uint64(2000), program.End)
	require.Equal(t, "1000000", program.TotalRewards)
	require.Equal(t, "1000", program.RatePerSecond)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestRateLimitRejects(t *testing.T) {
	program, err := rewards.NewProgram("STK", "RWD", 1000, 2000, big.NewInt(1_000_000))
	require.NoError(t, err)
	engine, err := rewards.NewEngine(program)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	router := NewServer(engine, NewHub(), logger, 1, 2).Router()

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "192.0.2.9:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}

func TestHubDeliversCommittedEvents(t *testing.T) {
	ts := newTestServer(t)
	sub, cancel := ts.hub.subscribe()
	defer cancel()

	rec := ts.post(t, "/v1/pool/stake", `{"address":"`+testAddress+`","amount":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	seen := make(map[string]bool)
	for len(sub) > 0 {
		evt := <-sub
		seen[evt.Type] = true
	}
	require.True(t, seen[events.TypePoolStaked], "expected a %s event, saw %v", events.TypePoolStaked, seen)
}
