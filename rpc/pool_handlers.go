package rpc

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

type stakeParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type claimParams struct {
	Address string `json:"address"`
	// Amount is optional; omitting it claims the full settled reward.
	Amount string `json:"amount,omitempty"`
}

type settleParams struct {
	Address string `json:"address"`
}

type opResult struct {
	OK bool `json:"ok"`
}

type claimResult struct {
	OK     bool   `json:"ok"`
	Amount string `json:"amount"`
}

type settleResult struct {
	Settled string `json:"settled"`
}

type programResult struct {
	StakeAsset    string `json:"stakeAsset"`
	RewardAsset   string `json:"rewardAsset"`
	Start         uint64 `json:"start"`
	End           uint64 `json:"end"`
	TotalRewards  string `json:"totalRewards"`
	RatePerSecond string `json:"ratePerSecond"`
}

type totalsResult struct {
	TotalStaked string `json:"totalStaked"`
}

type participantResult struct {
	Address   string `json:"address"`
	Staked    string `json:"staked"`
	Claimable string `json:"claimable"`
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var params stakeParams
	addr, amount, ok := decodeStakeParams(w, r, &params)
	if !ok {
		return
	}
	if err := s.engine.Stake(addr, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opResult{OK: true})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	var params stakeParams
	addr, amount, ok := decodeStakeParams(w, r, &params)
	if !ok {
		return
	}
	if err := s.engine.Unstake(addr, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opResult{OK: true})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var params claimParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	addr, ok := parseAddress(w, params.Address)
	if !ok {
		return
	}
	if strings.TrimSpace(params.Amount) == "" {
		paid, err := s.engine.ClaimAll(addr)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, claimResult{OK: true, Amount: paid.String()})
		return
	}
	amount, ok := parsePositiveAmount(w, params.Amount)
	if !ok {
		return
	}
	if err := s.engine.Claim(addr, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResult{OK: true, Amount: amount.String()})
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var params settleParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	addr, ok := parseAddress(w, params.Address)
	if !ok {
		return
	}
	settled, err := s.engine.Settle(addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settleResult{Settled: settled.String()})
}

func (s *Server) handleProgram(w http.ResponseWriter, _ *http.Request) {
	program := s.engine.Program()
	writeJSON(w, http.StatusOK, programResult{
		StakeAsset:    program.StakeAsset,
		RewardAsset:   program.RewardAsset,
		Start:         program.Start,
		End:           program.End,
		TotalRewards:  program.TotalRewards.String(),
		RatePerSecond: program.RatePerSecond.String(),
	})
}

func (s *Server) handleTotals(w http.ResponseWriter, _ *http.Request) {
	total, err := s.engine.TotalStaked()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsResult{TotalStaked: total.String()})
}

func (s *Server) handleParticipant(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, chi.URLParam(r, "addr"))
	if !ok {
		return
	}
	staked, err := s.engine.StakedAmount(addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	claimable, err := s.engine.ClaimableReward(addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participantResult{
		Address:   common.Address(addr).Hex(),
		Staked:    staked.String(),
		Claimable: claimable.String(),
	})
}

func decodeStakeParams(w http.ResponseWriter, r *http.Request, params *stakeParams) ([20]byte, *big.Int, bool) {
	if err := json.NewDecoder(r.Body).Decode(params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return [20]byte{}, nil, false
	}
	addr, ok := parseAddress(w, params.Address)
	if !ok {
		return [20]byte{}, nil, false
	}
	amount, ok := parsePositiveAmount(w, params.Amount)
	if !ok {
		return [20]byte{}, nil, false
	}
	return addr, amount, true
}

func parseAddress(w http.ResponseWriter, raw string) ([20]byte, bool) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		writeError(w, http.StatusBadRequest, "invalid participant address")
		return [20]byte{}, false
	}
	return common.HexToAddress(trimmed), true
}

func parsePositiveAmount(w http.ResponseWriter, raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive base-10 integer")
		return nil, false
	}
	return amount, true
}
