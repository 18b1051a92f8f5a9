package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/elys-network/wlp/internal/logger"
)

const rpcTimeout = 20 * time.Second

// --- JSON-RPC structures ---

// JSONRPCRequest defines the structure of a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSONRPCResponse defines the structure of a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError defines the structure of a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// RemoteGateway speaks JSON-RPC to a pool gateway node. It implements both
// PoolGateway and AssetLedger; every call hits the node so nothing is cached
// across operations.
type RemoteGateway struct {
	endpoint string
	client   http.Client
	logger   zerolog.Logger
	nextID   int

	addr    string
	denom0  string
	denom1  string
	lpDenom string
}

// remotePoolInfo is the result of gateway_poolInfo.
type remotePoolInfo struct {
	Address        string `json:"address"`
	Denom0         string `json:"denom0"`
	Denom1         string `json:"denom1"`
	LiquidityDenom string `json:"liquidity_denom"`
}

// NewRemoteGateway connects to the gateway node and fetches the static pool
// metadata once; reserves and supply are always re-read per call.
func NewRemoteGateway(endpoint string) (*RemoteGateway, error) {
	g := &RemoteGateway{
		endpoint: endpoint,
		client:   http.Client{Timeout: rpcTimeout},
		logger:   logger.GetForComponent("remote_gateway"),
	}
	var info remotePoolInfo
	if err := g.call("gateway_poolInfo", struct{}{}, &info); err != nil {
		return nil, fmt.Errorf("failed to fetch pool info: %w", err)
	}
	g.addr = info.Address
	g.denom0 = info.Denom0
	g.denom1 = info.Denom1
	g.lpDenom = info.LiquidityDenom

	g.logger.Info().
		Str("endpoint", endpoint).
		Str("denom0", g.denom0).
		Str("denom1", g.denom1).
		Msg("Connected to pool gateway node")
	return g, nil
}

func (g *RemoteGateway) Address() string          { return g.addr }
func (g *RemoteGateway) Denoms() (string, string) { return g.denom0, g.denom1 }
func (g *RemoteGateway) LiquidityDenom() string   { return g.lpDenom }

type remoteReserves struct {
	Reserve0  string `json:"reserve0"`
	Reserve1  string `json:"reserve1"`
	UpdatedAt int64  `json:"updated_at"`
}

// Reserves re-reads the live pool reserves.
func (g *RemoteGateway) Reserves() (sdkmath.Int, sdkmath.Int, time.Time, error) {
	var res remoteReserves
	if err := g.call("pool_reserves", struct{}{}, &res); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, time.Time{}, err
	}
	r0, err := parseInt(res.Reserve0)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, time.Time{}, err
	}
	r1, err := parseInt(res.Reserve1)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, time.Time{}, err
	}
	return r0, r1, time.Unix(res.UpdatedAt, 0), nil
}

// TotalLiquiditySupply re-reads the outstanding liquidity-share supply.
func (g *RemoteGateway) TotalLiquiditySupply() (sdkmath.Int, error) {
	var res struct {
		Supply string `json:"supply"`
	}
	if err := g.call("pool_totalLiquiditySupply", struct{}{}, &res); err != nil {
		return sdkmath.Int{}, err
	}
	return parseInt(res.Supply)
}

// Swap pays the requested output amounts to the recipient.
func (g *RemoteGateway) Swap(amount0Out, amount1Out sdkmath.Int, recipient string) error {
	params := struct {
		Amount0Out string `json:"amount0_out"`
		Amount1Out string `json:"amount1_out"`
		Recipient  string `json:"recipient"`
	}{amount0Out.String(), amount1Out.String(), recipient}
	return g.call("pool_swap", params, &struct{}{})
}

// Mint issues liquidity shares against the assets transferred in beforehand.
func (g *RemoteGateway) Mint(recipient string) (sdkmath.Int, error) {
	params := struct {
		Recipient string `json:"recipient"`
	}{recipient}
	var res struct {
		LiquidityIssued string `json:"liquidity_issued"`
	}
	if err := g.call("pool_mint", params, &res); err != nil {
		return sdkmath.Int{}, err
	}
	return parseInt(res.LiquidityIssued)
}

// Burn redeems previously transferred liquidity shares.
func (g *RemoteGateway) Burn(recipient string) (sdkmath.Int, sdkmath.Int, error) {
	params := struct {
		Recipient string `json:"recipient"`
	}{recipient}
	var res struct {
		Amount0 string `json:"amount0"`
		Amount1 string `json:"amount1"`
	}
	if err := g.call("pool_burn", params, &res); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	a0, err := parseInt(res.Amount0)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	a1, err := parseInt(res.Amount1)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return a0, a1, nil
}

// Transfer moves assets between ledger accounts via the gateway node.
func (g *RemoteGateway) Transfer(from, to string, amount sdk.Coin) error {
	params := struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Denom  string `json:"denom"`
		Amount string `json:"amount"`
	}{from, to, amount.Denom, amount.Amount.String()}
	return g.call("ledger_transfer", params, &struct{}{})
}

// TransferFrom moves assets out of the owner's account on the engine's
// behalf.
func (g *RemoteGateway) TransferFrom(owner, recipient string, amount sdk.Coin) error {
	params := struct {
		Owner     string `json:"owner"`
		Recipient string `json:"recipient"`
		Denom     string `json:"denom"`
		Amount    string `json:"amount"`
	}{owner, recipient, amount.Denom, amount.Amount.String()}
	return g.call("ledger_transferFrom", params, &struct{}{})
}

// BalanceOf queries an account balance.
func (g *RemoteGateway) BalanceOf(account, denom string) (sdkmath.Int, error) {
	params := struct {
		Account string `json:"account"`
		Denom   string `json:"denom"`
	}{account, denom}
	var res struct {
		Balance string `json:"balance"`
	}
	if err := g.call("ledger_balanceOf", params, &res); err != nil {
		return sdkmath.Int{}, err
	}
	return parseInt(res.Balance)
}

// Decimals queries a denom's display precision.
func (g *RemoteGateway) Decimals(denom string) (uint8, error) {
	params := struct {
		Denom string `json:"denom"`
	}{denom}
	var res struct {
		Decimals uint8 `json:"decimals"`
	}
	if err := g.call("ledger_decimals", params, &res); err != nil {
		return 0, err
	}
	return res.Decimals, nil
}

// call executes a JSON-RPC request and unmarshals the result.
func (g *RemoteGateway) call(method string, params interface{}, result interface{}) error {
	paramBytes, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	g.nextID++
	reqBody := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      g.nextID,
		Method:  method,
		Params:  paramBytes,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON-RPC request: %w", err)
	}

	g.logger.Debug().Str("method", method).Msg("Executing gateway RPC")

	req, err := http.NewRequest("POST", g.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBodyBytes, &rpcResp); err != nil {
		return fmt.Errorf("failed to unmarshal JSON-RPC response: %w", err)
	}
	if rpcResp.Error != nil {
		g.logger.Error().
			Int("code", rpcResp.Error.Code).
			Str("message", rpcResp.Error.Message).
			Str("method", method).
			Msg("Gateway RPC error")
		return fmt.Errorf("gateway RPC error: %s (code %d)", rpcResp.Error.Message, rpcResp.Error.Code)
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to unmarshal %s result: %w", method, err)
	}
	return nil
}

func parseInt(s string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("invalid integer amount %q", s)
	}
	return v, nil
}
