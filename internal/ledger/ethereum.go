package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/atmx/portfolio-engine/internal/model"
)

// predictionMarketABI holds the events of the PredictionMarket V3.4 contract
// that the engine consumes.
const predictionMarketABI = `[
  {
    "type": "event",
    "name": "MarketActionTx",
    "anonymous": false,
    "inputs": [
      {"name": "user", "type": "address", "indexed": true},
      {"name": "action", "type": "uint8", "indexed": true},
      {"name": "marketId", "type": "uint256", "indexed": true},
      {"name": "outcomeId", "type": "uint256", "indexed": false},
      {"name": "shares", "type": "uint256", "indexed": false},
      {"name": "value", "type": "uint256", "indexed": false},
      {"name": "timestamp", "type": "uint256", "indexed": false}
    ]
  }
]`

// Backend is the subset of the JSON-RPC client the source needs.
// *ethclient.Client satisfies it.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// EthSource implements Source against an Ethereum-compatible node.
type EthSource struct {
	backend Backend
	abi     abi.ABI
}

// NewEthSource wraps an existing backend.
func NewEthSource(backend Backend) (*EthSource, error) {
	parsed, err := abi.JSON(strings.NewReader(predictionMarketABI))
	if err != nil {
		return nil, fmt.Errorf("parse prediction market abi: %w", err)
	}
	return &EthSource{backend: backend, abi: parsed}, nil
}

// DialEthSource connects to a JSON-RPC endpoint. The returned client must be
// closed by the caller.
func DialEthSource(ctx context.Context, rpcURL string) (*EthSource, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	src, err := NewEthSource(client)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return src, client, nil
}

func (s *EthSource) HeadPosition(ctx context.Context) (uint64, error) {
	return s.backend.BlockNumber(ctx)
}

func (s *EthSource) Logs(ctx context.Context, q Query) ([]model.RawLogEntry, error) {
	name := q.Event
	if name == "" {
		name = EventMarketActionTx
	}
	ev, ok := s.abi.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", name)
	}

	user := common.HexToAddress(q.User)
	filter := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(q.From),
		ToBlock:   new(big.Int).SetUint64(q.To),
		Addresses: []common.Address{common.HexToAddress(q.Contract)},
		Topics: [][]common.Hash{
			{ev.ID},
			{common.BytesToHash(user.Bytes())},
		},
	}

	logs, err := s.backend.FilterLogs(ctx, filter)
	if err != nil {
		return nil, err
	}

	entries := make([]model.RawLogEntry, 0, len(logs))
	for _, lg := range logs {
		entries = append(entries, decodeMarketAction(ev, lg))
	}
	return entries, nil
}

// decodeMarketAction decodes what it can from a log. Topics are decoded one
// at a time so a single bad topic does not discard the others.
func decodeMarketAction(ev abi.Event, lg types.Log) model.RawLogEntry {
	entry := model.RawLogEntry{
		TxHash:      lg.TxHash.Hex(),
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
	}

	args := make(map[string]interface{})

	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	for i, arg := range indexed {
		// Topic 0 is the event signature.
		if i+1 >= len(lg.Topics) {
			break
		}
		if err := abi.ParseTopicsIntoMap(args, abi.Arguments{arg}, lg.Topics[i+1:i+2]); err != nil {
			slog.Debug("topic decode failed", "tx", entry.TxHash, "arg", arg.Name, "err", err)
		}
	}

	if err := ev.Inputs.NonIndexed().UnpackIntoMap(args, lg.Data); err != nil {
		slog.Debug("data decode failed", "tx", entry.TxHash, "err", err)
	}

	if v, ok := args["user"].(common.Address); ok {
		entry.User = v.Hex()
	}
	if v, ok := args["action"].(uint8); ok {
		entry.Action = &v
	}
	entry.MarketID = bigArg(args, "marketId")
	entry.OutcomeID = bigArg(args, "outcomeId")
	entry.Shares = bigArg(args, "shares")
	entry.Value = bigArg(args, "value")
	entry.Timestamp = bigArg(args, "timestamp")

	return entry
}

func bigArg(args map[string]interface{}, name string) *big.Int {
	if v, ok := args[name].(*big.Int); ok && v != nil {
		return new(big.Int).Set(v)
	}
	return nil
}
