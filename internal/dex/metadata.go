package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"uniscope/internal/chain"
	"uniscope/internal/model"
)

// TokenCache caches ERC-20 metadata by address.
type TokenCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.Token
}

func NewTokenCache() *TokenCache {
	return &TokenCache{data: make(map[common.Address]model.Token)}
}

func (c *TokenCache) Get(address common.Address) (model.Token, bool) {
	c.mu.RLock()
	token, ok := c.data[address]
	c.mu.RUnlock()
	return token, ok
}

func (c *TokenCache) Set(address common.Address, token model.Token) {
	c.mu.Lock()
	c.data[address] = token
	c.mu.Unlock()
}

// FetchToken loads ERC-20 metadata via eth_call, falling back to the bytes32
// ABI variant for symbol and name. Decimals are mandatory; the other fields
// degrade to empty values.
func FetchToken(ctx context.Context, chainClient *chain.Client, token common.Address, logger *zap.Logger) (model.Token, error) {
	meta := model.Token{Address: token.Hex()}
	if chainClient == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := chainClient.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	readString := func(method string) (string, error) {
		return readTokenString(call, stringABI, bytes32ABI, method)
	}

	if symbol, err := readString("symbol"); err == nil {
		meta.Symbol = symbol
	} else {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if name, err := readString("name"); err == nil {
		meta.Name = name
	} else {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	meta.TotalSupply = "0"
	if values, err := call("totalSupply", stringABI); err == nil {
		if supply, err := asBigInt(values[0]); err == nil {
			meta.TotalSupply = supply.String()
		}
	} else {
		logger.Debug("totalSupply call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

// FetchFeeGrowthGlobals reads a pool's fee-growth accumulators at a block
// height. Used when a Flash log has no accompanying storage diff.
func FetchFeeGrowthGlobals(ctx context.Context, chainClient *chain.Client, pool common.Address, blockNumber uint64) (global0, global1 *big.Int, err error) {
	if chainClient == nil {
		return nil, nil, fmt.Errorf("chain client is nil")
	}
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse pool abi: %w", err)
	}

	var blockPtr *big.Int
	if blockNumber > 0 {
		blockPtr = new(big.Int).SetUint64(blockNumber)
	}

	call := func(method string) (*big.Int, error) {
		data, err := poolABI.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &pool, Data: data}
		resp, err := chainClient.CallContract(ctx, msg, blockPtr)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := poolABI.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return asBigInt(values[0])
	}

	global0, err = call("feeGrowthGlobal0X128")
	if err != nil {
		return nil, nil, err
	}
	global1, err = call("feeGrowthGlobal1X128")
	if err != nil {
		return nil, nil, err
	}
	return global0, global1, nil
}

// callFunc performs one eth_call against a parsed ABI.
type callFunc func(method string, parsed abi.ABI) ([]interface{}, error)

// readTokenString tries the string ABI first, then the bytes32 variant. Both
// errors are kept so a failure reports why each shape was rejected.
func readTokenString(call callFunc, stringABI, bytes32ABI abi.ABI, method string) (string, error) {
	values, strErr := call(method, stringABI)
	if strErr == nil {
		if s, ok := values[0].(string); ok {
			return s, nil
		}
		strErr = fmt.Errorf("%s: unexpected string return %T", method, values[0])
	}
	values, b32Err := call(method, bytes32ABI)
	if b32Err == nil {
		if s, ok := bytes32ToString(values[0]); ok {
			return s, nil
		}
		b32Err = fmt.Errorf("%s: unexpected bytes32 return %T", method, values[0])
	}
	return "", fmt.Errorf("string abi: %v; bytes32 abi: %v", strErr, b32Err)
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
