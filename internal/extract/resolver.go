package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"uniscope/internal/chain"
	"uniscope/internal/dex"
	"uniscope/internal/model"
)

// TokenResolver resolves ERC-20 metadata for a token address.
type TokenResolver interface {
	Resolve(ctx context.Context, address string) (model.Token, error)
}

// ChainTokenResolver resolves tokens over eth_call with an in-memory cache.
type ChainTokenResolver struct {
	client *chain.Client
	cache  *dex.TokenCache
	logger *zap.Logger
}

func NewChainTokenResolver(client *chain.Client, logger *zap.Logger) *ChainTokenResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainTokenResolver{
		client: client,
		cache:  dex.NewTokenCache(),
		logger: logger,
	}
}

func (r *ChainTokenResolver) Resolve(ctx context.Context, address string) (model.Token, error) {
	addr := common.HexToAddress(address)
	if token, ok := r.cache.Get(addr); ok {
		return token, nil
	}
	token, err := dex.FetchToken(ctx, r.client, addr, r.logger)
	if err != nil {
		return model.Token{}, err
	}
	r.cache.Set(addr, token)
	return token, nil
}

// StaticTokenResolver serves a fixed token table, keyed by lowercase address.
type StaticTokenResolver map[string]model.Token

func (r StaticTokenResolver) Resolve(_ context.Context, address string) (model.Token, error) {
	token, ok := r[strings.ToLower(address)]
	if !ok {
		return model.Token{}, fmt.Errorf("unknown token: %s", address)
	}
	return token, nil
}
