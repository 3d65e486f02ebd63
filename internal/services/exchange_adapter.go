package services

import (
	"fmt"
	"strings"

	"github.com/life2you_mini/cycle/internal/exchange"
	"github.com/life2you_mini/cycle/internal/secrets"
)

// agentKeyAdapter 适配 secrets.Store 到 exchange.KeyResolver，并校验私钥与代理钱包地址一致
type agentKeyAdapter struct {
	store *secrets.Store
}

// newKeyResolver 未启用密钥存储时返回nil，交易所退回使用AGENT_PRIVATE_KEY
func newKeyResolver(store *secrets.Store) exchange.KeyResolver {
	if store == nil {
		return nil
	}
	return &agentKeyAdapter{store: store}
}

// PrivateKey 实现 exchange.KeyResolver
func (a *agentKeyAdapter) PrivateKey(agentWallet string) (string, error) {
	key, err := a.store.PrivateKey(agentWallet)
	if err != nil {
		return "", err
	}

	address, err := secrets.DeriveAddress(key)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(address, agentWallet) {
		return "", fmt.Errorf("私钥推导地址%s与代理钱包%s不一致", address, agentWallet)
	}
	return key, nil
}
