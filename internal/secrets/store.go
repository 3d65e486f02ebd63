package secrets

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotFound 密钥不存在
var ErrNotFound = errors.New("密钥不存在")

const agentKeyPrefix = "agent:"

// Options 密钥存储打开参数
type Options struct {
	Path          string
	EncryptionKey []byte // 16/24/32字节，为空时不加密
	InMemory      bool
}

// Store 代理钱包私钥存储，静态加密由Badger提供
type Store struct {
	db *badger.DB
}

// Open 打开密钥存储
func Open(opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, fmt.Errorf("密钥存储路径不能为空")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(nil)
	if len(opts.EncryptionKey) > 0 {
		// 加密模式要求开启索引缓存
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("打开密钥存储失败: %w", err)
	}
	return &Store{db: db}, nil
}

// Close 关闭存储
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutAgentKey 保存代理钱包私钥，返回由私钥推导出的地址
func (s *Store) PutAgentKey(privateKey string) (string, error) {
	address, err := DeriveAddress(privateKey)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(agentKey(address), []byte(normalizeKey(privateKey)))
	})
	if err != nil {
		return "", fmt.Errorf("保存代理钱包私钥失败: %w", err)
	}
	return address, nil
}

// PrivateKey 按代理钱包地址读取私钥
func (s *Store) PrivateKey(agentWallet string) (string, error) {
	var out string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(agentKey(agentWallet))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("读取代理钱包私钥失败: %w", err)
	}
	return out, nil
}

// DeriveAddress 由十六进制私钥推导以太坊地址
func DeriveAddress(privateKey string) (string, error) {
	key, err := crypto.HexToECDSA(normalizeKey(privateKey))
	if err != nil {
		return "", fmt.Errorf("无效的私钥: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

// ParseEncryptionKey 解析hex或base64格式的加密密钥
func ParseEncryptionKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		b, err = base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("加密密钥必须是hex或base64格式")
		}
	}
	switch len(b) {
	case 16, 24, 32:
		return b, nil
	default:
		return nil, fmt.Errorf("加密密钥长度必须是16/24/32字节，实际%d", len(b))
	}
}

func agentKey(address string) []byte {
	return []byte(agentKeyPrefix + strings.ToLower(strings.TrimSpace(address)))
}

func normalizeKey(privateKey string) string {
	return strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")
}
