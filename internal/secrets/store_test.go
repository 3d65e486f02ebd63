package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress    = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

func TestDeriveAddress(t *testing.T) {
	address, err := DeriveAddress(testPrivateKey)
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(testAddress, address))

	_, err = DeriveAddress("0xnothex")
	assert.Error(t, err)
}

func TestStore_PutAndGet(t *testing.T) {
	store, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	address, err := store.PutAgentKey(testPrivateKey)
	require.NoError(t, err)

	// 地址大小写不敏感
	key, err := store.PrivateKey(strings.ToUpper(address))
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(testPrivateKey, "0x"), key)

	_, err = store.PrivateKey("0x0000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Encrypted(t *testing.T) {
	encKey, err := ParseEncryptionKey(strings.Repeat("ab", 32))
	require.NoError(t, err)

	store, err := Open(Options{Path: t.TempDir(), EncryptionKey: encKey})
	require.NoError(t, err)
	defer store.Close()

	address, err := store.PutAgentKey(testPrivateKey)
	require.NoError(t, err)

	_, err = store.PrivateKey(address)
	assert.NoError(t, err)
}

func TestParseEncryptionKey(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		length  int
		wantErr bool
	}{
		{name: "空值", raw: "", length: 0},
		{name: "hex-32字节", raw: strings.Repeat("0f", 32), length: 32},
		{name: "hex-16字节带前缀", raw: "0x" + strings.Repeat("0f", 16), length: 16},
		{name: "base64-32字节", raw: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=", length: 32},
		{name: "长度不合法", raw: strings.Repeat("0f", 10), wantErr: true},
		{name: "格式不合法", raw: "!!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseEncryptionKey(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, tt.length)
		})
	}
}
