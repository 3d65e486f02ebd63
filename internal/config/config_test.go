package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_DefaultsAndFile(t *testing.T) {
	path := writeConfigFile(t, `
trading:
  tick_interval_seconds: 15
  scan_policy: wide
mode:
  low_balance_threshold: 25
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Trading.TickInterval())
	assert.Equal(t, ScanPolicyWide, cfg.Trading.ScanPolicy)
	assert.Equal(t, 25.0, cfg.Mode.LowBalanceThreshold)

	// 文件中未出现的字段保留默认值
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, cfg.Trading.DefaultSymbols)
	assert.Equal(t, 10.0, cfg.Exchange.MinOrderValue)
	assert.Equal(t, 15.0, cfg.Mode.MinOrderUSD)
	assert.Equal(t, 0.8, cfg.Trading.ConfidenceThreshold)
	assert.Equal(t, StorageDriverSQLite, cfg.Storage.Driver)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "system:\n  log_level: DEBUG\n")

	t.Setenv("LIVE_TRADING", "true")
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("AI_API_KEY", "sk-test")
	t.Setenv("MIN_ORDER", "12.5")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/cycle")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Exchange.LiveTrading)
	assert.Equal(t, "openai", cfg.Signal.Provider)
	assert.Equal(t, "sk-test", cfg.Signal.APIKey)
	assert.Equal(t, 12.5, cfg.Mode.MinOrderUSD)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://u:p@localhost:5432/cycle", cfg.Postgres.DSN())
}

func TestLoadConfig_MinOrderValueEnv(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected float64
	}{
		{name: "只设置MIN_ORDER_VALUE", env: map[string]string{"MIN_ORDER_VALUE": "11"}, expected: 11},
		{name: "MIN_ORDER优先", env: map[string]string{"MIN_ORDER_VALUE": "11", "MIN_ORDER": "13"}, expected: 13},
		{name: "都未设置使用默认值", env: map[string]string{}, expected: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, "system:\n  log_level: INFO\n")
			t.Setenv("MIN_ORDER_VALUE", "")
			t.Setenv("MIN_ORDER", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Mode.MinOrderUSD)
		})
	}
}

func TestLoadConfig_InvalidMinOrder(t *testing.T) {
	path := writeConfigFile(t, "system:\n  log_level: INFO\n")
	t.Setenv("MIN_ORDER", "abc")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{
			name:    "默认配置有效",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "无效扫描策略",
			modify:  func(c *Config) { c.Trading.ScanPolicy = "all" },
			wantErr: true,
		},
		{
			name:    "周期间隔为0",
			modify:  func(c *Config) { c.Trading.TickIntervalSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "极速目标小于起始资金",
			modify:  func(c *Config) { c.Mode.UltraGoal = 10 },
			wantErr: true,
		},
		{
			name:    "极速起始时间格式错误",
			modify:  func(c *Config) { c.Mode.UltraStart = "yesterday" },
			wantErr: true,
		},
		{
			name:    "不支持的信号服务",
			modify:  func(c *Config) { c.Signal.Provider = "llama" },
			wantErr: true,
		},
		{
			name:    "周期锁缺少Redis",
			modify:  func(c *Config) { c.Trading.TickLockEnabled = true },
			wantErr: true,
		},
		{
			name: "关闭推送且轮询间隔为0",
			modify: func(c *Config) {
				c.Market.Enabled = false
				c.Market.PollIntervalSeconds = 0
			},
			wantErr: true,
		},
		{
			name: "PostgreSQL缺少连接信息",
			modify: func(c *Config) {
				c.Storage.Driver = StorageDriverPostgres
				c.Postgres.Host = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.modify(cfg)
			err := validateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModeConfig_UltraStartTime(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m := ModeConfig{}
	start, err := m.UltraStartTime(fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, start)

	m.UltraStart = "2026-02-01T08:00:00Z"
	start, err = m.UltraStartTime(fallback)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), start)
}

func TestSaveConfigToFile_OmitsSecrets(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Signal.APIKey = "secret-key"
	cfg.Exchange.AgentPrivateKey = "0xdeadbeef"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, SaveConfigToFile(cfg, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-key")
	assert.NotContains(t, string(raw), "0xdeadbeef")

	loaded, err := LoadConfigFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Trading.DefaultSymbols, loaded.Trading.DefaultSymbols)
	assert.Empty(t, loaded.Signal.APIKey)
}
