package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// InfoClient Hyperliquid只读信息接口(/info)
type InfoClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewInfoClient 创建信息接口客户端
func NewInfoClient(baseURL string, timeout time.Duration, logger *zap.Logger) *InfoClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return resp != nil && resp.StatusCode() == 429
		})

	return &InfoClient{
		client: client,
		logger: logger.With(zap.String("component", "hyperliquid_info")),
	}
}

func (c *InfoClient) post(ctx context.Context, body map[string]interface{}) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/info")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

// AllMids 获取全市场中间价，跳过以@开头的现货索引
func (c *InfoClient) AllMids(ctx context.Context) (*Mids, error) {
	raw, err := c.post(ctx, map[string]interface{}{"type": "allMids"})
	if err != nil {
		return nil, fmt.Errorf("获取全市场中间价失败: %w", err)
	}

	mids, err := decodeOrderedMids(raw)
	if err != nil {
		return nil, fmt.Errorf("解析全市场中间价失败: %w", err)
	}
	return mids, nil
}

// decodeOrderedMids 按JSON中的键顺序解析 {"BTC":"65000.0",...}
func decodeOrderedMids(raw []byte) (*Mids, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("期望JSON对象")
	}

	mids := &Mids{Prices: make(map[string]float64)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		symbol, _ := keyTok.(string)

		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if strings.HasPrefix(symbol, "@") {
			continue
		}
		price, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		mids.Symbols = append(mids.Symbols, symbol)
		mids.Prices[symbol] = price
	}
	return mids, nil
}

type assetMeta struct {
	Universe []struct {
		Name string `json:"name"`
	} `json:"universe"`
}

type assetCtx struct {
	DayNtlVlm string `json:"dayNtlVlm"`
}

// AssetVolumes 获取各品种24小时成交额(美元)
func (c *InfoClient) AssetVolumes(ctx context.Context) (map[string]float64, error) {
	raw, err := c.post(ctx, map[string]interface{}{"type": "metaAndAssetCtxs"})
	if err != nil {
		return nil, fmt.Errorf("获取品种成交额失败: %w", err)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 2 {
		return nil, fmt.Errorf("解析品种成交额失败: %v", err)
	}

	var meta assetMeta
	if err := json.Unmarshal(parts[0], &meta); err != nil {
		return nil, fmt.Errorf("解析品种元数据失败: %w", err)
	}
	var ctxs []assetCtx
	if err := json.Unmarshal(parts[1], &ctxs); err != nil {
		return nil, fmt.Errorf("解析品种上下文失败: %w", err)
	}

	volumes := make(map[string]float64, len(meta.Universe))
	for i, asset := range meta.Universe {
		if i >= len(ctxs) {
			break
		}
		volume, err := strconv.ParseFloat(ctxs[i].DayNtlVlm, 64)
		if err != nil {
			continue
		}
		volumes[asset.Name] = volume
	}
	return volumes, nil
}

type clearinghouseState struct {
	MarginSummary struct {
		AccountValue string `json:"accountValue"`
	} `json:"marginSummary"`
}

// AccountValue 获取账户权益，未找到时视为0
func (c *InfoClient) AccountValue(ctx context.Context, user string) (float64, error) {
	raw, err := c.post(ctx, map[string]interface{}{"type": "clearinghouseState", "user": user})
	if err != nil {
		return 0, fmt.Errorf("获取账户状态失败: %w", err)
	}

	var state clearinghouseState
	if err := json.Unmarshal(raw, &state); err != nil {
		return 0, fmt.Errorf("解析账户状态失败: %w", err)
	}
	if state.MarginSummary.AccountValue == "" {
		return 0, nil
	}

	value, err := strconv.ParseFloat(state.MarginSummary.AccountValue, 64)
	if err != nil {
		return 0, fmt.Errorf("解析账户权益失败: %w", err)
	}
	return value, nil
}
