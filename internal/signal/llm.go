package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/life2you_mini/cycle/internal/models"
)

// 支持的模型服务
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

var defaultBaseURLs = map[string]string{
	ProviderGemini: "https://generativelanguage.googleapis.com",
	ProviderOpenAI: "https://api.openai.com",
	ProviderClaude: "https://api.anthropic.com",
}

var defaultModels = map[string]string{
	ProviderGemini: "gemini-2.0-flash",
	ProviderOpenAI: "gpt-4-turbo-preview",
	ProviderClaude: "claude-3-5-sonnet-latest",
}

// LLMOptions 模型服务参数
type LLMOptions struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string // 为空时使用官方地址
	RequestsPerMinute int
}

// LLMProvider 通过大模型接口获取交易信号
type LLMProvider struct {
	provider string
	apiKey   string
	model    string
	client   *resty.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewLLMProvider 创建大模型信号服务
func NewLLMProvider(opts LLMOptions, logger *zap.Logger) *LLMProvider {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURLs[opts.Provider]
	}
	model := opts.Model
	if model == "" || (opts.Provider != ProviderGemini && strings.HasPrefix(model, "gemini")) {
		model = defaultModels[opts.Provider]
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60)
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return resp != nil && resp.StatusCode() == 429
		})

	return &LLMProvider{
		provider: opts.Provider,
		apiKey:   opts.APIKey,
		model:    model,
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With(zap.String("component", "signal_provider"), zap.String("provider", opts.Provider)),
	}
}

// GetSignal 请求模型分析并解析返回的JSON信号
func (p *LLMProvider) GetSignal(ctx context.Context, req Request) (*models.TradeSignal, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("等待信号请求配额失败: %w", err)
	}

	var (
		text string
		err  error
	)
	prompt := buildPrompt(req)
	switch p.provider {
	case ProviderGemini:
		text, err = p.callGemini(ctx, prompt)
	case ProviderOpenAI:
		text, err = p.callOpenAI(ctx, prompt)
	case ProviderClaude:
		text, err = p.callClaude(ctx, prompt)
	default:
		return nil, fmt.Errorf("不支持的信号服务: %s", p.provider)
	}
	if err != nil {
		return nil, err
	}

	return parseSignal(req.Symbol, text)
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (p *LLMProvider) callGemini(ctx context.Context, prompt string) (string, error) {
	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{
				{"text": fmt.Sprintf("SYSTEM: %s\nUSER: %s\nPlease return ONLY valid JSON.", systemPrompt, prompt)},
			}},
		},
	}

	var out geminiResponse
	resp, err := p.request(ctx).
		SetQueryParam("key", p.apiKey).
		SetBody(body).
		SetResult(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", p.model))
	if err := checkResponse(resp, err); err != nil {
		return "", fmt.Errorf("请求Gemini失败: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini返回内容为空")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *LLMProvider) callOpenAI(ctx context.Context, prompt string) (string, error) {
	body := map[string]interface{}{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
	}

	var out openAIResponse
	resp, err := p.request(ctx).
		SetAuthToken(p.apiKey).
		SetBody(body).
		SetResult(&out).
		Post("/v1/chat/completions")
	if err := checkResponse(resp, err); err != nil {
		return "", fmt.Errorf("请求OpenAI失败: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("OpenAI返回内容为空")
	}
	return out.Choices[0].Message.Content, nil
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *LLMProvider) callClaude(ctx context.Context, prompt string) (string, error) {
	body := map[string]interface{}{
		"model":      p.model,
		"max_tokens": 1024,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	var out claudeResponse
	resp, err := p.request(ctx).
		SetHeader("x-api-key", p.apiKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetBody(body).
		SetResult(&out).
		Post("/v1/messages")
	if err := checkResponse(resp, err); err != nil {
		return "", fmt.Errorf("请求Claude失败: %w", err)
	}
	for _, c := range out.Content {
		if c.Type == "text" {
			return c.Text, nil
		}
	}
	return "", fmt.Errorf("Claude返回内容为空")
}

// request 网关或代理可能不返回Content-Type，统一按JSON解析
func (p *LLMProvider) request(ctx context.Context) *resty.Request {
	return p.client.R().
		SetContext(ctx).
		ForceContentType("application/json")
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// parseSignal 解析模型返回的信号JSON
func parseSignal(symbol, text string) (*models.TradeSignal, error) {
	var sig models.TradeSignal
	if err := json.Unmarshal([]byte(cleanJSON(text)), &sig); err != nil {
		return nil, fmt.Errorf("解析信号失败: %w", err)
	}
	sig.Symbol = symbol
	sig.Direction = strings.ToUpper(sig.Direction)
	if sig.Signal && len(sig.Confirmations) == 0 {
		sig.Confirmations = []string{"AI_SMC_MODEL"}
	}
	return &sig, nil
}
