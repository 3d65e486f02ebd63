package signal

import (
	"fmt"
	"strconv"
	"strings"
)

const systemPrompt = `You are a crypto perpetual futures analyst using Smart Money Concepts (order blocks, fair value gaps, break of structure, liquidity sweeps).
Only propose a trade when the setup is clear. Respond with a single JSON object and nothing else.`

// buildPrompt 生成分析提示词
func buildPrompt(req Request) string {
	prices := make([]string, 0, len(req.Prices))
	for _, p := range req.Prices {
		prices = append(prices, strconv.FormatFloat(p, 'f', -1, 64))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nTimeframe: %s\n", req.Symbol, req.Timeframe)
	fmt.Fprintf(&b, "Recent prices (oldest first): [%s]\n", strings.Join(prices, ", "))
	if req.MinConfirmations > 0 {
		fmt.Fprintf(&b, "Require at least %d independent confirmations and a reward:risk of at least %.1f.\n",
			req.MinConfirmations, req.MinRewardToRisk)
	}
	b.WriteString(`Return JSON: {"signal": bool, "direction": "LONG"|"SHORT", "entry": number, "sl": number, "tp1": number, "tp2": number, "confidence": number between 0 and 1, "confirmations": [string], "reasoning": string}`)
	return b.String()
}

// cleanJSON 去掉模型返回中的markdown代码块标记
func cleanJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
