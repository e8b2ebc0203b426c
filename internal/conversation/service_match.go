package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/llm"
	"github.com/atendezap/atendezap/internal/session"
)

var leadingIndexExpr = regexp.MustCompile(`^\s*(\d{1,2})\b`)
var bareNumberExpr = regexp.MustCompile(`^\d{1,2}$`)

// matchService resolves the user's reply against the service list they were
// shown. The ladder runs cheapest first: numeric index, full-name substring,
// partial token, then LLM disambiguation as a last resort.
func matchService(ctx context.Context, client llm.Client, options []session.ServiceOption, text string) (*session.ServiceOption, bool) {
	if len(options) == 0 {
		return nil, false
	}
	norm := intent.Normalize(text)

	// (a) leading index into the presented list, 1-based.
	if m := leadingIndexExpr.FindStringSubmatch(norm); m != nil {
		if idx, err := strconv.Atoi(m[1]); err == nil && idx >= 1 && idx <= len(options) {
			return &options[idx-1], true
		}
	}

	// (b) full service name contained in the message.
	for i := range options {
		if name := intent.Normalize(options[i].Name); name != "" && strings.Contains(norm, name) {
			return &options[i], true
		}
	}

	// (c) partial token overlap; tokens of length <= 2 carry no signal.
	for i := range options {
		for _, tok := range strings.Fields(intent.Normalize(options[i].Name)) {
			if len([]rune(tok)) > 2 && strings.Contains(norm, tok) {
				return &options[i], true
			}
		}
	}

	// (d) LLM disambiguation.
	if client == nil {
		return nil, false
	}
	return matchServiceWithLLM(ctx, client, options, text)
}

// matchServiceWithLLM asks the model to pick an option by number. Only a bare
// in-range number is accepted; any other output, uncertainty sentinels
// included, counts as a parse failure.
func matchServiceWithLLM(ctx context.Context, client llm.Client, options []session.ServiceOption, text string) (*session.ServiceOption, bool) {
	var list strings.Builder
	for i, opt := range options {
		fmt.Fprintf(&list, "%d. %s\n", i+1, opt.Name)
	}

	instruction := fmt.Sprintf(
		"O cliente escolheu um destes serviços:\n%s"+
			"Responda APENAS com o número do serviço escolhido. "+
			"Se não for possível determinar, responda 0.", list.String())

	resp, err := client.Complete(ctx, llm.Request{
		System:      []string{instruction},
		Messages:    []llm.ChatMessage{{Role: llm.RoleUser, Content: text}},
		MaxTokens:   4,
		Temperature: 0,
		SkipCache:   true,
	})
	if err != nil {
		return nil, false
	}

	answer := strings.TrimSpace(resp.Text)
	if !bareNumberExpr.MatchString(answer) {
		return nil, false
	}
	idx, _ := strconv.Atoi(answer)
	if idx < 1 || idx > len(options) {
		return nil, false
	}
	return &options[idx-1], true
}
