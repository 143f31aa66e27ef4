// File: internal/services/chat/condenser.go
package chat

import (
	"context"
	"strings"

	"github.com/iyunix/go-docchat/internal/domain"
)

// Completer is the single-shot completion the condenser needs.
type Completer interface {
	GetCompletion(ctx context.Context, model, prompt string) (string, error)
}

// Condenser rewrites a follow-up question into a standalone one.
type Condenser struct {
	completer Completer
	model     string
	profile   Profile
	logger    Logger
}

func NewCondenser(completer Completer, model string, profile Profile, logger Logger) *Condenser {
	return &Condenser{
		completer: completer,
		model:     model,
		profile:   profile,
		logger:    logger,
	}
}

// Condense returns question unchanged when history is empty. Otherwise it
// asks the model for a standalone rewrite; a blank reply is an error.
func (c *Condenser) Condense(ctx context.Context, question string, history []domain.Message) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	prompt, err := c.profile.FormatCondense(FormatHistory(history), SanitizeForPrompt(question))
	if err != nil {
		return "", NewConfigError("failed to render condense prompt: " + err.Error())
	}

	reply, err := c.completer.GetCompletion(ctx, c.model, prompt)
	if err != nil {
		return "", NewUpstreamError("condense", "condense request failed", err)
	}

	standalone := strings.TrimSpace(reply)
	if standalone == "" {
		return "", NewUpstreamError("condense", "model returned an empty question", nil)
	}

	c.logger.Debug("question condensed", "history_len", len(history), "standalone_len", len(standalone))
	return standalone, nil
}
