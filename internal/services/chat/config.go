// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"
)

// MaxHistoryWindow bounds the prior messages a turn reads back.
const MaxHistoryWindow = 100

type Config struct {
	// Retrieval
	RetrievalTopK int // Number of chunks retrieved per turn
	HistoryWindow int // Messages of prior history fed to the condenser and generator

	// Models
	ChatModel     string // Model used to stream answers
	CondenseModel string // Model used to rewrite follow-up questions

	// Prompt profile name, see prompts.go
	Profile string

	// Timeouts per pipeline stage
	CondenseTimeout  time.Duration
	RetrievalTimeout time.Duration
	GenerateTimeout  time.Duration
	PersistTimeout   time.Duration

	// Citation configuration
	EnableSources bool
	MaxSources    int

	// Runes of the first question kept as the chat title
	TitleMaxRunes int
}

func (c *Config) Validate() error {
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("retrieval_top_k must be positive")
	}
	if c.RetrievalTopK > 20 {
		return fmt.Errorf("retrieval_top_k cannot exceed 20")
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("history_window cannot be negative")
	}
	if c.HistoryWindow > MaxHistoryWindow {
		return fmt.Errorf("history_window cannot exceed %d", MaxHistoryWindow)
	}
	if c.ChatModel == "" {
		return fmt.Errorf("chat_model is required")
	}
	if c.CondenseModel == "" {
		return fmt.Errorf("condense_model is required")
	}
	if _, ok := profiles[c.Profile]; !ok {
		return fmt.Errorf("unknown prompt profile %q", c.Profile)
	}
	if c.CondenseTimeout <= 0 || c.RetrievalTimeout <= 0 || c.GenerateTimeout <= 0 || c.PersistTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.TitleMaxRunes <= 0 {
		return fmt.Errorf("title_max_runes must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		RetrievalTopK:    4,
		HistoryWindow:    5,
		ChatModel:        "gpt-4o-mini",
		CondenseModel:    "gpt-4o-mini",
		Profile:          ProfileDocuments,
		CondenseTimeout:  30 * time.Second,
		RetrievalTimeout: 30 * time.Second,
		GenerateTimeout:  120 * time.Second,
		PersistTimeout:   5 * time.Second,
		EnableSources:    true,
		MaxSources:       10,
		TitleMaxRunes:    100,
	}
}
