// File: internal/services/chat/sources.go
package chat

import (
	"path"
	"strings"

	"github.com/iyunix/go-docchat/internal/domain"
)

type SourceExtractor struct {
	config *Config
	logger Logger
}

func NewSourceExtractor(config *Config, logger Logger) *SourceExtractor {
	return &SourceExtractor{
		config: config,
		logger: logger,
	}
}

// ExtractSources returns unique document names from ranked chunks, best first.
func (s *SourceExtractor) ExtractSources(chunks []domain.Chunk) []string {
	if !s.config.EnableSources {
		return nil
	}

	sources := make([]string, 0, len(chunks))
	seen := make(map[string]bool)

	for _, c := range chunks {
		title := s.extractTitle(c)
		if title == "" || seen[title] {
			continue
		}
		sources = append(sources, title)
		seen[title] = true

		if len(sources) >= s.config.MaxSources {
			break
		}
	}

	s.logger.Debug("sources extracted", "chunks", len(chunks), "unique_sources", len(sources))
	return sources
}

// Priority: source name > document id > chunk id
func (s *SourceExtractor) extractTitle(c domain.Chunk) string {
	if name := CleanFilename(c.Source); name != "" {
		return name
	}
	if id := strings.TrimSpace(c.DocumentID); id != "" {
		return id
	}
	return strings.TrimSpace(c.ID)
}

// CleanFilename drops any directory part from an uploaded file name.
func CleanFilename(filename string) string {
	filename = strings.TrimSpace(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "" {
		return ""
	}
	base := path.Base(filename)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
