// File: internal/services/chat/context.go
package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iyunix/go-docchat/internal/domain"
)

// NoDocumentsContext stands in for retrieved text when nothing relevant was found.
const NoDocumentsContext = "No relevant documents found. Please upload a document first or try a different question."

// TruncateText safely truncates a UTF-8 string to maxLen runes.
func TruncateText(input string, maxLen int) string {
	if input == "" || maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(input) <= maxLen {
		return input
	}

	var b strings.Builder
	count := 0
	for _, r := range input {
		if count >= maxLen {
			break
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}

// SanitizeForPrompt removes characters that interfere with prompt rendering
func SanitizeForPrompt(input string) string {
	sanitized := strings.ReplaceAll(input, "\x00", "")
	sanitized = strings.ReplaceAll(sanitized, "\r\n", "\n")
	sanitized = strings.ReplaceAll(sanitized, "\r", "\n")

	for strings.Contains(sanitized, "\n\n\n") {
		sanitized = strings.ReplaceAll(sanitized, "\n\n\n", "\n\n")
	}
	return sanitized
}

// FormatHistory renders messages oldest first as "role: content" lines.
func FormatHistory(messages []domain.Message) string {
	if len(messages) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", m.Role, SanitizeForPrompt(m.Content))
	}
	return b.String()
}

// BuildContext joins chunk texts in rank order. With no chunks it returns
// NoDocumentsContext.
func BuildContext(chunks []domain.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		text := strings.TrimSpace(SanitizeForPrompt(c.Text))
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return NoDocumentsContext
	}
	return strings.Join(parts, "\n\n")
}
