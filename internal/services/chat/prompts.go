// File: internal/services/chat/prompts.go
package chat

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

const (
	ProfileDocuments = "documents"
	ProfileMarketing = "marketing"
)

const documentsQATemplate = `You are a document analysis assistant that helps users understand and extract insights from their uploaded documents.
Use the following context from the user's documents to answer the question.
If you are unsure or the context does not contain the answer, say that you don't know. Do not make up an answer.

Context:
{{.context}}

Chat History:
{{.chat_history}}

Question: {{.question}}

Answer:`

const documentsCondenseTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question about the uploaded documents.

Chat History:
{{.chat_history}}

Follow Up Question: {{.question}}

Standalone question:`

const marketingQATemplate = `You are a digital marketing manager, strictly talk only about marketing content. Otherwise respond with 'I am a marketing chatbot, i do not have answer to your question.'
Use the following context to answer the question. If you don't know the answer, say that you don't know.

Context:
{{.context}}

Chat History:
{{.chat_history}}

Question: {{.question}}

Answer:`

const marketingCondenseTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question about marketing.

Chat History:
{{.chat_history}}

Follow Up Question: {{.question}}

Standalone question:`

// Profile is a named pair of prompts: one to answer, one to condense.
type Profile struct {
	Name     string
	qa       prompts.PromptTemplate
	condense prompts.PromptTemplate
}

var profiles = map[string]Profile{
	ProfileDocuments: newProfile(ProfileDocuments, documentsQATemplate, documentsCondenseTemplate),
	ProfileMarketing: newProfile(ProfileMarketing, marketingQATemplate, marketingCondenseTemplate),
}

func newProfile(name, qa, condense string) Profile {
	return Profile{
		Name:     name,
		qa:       prompts.NewPromptTemplate(qa, []string{"context", "chat_history", "question"}),
		condense: prompts.NewPromptTemplate(condense, []string{"chat_history", "question"}),
	}
}

// LookupProfile returns the profile registered under name.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, NewConfigError(fmt.Sprintf("unknown prompt profile %q", name))
	}
	return p, nil
}

// FormatAnswer renders the answering prompt.
func (p Profile) FormatAnswer(context, history, question string) (string, error) {
	return p.qa.Format(map[string]any{
		"context":      context,
		"chat_history": history,
		"question":     question,
	})
}

// FormatCondense renders the standalone-question prompt.
func (p Profile) FormatCondense(history, question string) (string, error) {
	return p.condense.Format(map[string]any{
		"chat_history": history,
		"question":     question,
	})
}
