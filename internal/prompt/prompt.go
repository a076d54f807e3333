// Package prompt assembles grounded prompts from retrieved segments and the
// user question.
package prompt

import (
	"fmt"
	"strings"

	"rag/internal/domain"
)

// Recognized template placeholders.
const (
	ContextPlaceholder  = "{context}"
	QuestionPlaceholder = "{question}"
)

// DefaultTemplate instructs the model to answer strictly from the retrieved
// context.
const DefaultTemplate = `Answer the question based on the given context. If the context is empty or does not contain the information needed, answer "No information for this request" and nothing else.
Context:
{context}
Question:
{question}
Answer:`

// Example is one few-shot question/answer pair rendered ahead of the context.
type Example struct {
	Input  string
	Output string
}

// Template is a validated prompt template. Rendering is a pure function of
// the question and the retrieval result.
type Template struct {
	text     string
	examples []Example
}

// New validates the template text. The {question} placeholder is mandatory;
// its absence is a contract violation, not a runtime fault.
func New(text string) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty template", domain.ErrInvalidConfig)
	}
	if !strings.Contains(text, QuestionPlaceholder) {
		return nil, fmt.Errorf("%w: template lacks %s", domain.ErrMissingPlaceholder, QuestionPlaceholder)
	}
	return &Template{text: text}, nil
}

// WithExamples returns a copy of the template carrying few-shot examples.
func (t *Template) WithExamples(examples ...Example) *Template {
	cp := *t
	cp.examples = append(append([]Example(nil), t.examples...), examples...)
	return &cp
}

// Render substitutes the placeholders: {context} becomes the retrieved
// segment texts in ranked order, each on its own block, and {question} the
// user question. Few-shot examples, if any, are prepended.
func (t *Template) Render(question string, results []domain.ScoredSegment) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = r.Segment.Text
	}
	body := strings.ReplaceAll(t.text, ContextPlaceholder, strings.Join(blocks, "\n\n"))
	body = strings.ReplaceAll(body, QuestionPlaceholder, question)
	if len(t.examples) == 0 {
		return body
	}

	var b strings.Builder
	for _, ex := range t.examples {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", ex.Input, ex.Output)
	}
	b.WriteString(body)
	return b.String()
}
