package prompt

import (
	"fmt"
	"strings"

	"thrx-be/internal/constant"
	"thrx-be/internal/entity"
	"thrx-be/pkg/llm"
	"thrx-be/pkg/search"
)

// ContextualBuilder assembles the text sent as the final user message. The
// message stored in the tree keeps the user's raw text.
type ContextualBuilder struct {
	query   string
	replyTo string
	results []search.Result
}

func NewContextualBuilder(query, replyTo string, results []search.Result) *ContextualBuilder {
	return &ContextualBuilder{
		query:   query,
		replyTo: replyTo,
		results: results,
	}
}

// Build frames the query with the quoted text, then puts the web context in
// front of everything when there is any.
func (b *ContextualBuilder) Build() string {
	content := b.query
	if b.replyTo != "" {
		content = fmt.Sprintf(constant.ReplyFramingTemplate, b.replyTo, b.query)
	}
	if webContext := b.WebContext(); webContext != "" {
		content = fmt.Sprintf(constant.UserQueryTemplate, webContext, content)
	}
	return content
}

// BuildFallback is used for the refusal retry: web context and the raw
// query, without reply framing.
func (b *ContextualBuilder) BuildFallback() string {
	webContext := b.WebContext()
	if webContext == "" {
		return b.query
	}
	return fmt.Sprintf(constant.UserQueryTemplate, webContext, b.query)
}

// WebContext is the framing instruction followed by the top results, or ""
// without results.
func (b *ContextualBuilder) WebContext() string {
	if len(b.results) == 0 {
		return ""
	}
	var prompt strings.Builder
	prompt.WriteString(constant.WebContextSystemPrompt)
	b.writeResults(&prompt)
	return prompt.String()
}

func (b *ContextualBuilder) writeResults(prompt *strings.Builder) {
	top := b.results
	if len(top) > constant.MaxContextResults {
		top = top[:constant.MaxContextResults]
	}
	for i, r := range top {
		if i > 0 {
			prompt.WriteString("\n\n")
		}
		fmt.Fprintf(prompt, constant.WebContextResultTemplate, i+1, r.Title, r.Url, r.Content)
	}
}

// History maps the trail plus the augmented user turn to provider messages.
// System messages are error notes for the reader and are not sent.
func History(trail []entity.Message, augmented entity.Message) []llm.Message {
	history := make([]llm.Message, 0, len(trail)+1)
	for _, m := range trail {
		if m.Role == constant.ChatMessageRoleSystem {
			continue
		}
		history = append(history, toLLMMessage(m))
	}
	return append(history, toLLMMessage(augmented))
}

func toLLMMessage(m entity.Message) llm.Message {
	msg := llm.Message{
		Role:    m.Role,
		Content: m.Content,
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, llm.Attachment{
			Url:  a.Url,
			Type: a.Type,
			Name: a.Name,
		})
	}
	return msg
}
