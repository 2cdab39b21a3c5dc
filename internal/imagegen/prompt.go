// Package imagegen produces paper illustrations: Client asks the backend for
// one, Generator is the backend side that calls the image provider.
package imagegen

import (
	"strings"

	"github.com/helixir/scienceswipe/internal/domain"
)

// maxPromptTitle bounds how much of a title goes into a default prompt.
const maxPromptTitle = 300

// DefaultPrompt builds an illustration prompt from the paper title.
func DefaultPrompt(p *domain.Paper) string {
	title := strings.TrimSpace(p.TitleOrg)
	if title == "" {
		title = strings.TrimSpace(p.Headline())
	}
	if r := []rune(title); len(r) > maxPromptTitle {
		title = string(r[:maxPromptTitle])
	}
	if title == "" {
		return "A vivid, modern scientific illustration, no text"
	}
	return "A vivid, modern scientific illustration representing the research paper \"" + title + "\", no text"
}

// promptFor returns the prompt already stored on p or a default one.
func promptFor(p *domain.Paper) string {
	if prompt := strings.TrimSpace(p.AIImagePrompt); prompt != "" {
		return prompt
	}
	return DefaultPrompt(p)
}
