package domain

import (
	"strings"
	"time"
)

// TakeawayKind tags the shape a key takeaway was parsed into.
type TakeawayKind string

const (
	// TakeawayText is a plain sentence.
	TakeawayText TakeawayKind = "text"
	// TakeawayStructured carries a title and named sub-insights.
	TakeawayStructured TakeawayKind = "structured"
	// TakeawayWhyItMatters is the distinguished "why it matters" entry.
	TakeawayWhyItMatters TakeawayKind = "why_it_matters"
)

// Insight is one named sub-insight of a structured takeaway.
type Insight struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Takeaway is a single AI-generated key takeaway of a paper.
type Takeaway struct {
	Kind     TakeawayKind `json:"kind"`
	Title    string       `json:"title,omitempty"`
	Text     string       `json:"text,omitempty"`
	Insights []Insight    `json:"insights,omitempty"`
}

// Paper is the source-agnostic representation of one summarized article.
// Category, Creator and AIKeyTakeaways are either nil or lists; they are never
// raw scalars.
type Paper struct {
	ID             string     `json:"id"`
	DOI            string     `json:"doi,omitempty"`
	Source         Source     `json:"source"`
	TitleOrg       string     `json:"title_org"`
	AbstractOrg    string     `json:"abstract_org"`
	AIHeadline     string     `json:"ai_headline"`
	AIKeyTakeaways []Takeaway `json:"ai_key_takeaways"`
	AISummaryDone  bool       `json:"ai_summary_done"`
	AIImagePrompt  string     `json:"ai_image_prompt,omitempty"`
	Category       []string   `json:"category"`
	Creator        []string   `json:"creator"`
	ImageURL       string     `json:"image_url,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	Score          *float64   `json:"score,omitempty"`
}

// Headline returns the display title, falling back to the original title.
func (p *Paper) Headline() string {
	if h := strings.TrimSpace(p.AIHeadline); h != "" {
		return h
	}
	return p.TitleOrg
}

// HasIdentifier returns true if the paper has an id or a doi.
func (p *Paper) HasIdentifier() bool {
	return p.ID != "" || p.DOI != ""
}

// HasImage returns true if an illustration has already been generated.
func (p *Paper) HasImage() bool {
	return strings.TrimSpace(p.ImageURL) != ""
}

// WhyItMatters returns the distinguished takeaway, if the paper has one.
func (p *Paper) WhyItMatters() (Takeaway, bool) {
	for _, t := range p.AIKeyTakeaways {
		if t.Kind == TakeawayWhyItMatters {
			return t, true
		}
	}
	return Takeaway{}, false
}

// MatchesTopics reports whether any category starts with one of the topics.
// An empty topic list matches every paper.
func (p *Paper) MatchesTopics(topics []string) bool {
	if len(topics) == 0 {
		return true
	}
	for _, topic := range topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		for _, c := range p.Category {
			if strings.HasPrefix(strings.ToLower(c), topic) {
				return true
			}
		}
	}
	return false
}

// DemoIDPrefix prefixes the identifiers of the built-in demo papers.
const DemoIDPrefix = "10.1234/demo."

// IsDemoPaperID returns true if id belongs to the built-in demo dataset.
func IsDemoPaperID(id string) bool {
	return strings.HasPrefix(id, DemoIDPrefix)
}
