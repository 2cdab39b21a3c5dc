package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/swipe"
)

const maxCardTakeaways = 3

var (
	accent = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}
	muted  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	warn   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	tabStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(muted)
	activeTab     = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(accent)
	cardStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(1, 2)
	headlineStyle = lipgloss.NewStyle().Bold(true)
	metaStyle     = lipgloss.NewStyle().Foreground(muted)
	whyStyle      = lipgloss.NewStyle().Italic(true).Foreground(accent)
	badgeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#FBBF24")).Padding(0, 1)
	infoStyle     = lipgloss.NewStyle().Foreground(accent)
	errorStyle    = lipgloss.NewStyle().Foreground(warn)
	helpStyle     = lipgloss.NewStyle().Foreground(muted)
)

// View renders the screen.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	switch {
	case m.onboarding:
		b.WriteString(m.onboardingView())
	case m.loading && len(m.papers) == 0:
		b.WriteString(m.spinner.View() + " Loading papers...")
	case len(m.papers) == 0:
		b.WriteString(metaStyle.Render("No papers match your topics. Press o to change the order or s to switch source."))
	case m.nav.DetailOpen():
		b.WriteString(m.detail.View())
	default:
		p, _ := m.current()
		b.WriteString(m.cardView(p))
	}

	if m.inputMode != inputNone && !m.onboarding {
		b.WriteString("\n\n" + m.input.View())
	}

	b.WriteString("\n\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m *Model) headerView() string {
	tabs := make([]string, 0, len(domain.AllSources))
	for _, s := range domain.AllSources {
		style := tabStyle
		if s == m.source {
			style = activeTab
		}
		tabs = append(tabs, style.Render(sourceLabel(s)))
	}
	left := headerStyle.Render("ScienceSwipe") + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	right := metaStyle.Render("sort: " + sortLabel(m.sort))
	if n := m.nav.Len(); n > 0 {
		right = metaStyle.Render(fmt.Sprintf("%d / %d  ", m.nav.Index()+1, n)) + right
	}
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) onboardingView() string {
	intro := headlineStyle.Render("Welcome to ScienceSwipe") + "\n\n" +
		"Swipe through AI-summarized research, one paper at a time.\n" +
		"Pick topics to follow (category prefixes like cs, physics, q-bio),\n" +
		"or leave it empty to see everything.\n\n"
	return intro + m.input.View()
}

func (m *Model) cardView(p domain.Paper) string {
	width := max(30, min(m.width-4, 100))
	inner := width - 6

	var b strings.Builder
	if st, _ := m.reactionState(p); st.IsTopPaper {
		b.WriteString(badgeStyle.Render("TOP PAPER") + "\n\n")
	}
	b.WriteString(headlineStyle.Width(inner).Render(p.Headline()))
	b.WriteString("\n")
	b.WriteString(metaStyle.Width(inner).Render(metaLine(p)))
	b.WriteString("\n\n")

	if why, ok := p.WhyItMatters(); ok {
		b.WriteString(whyStyle.Width(inner).Render("Why it matters: " + why.Text))
		b.WriteString("\n\n")
	}
	shown := 0
	for _, t := range p.AIKeyTakeaways {
		if t.Kind == domain.TakeawayWhyItMatters || shown == maxCardTakeaways {
			continue
		}
		b.WriteString(lipgloss.NewStyle().Width(inner).Render("• " + takeawayText(t)))
		b.WriteString("\n")
		shown++
	}

	b.WriteString("\n")
	b.WriteString(m.imageLine(p))
	b.WriteString("\n")
	b.WriteString(m.reactionLine(p))

	card := cardStyle.Width(width).Render(b.String())
	return card + "\n" + metaStyle.Render(directionHint(m.nav.Direction()))
}

// refreshDetail re-renders the detail viewport content for the current card.
func (m *Model) refreshDetail() {
	p, ok := m.current()
	if !ok || !m.nav.DetailOpen() {
		return
	}
	inner := max(20, m.detail.Width-2)
	wrap := lipgloss.NewStyle().Width(inner)

	var b strings.Builder
	b.WriteString(headlineStyle.Width(inner).Render(p.Headline()) + "\n")
	if p.TitleOrg != "" && p.TitleOrg != p.Headline() {
		b.WriteString(metaStyle.Width(inner).Render(p.TitleOrg) + "\n")
	}
	b.WriteString(metaStyle.Width(inner).Render(metaLine(p)) + "\n")
	if p.DOI != "" {
		b.WriteString(metaStyle.Render("doi: "+p.DOI) + "\n")
	}
	b.WriteString("\n")

	if len(p.AIKeyTakeaways) > 0 {
		b.WriteString(headerStyle.Render("Key takeaways") + "\n")
		for _, t := range p.AIKeyTakeaways {
			switch t.Kind {
			case domain.TakeawayWhyItMatters:
				b.WriteString(whyStyle.Width(inner).Render("Why it matters: "+t.Text) + "\n")
			case domain.TakeawayStructured:
				b.WriteString(wrap.Render("• "+t.Title) + "\n")
				for _, in := range t.Insights {
					b.WriteString(wrap.Render("    "+in.Name+": "+in.Text) + "\n")
				}
			default:
				b.WriteString(wrap.Render("• "+t.Text) + "\n")
			}
		}
		b.WriteString("\n")
	}
	if p.AbstractOrg != "" {
		b.WriteString(headerStyle.Render("Abstract") + "\n")
		b.WriteString(wrap.Render(p.AbstractOrg) + "\n\n")
	}
	b.WriteString(m.imageLine(p) + "\n")
	if p.AIImagePrompt != "" {
		b.WriteString(metaStyle.Width(inner).Render("prompt: "+p.AIImagePrompt) + "\n")
	}
	b.WriteString(m.reactionLine(p))
	m.detail.SetContent(b.String())
}

func (m *Model) imageLine(p domain.Paper) string {
	switch {
	case m.imagePending[p.ID]:
		return m.spinner.View() + " generating illustration..."
	case p.HasImage():
		return "image: " + p.ImageURL
	default:
		return metaStyle.Render("no illustration yet (i to generate)")
	}
}

func (m *Model) reactionLine(p domain.Paper) string {
	st, pending := m.reactionState(p)
	mark := "○"
	if st.HasReacted {
		mark = "●"
	}
	line := fmt.Sprintf("%s mind blown  %d", mark, st.Count)
	if pending {
		line += metaStyle.Render("  saving...")
	}
	return line
}

func (m *Model) footerView() string {
	var lines []string
	if m.notice != "" {
		style := infoStyle
		if m.noticeKind == noticeError {
			style = errorStyle
		}
		lines = append(lines, style.Render(m.notice))
	}
	switch {
	case m.showHelp:
		lines = append(lines, helpStyle.Render(strings.Join([]string{
			"←/h/p previous   →/l/n/space next   drag or wheel sideways to swipe",
			"enter/d details   m mind blow   r mind blow with a reason",
			"i generate image   g regenerate with a prompt",
			"s rotate source   1/2/3 pick source   o change order   R reload   q quit",
		}, "\n")))
	case m.nav.DetailOpen():
		lines = append(lines, helpStyle.Render("↑/↓ scroll  m mind blow  r reason  g regenerate  esc back  ? help"))
	default:
		lines = append(lines, helpStyle.Render("← → swipe  enter details  m mind blow  s source  ? help  q quit"))
	}
	return strings.Join(lines, "\n")
}

func metaLine(p domain.Paper) string {
	parts := make([]string, 0, 3)
	if len(p.Creator) > 0 {
		authors := p.Creator[0]
		if len(p.Creator) > 1 {
			authors += fmt.Sprintf(" +%d", len(p.Creator)-1)
		}
		parts = append(parts, authors)
	}
	if !p.CreatedAt.IsZero() {
		parts = append(parts, p.CreatedAt.Format("2 Jan 2006"))
	}
	if len(p.Category) > 0 {
		parts = append(parts, strings.Join(p.Category, ", "))
	}
	return strings.Join(parts, " · ")
}

func takeawayText(t domain.Takeaway) string {
	if t.Kind == domain.TakeawayStructured {
		names := make([]string, 0, len(t.Insights))
		for _, in := range t.Insights {
			names = append(names, in.Name)
		}
		if len(names) == 0 {
			return t.Title
		}
		return t.Title + " (" + strings.Join(names, ", ") + ")"
	}
	return t.Text
}

func directionHint(d swipe.Direction) string {
	switch d {
	case swipe.DirectionForward:
		return "→"
	case swipe.DirectionBackward:
		return "←"
	default:
		return ""
	}
}

func sourceLabel(s domain.Source) string {
	switch s {
	case domain.SourceCore:
		return "CORE"
	case domain.SourceRegional:
		return "Regional"
	default:
		return "Papers"
	}
}

func sortLabel(mode domain.SortMode) string {
	switch mode {
	case domain.SortMindBlown:
		return "most mind-blowing"
	case domain.SortSurprise:
		return "surprise me"
	default:
		return "newest"
	}
}
