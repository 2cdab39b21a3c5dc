// Package tui is the ScienceSwipe terminal client: a swipeable card feed
// driven by keyboard, mouse drag and horizontal wheel gestures.
//
// All state is owned by the bubbletea event loop. Network work runs in
// tea.Cmd goroutines and reports back through messages.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/feed"
	"github.com/helixir/scienceswipe/internal/prefs"
	"github.com/helixir/scienceswipe/internal/reaction"
	"github.com/helixir/scienceswipe/internal/repository"
	"github.com/helixir/scienceswipe/internal/sources"
	"github.com/helixir/scienceswipe/internal/swipe"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultImageTimeout   = 2 * time.Minute
)

// FeedReader is the data access layer used by the client.
type FeedReader interface {
	Feed(ctx context.Context, q feed.Query) ([]domain.Paper, error)
	FetchPaperByID(ctx context.Context, source domain.Source, id string) (domain.Paper, error)
}

// ImageClient requests illustrations from the generation endpoints.
type ImageClient interface {
	EnsureImage(ctx context.Context, source domain.Source, p *domain.Paper) (string, error)
	Regenerate(ctx context.Context, source domain.Source, p *domain.Paper, prompt string) (string, error)
}

// PreferenceStore persists client settings.
type PreferenceStore interface {
	Get() prefs.Preferences
	SetSortMode(mode domain.SortMode) error
	CompleteOnboarding(topics []string) error
}

// Config wires runtime dependencies into the model.
type Config struct {
	Feed      FeedReader
	Images    ImageClient
	Reactions *reaction.Board
	Selector  *sources.Selector
	Prefs     PreferenceStore

	// PaperID opens a single paper instead of the feed.
	PaperID string
	// AutoGenerateImages requests an illustration when a card without one is shown.
	AutoGenerateImages bool

	RequestTimeout time.Duration
	ImageTimeout   time.Duration
	Logger         zerolog.Logger

	// Now is the clock used for gesture timing.
	Now func() time.Time
}

type inputMode int

const (
	inputNone inputMode = iota
	inputReason
	inputPrompt
	inputTopics
)

type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeError
)

// Model is the bubbletea model of the client.
type Model struct {
	cfg    Config
	logger zerolog.Logger

	nav    *swipe.Navigator
	papers []domain.Paper
	source domain.Source
	sort   domain.SortMode
	topics []string

	loading bool
	feedSeq int
	// loadedReactions marks papers whose reaction state has been read.
	loadedReactions map[repository.ReactionKey]bool
	// imageRequested marks papers for which generation has been requested.
	imageRequested map[string]bool
	imagePending   map[string]bool

	onboarding bool
	input      textinput.Model
	inputMode  inputMode
	spinner    spinner.Model
	detail     viewport.Model
	showHelp   bool

	notice     string
	noticeKind noticeKind
	noticeID   int

	width  int
	height int
}

// New returns a model ready to be mounted into a tea.Program.
func New(cfg Config) *Model {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = defaultImageTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	p := cfg.Prefs.Get()

	input := textinput.New()
	input.CharLimit = 500
	input.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &Model{
		cfg:             cfg,
		logger:          cfg.Logger.With().Str("component", "tui").Logger(),
		nav:             swipe.NewNavigator(0),
		source:          cfg.Selector.Current(),
		sort:            p.SortMode,
		topics:          p.Topics,
		loadedReactions: make(map[repository.ReactionKey]bool),
		imageRequested:  make(map[string]bool),
		imagePending:    make(map[string]bool),
		input:           input,
		spinner:         spin,
		detail:          viewport.New(80, 20),
		width:           80,
		height:          24,
	}
	if !p.OnboardingComplete && cfg.PaperID == "" {
		m.onboarding = true
		m.startInput(inputTopics, "Topics to follow, comma separated (enter to skip)", strings.Join(p.Topics, ", "))
	}
	return m
}

// Init starts the first load.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.reload())
}

// reload fetches the feed (or the routed paper) for the current source.
// Responses of earlier loads are discarded.
func (m *Model) reload() tea.Cmd {
	m.feedSeq++
	m.loading = true
	if m.cfg.PaperID != "" {
		return m.loadPaperCmd(m.feedSeq, m.source, m.cfg.PaperID)
	}
	return m.loadFeedCmd(m.feedSeq, feed.Query{Source: m.source, Sort: m.sort, Topics: m.topics})
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.detail.Width = max(20, msg.Width-4)
		m.detail.Height = max(5, msg.Height-6)
		m.refreshDetail()
		return m, nil

	case tea.KeyMsg:
		if m.inputMode != inputNone {
			return m, m.handleInputKey(msg)
		}
		return m, m.handleKey(msg)

	case tea.MouseMsg:
		return m, m.handleMouse(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case feedLoadedMsg:
		return m, m.handleFeedLoaded(msg)

	case reactionLoadedMsg:
		if msg.err != nil {
			m.logger.Warn().Err(msg.err).Str("paper_id", msg.key.PaperRef).Msg("Failed to load reactions")
			delete(m.loadedReactions, msg.key)
		}
		return m, nil

	case reactionCommittedMsg:
		return m, m.handleReactionCommitted(msg)

	case imageResultMsg:
		return m, m.handleImageResult(msg)

	case persistErrMsg:
		m.logger.Error().Err(msg.err).Str("what", msg.what).Msg("Failed to save preferences")
		return m, m.setNotice(noticeError, "Could not save "+msg.what)

	case clearNoticeMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return nil
	}

	if m.nav.DetailOpen() {
		switch msg.String() {
		case "esc", "enter", "backspace", "d":
			m.nav.SetDetailOpen(false)
			return nil
		case "m":
			return m.toggleReaction("")
		case "r":
			return m.beginReason()
		case "g":
			return m.beginRegenerate()
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "right", "l", "n", " ":
		return m.afterMove(m.nav.Next())
	case "left", "h", "p":
		return m.afterMove(m.nav.Prev())
	case "home":
		return m.afterMove(m.nav.JumpTo(0))
	case "end":
		return m.afterMove(m.nav.JumpTo(m.nav.Len() - 1))
	case "enter", "d":
		if _, ok := m.current(); ok {
			m.nav.SetDetailOpen(true)
			m.detail.GotoTop()
			m.refreshDetail()
		}
		return nil
	case "m":
		return m.toggleReaction("")
	case "r":
		return m.beginReason()
	case "i":
		return m.requestImage(true)
	case "g":
		return m.beginRegenerate()
	case "s":
		next, err := m.cfg.Selector.Toggle()
		return m.switchSource(next, err)
	case "1", "2", "3":
		next := domain.AllSources[int(msg.String()[0]-'1')]
		err := m.cfg.Selector.Set(next)
		return m.switchSource(next, err)
	case "o":
		return m.cycleSort()
	case "R":
		return m.reload()
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	now := m.cfg.Now()
	if m.nav.DetailOpen() {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return cmd
	}

	switch {
	case msg.Button == tea.MouseButtonWheelLeft:
		return m.afterMove(m.nav.WheelLeft())
	case msg.Button == tea.MouseButtonWheelRight:
		return m.afterMove(m.nav.WheelRight())
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		m.nav.DragStart(msg.X, msg.Y, now)
	case msg.Action == tea.MouseActionMotion && m.nav.Gesturing():
		m.nav.DragMove(msg.X, msg.Y)
	case msg.Action == tea.MouseActionRelease && m.nav.Gesturing():
		return m.afterMove(m.nav.DragEnd(msg.X, msg.Y, now))
	}
	return nil
}

// afterMove reacts to a navigation transition: wrap notice, reaction load and
// on-demand illustration for the new card.
func (m *Model) afterMove(moved bool) tea.Cmd {
	if !moved {
		return nil
	}
	var cmds []tea.Cmd
	if m.nav.TakeWrapNotice() {
		if m.nav.Direction() == swipe.DirectionForward {
			cmds = append(cmds, m.setNotice(noticeInfo, "You've seen every paper. Starting over from the top."))
		} else {
			cmds = append(cmds, m.setNotice(noticeInfo, "Jumped to the last paper."))
		}
	}
	cmds = append(cmds, m.onCardShown())
	return tea.Batch(cmds...)
}

func (m *Model) onCardShown() tea.Cmd {
	p, ok := m.current()
	if !ok {
		return nil
	}
	var cmds []tea.Cmd

	key := repository.ReactionKey{Source: m.source, PaperRef: p.ID}
	if !m.loadedReactions[key] {
		m.loadedReactions[key] = true
		cmds = append(cmds, loadReactionCmd(m.cfg.Reactions.Tracker(m.source, p.ID), m.cfg.RequestTimeout))
	}
	if m.cfg.AutoGenerateImages {
		cmds = append(cmds, m.requestImage(false))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleFeedLoaded(msg feedLoadedMsg) tea.Cmd {
	if msg.seq != m.feedSeq {
		return nil
	}
	m.loading = false
	if msg.err != nil {
		m.logger.Error().Err(msg.err).Str("source", string(msg.source)).Msg("Failed to load papers")
		m.papers = nil
		m.nav.SetItems(0)
		if errors.Is(msg.err, domain.ErrNotFound) {
			return m.setNotice(noticeError, "Paper not found")
		}
		return m.setNotice(noticeError, "Could not load papers")
	}

	m.papers = msg.papers
	m.nav.SetItems(len(m.papers))
	if m.cfg.PaperID != "" && len(m.papers) == 1 {
		m.nav.SetDetailOpen(true)
		m.refreshDetail()
	}
	return m.onCardShown()
}

func (m *Model) toggleReaction(reason string) tea.Cmd {
	p, ok := m.current()
	if !ok {
		return nil
	}
	tracker := m.cfg.Reactions.Tracker(m.source, p.ID)
	mut, err := tracker.Begin(reason)
	if err != nil {
		if errors.Is(err, reaction.ErrMutationInFlight) {
			return m.setNotice(noticeInfo, "Hang on, still saving your last reaction")
		}
		return m.setNotice(noticeError, "Could not update reaction")
	}
	m.refreshDetail()
	return commitReactionCmd(tracker.Key(), mut, m.cfg.RequestTimeout)
}

func (m *Model) handleReactionCommitted(msg reactionCommittedMsg) tea.Cmd {
	m.refreshDetail()
	switch {
	case errors.Is(msg.err, reaction.ErrAlreadyReacted):
		notice := m.setNotice(noticeInfo, "You already reacted to this paper")
		if msg.key.Source != m.source {
			return notice
		}
		// The store holds the reaction; read it back so the next toggle removes it.
		t := m.cfg.Reactions.Tracker(msg.key.Source, msg.key.PaperRef)
		return tea.Batch(notice, loadReactionCmd(t, m.cfg.RequestTimeout))
	case msg.err != nil:
		return m.setNotice(noticeError, "Could not update reaction")
	}
	switch msg.result.Outcome {
	case reaction.OutcomeAdded:
		if msg.result.State.IsTopPaper {
			return m.setNotice(noticeInfo, "Mind blown! This is a top paper.")
		}
		return m.setNotice(noticeInfo, "Mind blown!")
	case reaction.OutcomeReasonUpdated:
		return m.setNotice(noticeInfo, "Reason saved")
	}
	return nil
}

// requestImage asks for an illustration of the current card. Automatic
// requests run once per paper; explicit ones retry after a failure.
func (m *Model) requestImage(explicit bool) tea.Cmd {
	p, ok := m.current()
	if !ok || p.HasImage() || m.imagePending[p.ID] {
		return nil
	}
	if !explicit && m.imageRequested[p.ID] {
		return nil
	}
	m.imageRequested[p.ID] = true
	m.imagePending[p.ID] = true
	return m.ensureImageCmd(m.source, p)
}

func (m *Model) handleImageResult(msg imageResultMsg) tea.Cmd {
	delete(m.imagePending, msg.paperID)
	if msg.source != m.source {
		return nil
	}
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Str("paper_id", msg.paperID).Msg("Image generation failed")
		if errors.Is(msg.err, domain.ErrRateLimited) {
			return m.setNotice(noticeError, "Image service is busy, try again shortly")
		}
		return m.setNotice(noticeError, "Could not generate an illustration")
	}
	for i := range m.papers {
		if m.papers[i].ID == msg.paperID {
			m.papers[i].ImageURL = msg.imageURL
			m.papers[i].AIImagePrompt = msg.prompt
		}
	}
	m.refreshDetail()
	if msg.regenerated {
		return m.setNotice(noticeInfo, "New illustration ready")
	}
	return nil
}

func (m *Model) beginReason() tea.Cmd {
	if _, ok := m.current(); !ok {
		return nil
	}
	m.startInput(inputReason, "Why did it blow your mind?", "")
	return textinput.Blink
}

func (m *Model) beginRegenerate() tea.Cmd {
	p, ok := m.current()
	if !ok {
		return nil
	}
	if m.imagePending[p.ID] {
		return m.setNotice(noticeInfo, "An illustration is already being generated")
	}
	m.startInput(inputPrompt, "Image prompt (enter to generate)", p.AIImagePrompt)
	return textinput.Blink
}

func (m *Model) startInput(mode inputMode, placeholder, value string) {
	m.inputMode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) stopInput() {
	m.inputMode = inputNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		mode := m.inputMode
		m.stopInput()
		if mode == inputTopics {
			return m.finishOnboarding(nil)
		}
		return nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode := m.inputMode
		m.stopInput()
		switch mode {
		case inputReason:
			if value == "" {
				return nil
			}
			return m.toggleReaction(value)
		case inputPrompt:
			p, ok := m.current()
			if !ok {
				return nil
			}
			m.imagePending[p.ID] = true
			return tea.Batch(m.setNotice(noticeInfo, "Generating a new illustration..."), m.regenerateCmd(m.source, p, value))
		case inputTopics:
			return m.finishOnboarding(splitTopics(value))
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) finishOnboarding(topics []string) tea.Cmd {
	m.onboarding = false
	m.topics = topics
	var cmds []tea.Cmd
	if err := m.cfg.Prefs.CompleteOnboarding(topics); err != nil {
		cmds = append(cmds, persistErr("topics", err))
	}
	cmds = append(cmds, m.reload())
	return tea.Batch(cmds...)
}

func (m *Model) switchSource(next domain.Source, persistErrValue error) tea.Cmd {
	m.source = next
	m.cfg.Reactions.Reset()
	m.loadedReactions = make(map[repository.ReactionKey]bool)
	m.imageRequested = make(map[string]bool)
	m.imagePending = make(map[string]bool)
	m.nav.SetDetailOpen(false)
	m.nav.SetItems(0)
	m.papers = nil

	cmds := []tea.Cmd{m.reload(), m.setNotice(noticeInfo, "Source: "+sourceLabel(next))}
	if persistErrValue != nil {
		cmds = append(cmds, persistErr("source", persistErrValue))
	}
	return tea.Batch(cmds...)
}

func (m *Model) cycleSort() tea.Cmd {
	if m.cfg.PaperID != "" {
		return nil
	}
	m.sort = nextSortMode(m.sort)
	cmds := []tea.Cmd{m.reload(), m.setNotice(noticeInfo, "Sort: "+sortLabel(m.sort))}
	if err := m.cfg.Prefs.SetSortMode(m.sort); err != nil {
		cmds = append(cmds, persistErr("sort mode", err))
	}
	return tea.Batch(cmds...)
}

func (m *Model) setNotice(kind noticeKind, text string) tea.Cmd {
	m.noticeID++
	m.notice = text
	m.noticeKind = kind
	return clearNoticeCmd(m.noticeID)
}

func (m *Model) current() (domain.Paper, bool) {
	if m.nav.Empty() {
		return domain.Paper{}, false
	}
	i := m.nav.Index()
	if i < 0 || i >= len(m.papers) {
		return domain.Paper{}, false
	}
	return m.papers[i], true
}

func (m *Model) reactionState(p domain.Paper) (reaction.State, bool) {
	t, ok := m.cfg.Reactions.Lookup(m.source, p.ID)
	if !ok {
		return reaction.State{}, false
	}
	return t.State(), t.Pending()
}

func persistErr(what string, err error) tea.Cmd {
	return func() tea.Msg { return persistErrMsg{what: what, err: err} }
}

func nextSortMode(mode domain.SortMode) domain.SortMode {
	switch mode {
	case domain.SortNewest:
		return domain.SortMindBlown
	case domain.SortMindBlown:
		return domain.SortSurprise
	default:
		return domain.SortNewest
	}
}

func splitTopics(raw string) []string {
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
