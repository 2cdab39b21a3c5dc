package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/feed"
	"github.com/helixir/scienceswipe/internal/reaction"
	"github.com/helixir/scienceswipe/internal/repository"
)

const noticeTTL = 4 * time.Second

type feedLoadedMsg struct {
	seq    int
	source domain.Source
	papers []domain.Paper
	err    error
}

type reactionLoadedMsg struct {
	key   repository.ReactionKey
	state reaction.State
	err   error
}

type reactionCommittedMsg struct {
	key    repository.ReactionKey
	result reaction.Result
	err    error
}

type imageResultMsg struct {
	source      domain.Source
	paperID     string
	imageURL    string
	prompt      string
	regenerated bool
	err         error
}

type clearNoticeMsg struct {
	id int
}

type persistErrMsg struct {
	what string
	err  error
}

func (m *Model) loadFeedCmd(seq int, q feed.Query) tea.Cmd {
	reader := m.cfg.Feed
	timeout := m.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		papers, err := reader.Feed(ctx, q)
		return feedLoadedMsg{seq: seq, source: q.Source, papers: papers, err: err}
	}
}

func (m *Model) loadPaperCmd(seq int, source domain.Source, id string) tea.Cmd {
	reader := m.cfg.Feed
	timeout := m.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		p, err := reader.FetchPaperByID(ctx, source, id)
		if err != nil {
			return feedLoadedMsg{seq: seq, source: source, err: err}
		}
		return feedLoadedMsg{seq: seq, source: source, papers: []domain.Paper{p}}
	}
}

func loadReactionCmd(t *reaction.Tracker, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		st, err := t.Load(ctx)
		return reactionLoadedMsg{key: t.Key(), state: st, err: err}
	}
}

func commitReactionCmd(key repository.ReactionKey, mut *reaction.Mutation, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := mut.Commit(ctx)
		return reactionCommittedMsg{key: key, result: res, err: err}
	}
}

// ensureImageCmd works on a copy of the paper; the result is merged back by id.
func (m *Model) ensureImageCmd(source domain.Source, p domain.Paper) tea.Cmd {
	images := m.cfg.Images
	timeout := m.cfg.ImageTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		url, err := images.EnsureImage(ctx, source, &p)
		return imageResultMsg{source: source, paperID: p.ID, imageURL: url, prompt: p.AIImagePrompt, err: err}
	}
}

func (m *Model) regenerateCmd(source domain.Source, p domain.Paper, prompt string) tea.Cmd {
	images := m.cfg.Images
	timeout := m.cfg.ImageTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		url, err := images.Regenerate(ctx, source, &p, prompt)
		return imageResultMsg{source: source, paperID: p.ID, imageURL: url, prompt: p.AIImagePrompt, regenerated: true, err: err}
	}
}

func clearNoticeCmd(id int) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{id: id}
	})
}
