package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dbhist/histcheck/internal/checkrun"
	"github.com/dbhist/histcheck/internal/config"
	"github.com/dbhist/histcheck/internal/history"
	"github.com/dbhist/histcheck/internal/sccdriver"
	"github.com/dbhist/histcheck/pkg/logging"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	anomalyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// sccDoneMsg is forwarded from the sccdriver.Driver's progress callback,
// running on a background goroutine, into the bubbletea event loop.
type sccDoneMsg sccdriver.SCCEvent

// checkDoneMsg carries the finished check's outcome, or the error that
// stopped it, into the event loop so progressModel can quit.
type checkDoneMsg struct {
	result *checkrun.Result
	err    error
}

type progressModel struct {
	spinner   spinner.Model
	sccsDone  int
	anomalies map[string]bool
	result    *checkrun.Result
	err       error
	quitting  bool
}

func newProgressModel() progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	return progressModel{spinner: s, anomalies: make(map[string]bool)}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sccDoneMsg:
		m.sccsDone++
		for _, name := range msg.Anomalies {
			m.anomalies[name] = true
		}
		return m, nil

	case checkDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.quitting {
		return ""
	}
	line := fmt.Sprintf("%s %s searching: %s\n",
		m.spinner.View(), titleStyle.Render("histcheck"), countStyle.Render(fmt.Sprintf("%d SCCs searched", m.sccsDone)))
	if len(m.anomalies) > 0 {
		names := make([]string, 0, len(m.anomalies))
		for name := range m.anomalies {
			names = append(names, name)
		}
		line += anomalyStyle.Render(fmt.Sprintf("found so far: %v\n", names))
	}
	return line
}

// runWithTUI drives checkrun.Run under a bubbletea program, translating the
// driver's per-SCC progress callback into tea messages.
func runWithTUI(ctx context.Context, logger *logging.Logger, h *history.History, opts config.Options) (*checkrun.Result, error) {
	p := tea.NewProgram(newProgressModel())

	go func() {
		res, err := checkrun.Run(ctx, logger.Slog(), h, opts, func(e sccdriver.SCCEvent) {
			p.Send(sccDoneMsg(e))
		})
		p.Send(checkDoneMsg{result: res, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running progress tui: %w", err)
	}
	final := finalModel.(progressModel)
	if final.err != nil {
		return nil, final.err
	}
	return final.result, nil
}
