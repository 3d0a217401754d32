package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/abennett/ttt/pkg/client"
	"github.com/abennett/ttt/pkg/messages"
)

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	Align(lipgloss.Center)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#d14b01"))

var columns = []table.Column{
	{Title: "User", Width: 10},
	{Title: "Roll", Width: 12},
	{Title: "Result", Width: 8},
	{Title: "Done", Width: 6},
}

type ttt struct {
	client   *client.Client
	notation string
	table    table.Model
	state    messages.RoomState
}

func newTTT(c *client.Client, notation string) *ttt {
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(0),
		table.WithFocused(false),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Foreground(lipgloss.Color("#01c5d1"))
	s.Selected = s.Selected.Foreground(lipgloss.NoColor{}).Bold(false)
	t.SetStyles(s)
	return &ttt{
		client:   c,
		notation: notation,
		table:    t,
	}
}

func errorCmd(err error) tea.Cmd {
	return func() tea.Msg {
		return err
	}
}

func (t *ttt) readUpdate() tea.Msg {
	state, err := t.client.ReadUpdate()
	if err != nil {
		return err
	}
	return state
}

func (t *ttt) Init() tea.Cmd {
	if err := t.client.Init(t.notation); err != nil {
		return errorCmd(err)
	}
	return t.readUpdate
}

func resultsToRows(rrs []messages.RollResult) []table.Row {
	rows := make([]table.Row, len(rrs))
	for idx, rr := range rrs {
		result := strconv.Itoa(rr.Result)
		if rr.Error != "" {
			result = "error"
		}
		done := ""
		if rr.IsDone {
			done = "✅"
		}
		rows[idx] = table.Row{rr.User, rr.Notation, result, done}
	}
	return rows
}

func allDone(rrs []messages.RollResult) bool {
	if len(rrs) == 0 {
		return false
	}
	for _, rr := range rrs {
		if !rr.IsDone {
			return false
		}
	}
	return true
}

func (t *ttt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.RoomState:
		slog.Debug("room state", "version", msg.Version)
		t.state = msg
		t.table.SetHeight(len(msg.Rolls) + 1)
		t.table.SetRows(resultsToRows(msg.Rolls))
		if allDone(msg.Rolls) {
			return t, tea.Quit
		}
		return t, t.readUpdate
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			err := t.client.Close()
			if err != nil {
				slog.Error("failed to close client", "error", err)
			}
			return t, tea.Quit
		case " ":
			if err := t.client.ToggleDone(); err != nil {
				return t, errorCmd(err)
			}
		case "r":
			if err := t.client.Roll(t.notation); err != nil {
				return t, errorCmd(err)
			}
		}
	case error:
		slog.Error("exiting for error", "error", msg)
		return t, tea.Quit
	default:
		slog.Debug("unsupported message", "msg", msg)
	}
	return t, nil
}

func (t *ttt) View() string {
	view := baseStyle.Render(t.table.View()) + "\n"
	for _, rr := range t.state.Rolls {
		if rr.Error != "" {
			view += errorStyle.Render(rr.User+": "+rr.Error) + "\n"
		}
	}
	return view
}

func newRollRemoteCmd(logs *logConfig) *ffcli.Command {
	fs := flag.NewFlagSet("roll_remote", flag.ExitOnError)
	notation := fs.String("roll", "", "dice to roll, the room's dice when empty")
	return &ffcli.Command{
		Name:       "roll_remote",
		ShortUsage: "roll_remote [flags] <http://host:port> <room> <username>",
		ShortHelp:  "join a room and roll with everyone in it",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 3 {
				return flag.ErrHelp
			}
			// The terminal belongs to the table, so logs only go to a file.
			if _, err := logs.setup(io.Discard); err != nil {
				return err
			}
			c, err := client.New(args[0], args[1], args[2], logs.writer(io.Discard))
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(newTTT(c, *notation)).Run()
			return err
		},
	}
}
