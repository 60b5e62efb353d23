// Package tui renders a live view of the booking list. The view never edits
// the list itself: it re-reads the reconciler after every change signal, and
// a cancelled booking disappears only when the push event arrives.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/EpicMandM/room-booking/internal/models"
	"github.com/EpicMandM/room-booking/internal/reconciler"
	"github.com/EpicMandM/room-booking/internal/service"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// changedMsg is delivered after the reconciler signals a change.
type changedMsg struct{}

// actionDoneMsg reports the outcome of a cancel or refresh.
type actionDoneMsg struct {
	action string
	id     models.BookingID
	err    error
}

// Model implements tea.Model for the watch view.
type Model struct {
	ctx     context.Context
	rec     *reconciler.Reconciler
	changes <-chan struct{}
	keys    KeyMap
	styles  styles

	bookings []models.Booking
	status   reconciler.Status
	cursor   int
	message  string
	failed   bool

	width  int
	height int
}

// NewModel creates a view over rec. changes is a subscription from
// rec.Subscribe; the caller owns unsubscribing.
func NewModel(ctx context.Context, rec *reconciler.Reconciler, changes <-chan struct{}) Model {
	m := Model{
		ctx:     ctx,
		rec:     rec,
		changes: changes,
		keys:    DefaultKeyMap,
		styles:  newStyles(DefaultTheme),
	}
	m.refresh()
	return m
}

// Init starts listening for reconciler changes.
func (m Model) Init() tea.Cmd {
	return listenForChanges(m.changes)
}

// listenForChanges returns a tea.Cmd that blocks until the reconciler
// signals a change. A closed channel ends the listening chain.
func listenForChanges(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case changedMsg:
		m.refresh()
		return m, listenForChanges(m.changes)

	case actionDoneMsg:
		m.finish(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.bookings)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Cancel):
		selected, ok := m.Selected()
		if !ok {
			return m, nil
		}
		m.message = fmt.Sprintf("Cancelling booking %s...", selected.ID)
		m.failed = false
		return m, cancelCmd(m.ctx, m.rec, selected.ID)

	case key.Matches(msg, m.keys.Refresh):
		m.message = "Refreshing..."
		m.failed = false
		return m, refreshCmd(m.ctx, m.rec)
	}
	return m, nil
}

func cancelCmd(ctx context.Context, rec *reconciler.Reconciler, id models.BookingID) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: "cancel", id: id, err: rec.Cancel(ctx, id)}
	}
}

func refreshCmd(ctx context.Context, rec *reconciler.Reconciler) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: "refresh", err: rec.Load(ctx)}
	}
}

func (m *Model) finish(msg actionDoneMsg) {
	m.failed = msg.err != nil
	switch {
	case msg.action == "cancel" && msg.err != nil:
		m.message = service.UserMessage(msg.err, service.FallbackCancelMessage)
	case msg.action == "cancel":
		m.message = fmt.Sprintf("Cancellation of %s requested", msg.id)
	case msg.err != nil:
		m.message = service.UserMessage(msg.err, service.FallbackLoadMessage)
	default:
		m.message = ""
	}
}

// refresh re-reads the reconciler and keeps the cursor in range.
func (m *Model) refresh() {
	m.bookings = m.rec.Bookings()
	m.status = m.rec.Status()
	if m.cursor >= len(m.bookings) {
		m.cursor = len(m.bookings) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Selected returns the booking under the cursor.
func (m Model) Selected() (models.Booking, bool) {
	if len(m.bookings) == 0 {
		return models.Booking{}, false
	}
	return m.bookings[m.cursor], true
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("Room bookings"))
	b.WriteString(m.styles.faint.Render(fmt.Sprintf("  %d booked", len(m.bookings))))
	b.WriteString("\n\n")

	switch {
	case len(m.bookings) > 0:
		b.WriteString(m.styles.header.Render(formatRow("ID", "ROOM", "BOOKED BY", "DATE", "TIME", "PURPOSE")))
		b.WriteString("\n")
		for i, bk := range m.bookings {
			line := formatRow(bk.ID.String(), bk.RoomName, bk.UserName, bk.BookingDate,
				bk.StartTime+"-"+bk.EndTime, bk.Purpose)
			if i == m.cursor {
				b.WriteString(m.styles.selected.Render(line))
			} else {
				b.WriteString(m.styles.row.Render(line))
			}
			b.WriteString("\n")
		}
	case !m.status.Loaded && m.status.LastError == nil:
		b.WriteString(m.styles.faint.Render("Loading bookings..."))
		b.WriteString("\n")
	default:
		b.WriteString(m.styles.faint.Render("No bookings"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if line := m.statusLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(m.helpLine())
	return b.String()
}

func (m Model) statusLine() string {
	if m.message != "" {
		if m.failed {
			return m.styles.err.Render(m.message)
		}
		return m.styles.faint.Render(m.message)
	}
	if m.status.LastError != nil {
		return m.styles.err.Render(service.UserMessage(m.status.LastError, service.FallbackLoadMessage))
	}
	return ""
}

func (m Model) helpLine() string {
	parts := make([]string, 0, len(m.keys.help()))
	for _, binding := range m.keys.help() {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	line := strings.Join(parts, "  ")
	if m.width > 0 && lipgloss.Width(line) > m.width {
		line = truncate(line, m.width)
	}
	return m.styles.help.Render(line)
}

func formatRow(id, room, user, date, slot, purpose string) string {
	return fmt.Sprintf("%-6s %-22s %-16s %-10s %-11s %s",
		truncate(id, 6), truncate(room, 22), truncate(user, 16), date, truncate(slot, 11), purpose)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
