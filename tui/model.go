// Package tui is a terminal client for the duel server.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"

	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/protocol"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	headerLines   = 8
	maxLogLines   = 500
)

type Model struct {
	sender Sender
	listen tea.Cmd

	input textinput.Model
	log   viewport.Model
	lines []string

	connected bool
	status    string
	playerID  string
	name      string
	roomID    string
	opponent  string
	turn      string
	state     *protocol.State

	width  int
	height int
}

// NewModel builds the client model. listen is issued once at start and after every received frame.
func NewModel(sender Sender, listen tea.Cmd, name string) *Model {
	ti := textinput.New()
	ti.Placeholder = "chat, or /help"
	ti.CharLimit = protocol.MaxContentLength
	ti.Width = defaultWidth - 4
	ti.Focus()

	vp := viewport.New(defaultWidth, defaultHeight-headerLines)
	return &Model{
		sender:    sender,
		listen:    listen,
		input:     ti,
		log:       vp,
		connected: true,
		status:    "Connecting...",
		name:      name,
		width:     defaultWidth,
		height:    defaultHeight,
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.listen != nil {
		cmds = append(cmds, m.listen)
	}
	if m.name != "" {
		cmds = append(cmds, m.sendCmd(Request{Type: protocol.TypeConnect, Payload: protocol.Connect{Name: m.name}}))
	} else {
		m.appendLine(Styles.Hint.Render("Enter your name and press enter to join."))
	}
	return tea.Batch(cmds...)
}

type sendFailedMsg struct {
	err error
}

func (m *Model) sendCmd(req Request) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.sender.Send(req.Type, req.Payload); err != nil {
			return sendFailedMsg{err: err}
		}
		return nil
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.log.Width = msg.Width
		m.log.Height = max(msg.Height-headerLines, 3)
		m.input.Width = max(msg.Width-4, 10)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m, m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(msg)
			return m, cmd
		}
	case FrameMsg:
		m.applyFrame(msg.Frame)
		return m, m.listen
	case DisconnectedMsg:
		m.connected = false
		m.status = "Disconnected"
		m.appendLine(Styles.Danger.Render("Disconnected: " + msg.Err.Error()))
		return m, nil
	case sendFailedMsg:
		m.appendLine(Styles.Danger.Render(msg.err.Error()))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	line := m.input.Value()
	m.input.SetValue("")

	if m.name == "" {
		name := strings.TrimSpace(line)
		if name == "" {
			return nil
		}
		m.name = name
		return m.sendCmd(Request{Type: protocol.TypeConnect, Payload: protocol.Connect{Name: name}})
	}
	if strings.TrimSpace(line) == "/help" {
		m.appendLine(Styles.Hint.Render(HelpText))
	}

	req, err := ParseInput(line, m.name)
	if err != nil {
		if !eris.Is(err, ErrEmptyInput) {
			m.appendLine(Styles.Danger.Render(err.Error()))
		}
		return nil
	}
	if req.Quit {
		return tea.Quit
	}
	if !m.connected {
		m.appendLine(Styles.Danger.Render("not connected"))
		return nil
	}
	return m.sendCmd(req)
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	m.log.SetContent(strings.Join(m.lines, "\n"))
	m.log.GotoBottom()
}

// who names a player from this client's point of view.
func (m *Model) who(playerID string) string {
	switch {
	case playerID == m.playerID:
		return "You"
	case m.opponent != "":
		return m.opponent
	}
	return "Opponent"
}

//nolint:gocognit,exhaustive // one case per server message
func (m *Model) applyFrame(f protocol.Frame) {
	switch f.Type {
	case protocol.TypeWelcome:
		if p, err := protocol.DecodePayload[protocol.Welcome](f); err == nil {
			m.playerID, m.name = p.PlayerID, p.Name
			m.status = "Connected"
		}
	case protocol.TypeWaiting:
		if p, err := protocol.DecodePayload[protocol.Waiting](f); err == nil {
			m.roomID = p.RoomID
			m.opponent, m.turn, m.state = "", "", nil
			m.status = "Waiting for opponent"
		}
	case protocol.TypeMatched:
		if p, err := protocol.DecodePayload[protocol.Matched](f); err == nil {
			m.roomID, m.opponent = p.RoomID, p.Opponent
			m.status = "Playing against " + p.Opponent
		}
	case protocol.TypeCurrentTurn:
		if p, err := protocol.DecodePayload[protocol.CurrentTurn](f); err == nil {
			m.turn = p.PlayerID
			m.appendLine(Styles.Muted.Render(fmt.Sprintf("Turn %d: %s", p.TurnNumber, m.turnLabel())))
		}
	case protocol.TypeState:
		if p, err := protocol.DecodePayload[protocol.State](f); err == nil {
			m.state = &p
			m.turn = p.Turn
		}
	case protocol.TypeCardsDrawn:
		if p, err := protocol.DecodePayload[protocol.CardsDrawn](f); err == nil {
			names := make([]string, 0, len(p.Cards))
			for _, c := range p.Cards {
				names = append(names, c.Name)
			}
			line := fmt.Sprintf("You drew %d card(s): %s", len(p.Cards), strings.Join(names, ", "))
			if p.Fatigue > 0 {
				line += fmt.Sprintf(" (fatigue: -%d health)", p.Fatigue)
			}
			m.appendLine(line)
		}
	case protocol.TypeOpponentDrew:
		if p, err := protocol.DecodePayload[protocol.OpponentDrew](f); err == nil {
			m.appendLine(fmt.Sprintf("%s drew %d card(s)", m.who(p.PlayerID), p.Amount))
		}
	case protocol.TypeCardPlayed:
		if p, err := protocol.DecodePayload[protocol.CardPlayed](f); err == nil {
			line := fmt.Sprintf("%s played %s", m.who(p.PlayerID), p.Card.Name)
			switch {
			case p.Blocked:
				line += " but it was blocked"
			case p.Damage > 0:
				line += fmt.Sprintf(" for %d damage", p.Damage)
			}
			m.appendLine(line)
		}
	case protocol.TypeCardDiscarded:
		if p, err := protocol.DecodePayload[protocol.CardDiscarded](f); err == nil {
			m.appendLine(fmt.Sprintf("%s discarded %s", m.who(p.PlayerID), p.Card.Name))
		}
	case protocol.TypeGameOver:
		if p, err := protocol.DecodePayload[protocol.GameOver](f); err == nil {
			m.turn = ""
			result := "You lost"
			if p.Winner == m.playerID {
				result = "You won"
			}
			m.status = "Game over"
			m.appendLine(Styles.Title.Render(fmt.Sprintf("%s (%s). Type /queue to play again.", result, p.Reason)))
		}
	case protocol.TypeChat:
		if p, err := protocol.DecodePayload[protocol.Chat](f); err == nil {
			m.appendLine(formatChat(p, m.name))
		}
	case protocol.TypeReject:
		if p, err := protocol.DecodePayload[protocol.Reject](f); err == nil {
			m.appendLine(Styles.Danger.Render("Rejected: " + p.Reason))
		}
	case protocol.TypeError:
		if p, err := protocol.DecodePayload[protocol.Error](f); err == nil {
			m.appendLine(Styles.Danger.Render("Error: " + p.Message))
		}
	}
}

func formatChat(c protocol.Chat, self string) string {
	switch c.Kind {
	case protocol.ChatSystem:
		return Styles.Muted.Render("* " + c.Content)
	case protocol.ChatPrivate:
		if c.Sender == self {
			return Styles.Selected.Render(fmt.Sprintf("[to %s] %s", c.Recipient, c.Content))
		}
		return Styles.Selected.Render(fmt.Sprintf("[from %s] %s", c.Sender, c.Content))
	case protocol.ChatRoom:
	}
	return fmt.Sprintf("[%s] %s", c.Sender, c.Content)
}

func (m *Model) turnLabel() string {
	switch m.turn {
	case "":
		return "-"
	case m.playerID:
		return "Your turn"
	}
	return "Opponent's turn"
}

func (m *Model) me() (protocol.PlayerView, bool) {
	if m.state == nil {
		return protocol.PlayerView{}, false
	}
	for _, p := range m.state.Players {
		if p.PlayerID == m.playerID {
			return p, true
		}
	}
	return protocol.PlayerView{}, false
}

func (m *Model) opponentView() (protocol.PlayerView, bool) {
	if m.state == nil {
		return protocol.PlayerView{}, false
	}
	for _, p := range m.state.Players {
		if p.PlayerID != m.playerID {
			return p, true
		}
	}
	return protocol.PlayerView{}, false
}

func (m *Model) Hand() []card.Card {
	if m.state == nil {
		return nil
	}
	return m.state.Hand
}

func (m *Model) View() string {
	var b strings.Builder

	name := m.name
	if name == "" {
		name = "?"
	}
	header := Styles.Title.Render("Duel") + "  " +
		Styles.Status.Render(m.status) + "  " +
		Styles.Normal.Render("Player: "+name)
	if m.roomID != "" {
		header += "  " + Styles.Muted.Render("Room: "+m.roomID)
	}
	b.WriteString(header + "\n")

	turn := m.turnLabel()
	if m.turn != "" && m.turn == m.playerID {
		turn = Styles.Selected.Render(turn)
	}
	b.WriteString("Turn: " + turn + "\n")

	if me, ok := m.me(); ok {
		health := fmt.Sprintf("%d", me.Health)
		if me.Health <= 5 {
			health = Styles.Danger.Render(health)
		}
		line := fmt.Sprintf("You: %s hp, %d energy, %d in deck", health, me.Energy, me.DeckSize)
		if me.Blocking {
			line += ", blocking"
		}
		b.WriteString(line + "\n")
	}
	if opp, ok := m.opponentView(); ok {
		b.WriteString(Styles.Muted.Render(fmt.Sprintf("%s: %d hp, %d cards in hand", opp.Name, opp.Health, opp.HandSize)) + "\n")
	}
	b.WriteString(m.renderHand() + "\n")

	b.WriteString(m.log.View() + "\n")
	b.WriteString(m.input.View())
	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}

func (m *Model) renderHand() string {
	hand := m.Hand()
	if len(hand) == 0 {
		return Styles.Hint.Render("(no cards in hand)")
	}
	cards := make([]string, 0, len(hand))
	for _, c := range hand {
		cards = append(cards, fmt.Sprintf("#%d %s (%d/%d)", c.ID, c.Name, c.Cost, c.Power))
	}
	return Styles.Box.Render(strings.Join(cards, "  "))
}

// Status, Turn and Lines expose what the view renders.
func (m *Model) Status() string  { return m.status }
func (m *Model) Turn() string    { return m.turnLabel() }
func (m *Model) Lines() []string { return m.lines }
