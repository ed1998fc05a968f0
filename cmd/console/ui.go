package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/archetype-engine/internal/engine"
	"github.com/jwebster45206/archetype-engine/internal/handlers"
	"github.com/jwebster45206/archetype-engine/pkg/scenario"
	"github.com/jwebster45206/archetype-engine/pkg/turn"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "What do you do?"
)

type entryKind int

const (
	entryScene entryKind = iota
	entryQuestion
	entryUser
	entryNarration
	entryNotice
	entryError
	entryResults
)

// entry is one block in the chat panel.
type entry struct {
	kind entryKind
	text string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	session      *handlers.SessionResponse
	results      *engine.Results
	entries      []entry
	shownTurn    int // last turn whose beat has been printed
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Scenario selection state
	showScenarioModal bool
	scenarios         []scenario.Summary
	selectedScenario  int
	loadingScenarios  bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type scenariosLoadedMsg struct {
	scenarios []scenario.Summary
	err       error
}

type sessionCreatedMsg struct {
	session *handlers.SessionResponse
	err     error
}

type sessionMsg struct {
	session *handlers.SessionResponse
	err     error
}

type turnResultMsg struct {
	result *turn.Result
	err    error
}

type resultsMsg struct {
	results *engine.Results
	err     error
}

type exportedMsg struct {
	path string
	err  error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = turn.MaxInputLength
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:            cfg,
		client:            client,
		textarea:          ta,
		chatViewport:      chatVp,
		metaViewport:      metaVp,
		showScenarioModal: true,
		loadingScenarios:  true,
	}
}

func (m *ConsoleUI) addEntry(kind entryKind, text string) {
	m.entries = append(m.entries, entry{kind: kind, text: text})
}

// addBeat prints the intro pages and question of the session's current beat
// once per turn.
func (m *ConsoleUI) addBeat() {
	s := m.session
	if s == nil || s.Beat == nil || s.Session.CurrentTurn <= m.shownTurn {
		return
	}
	m.shownTurn = s.Session.CurrentTurn
	for _, page := range s.Beat.Intro {
		m.addEntry(entryScene, page)
	}
	m.addEntry(entryQuestion, fmt.Sprintf("[%d/%d] %s", s.Session.CurrentTurn, s.TurnCount, s.Beat.Question))
}

func (m *ConsoleUI) layout() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func writeMetadata(s *handlers.SessionResponse) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	content.WriteString("Session ID:\n")
	content.WriteString(s.Session.ID.String()[:8] + "...\n\n")

	content.WriteString("Scenario:\n")
	content.WriteString(s.Title + "\n\n")

	content.WriteString("Progress:\n")
	done := len(s.Session.UserPath)
	content.WriteString(fmt.Sprintf("%d of %d answered\n\n", done, s.TurnCount))

	content.WriteString("Approach:\n")
	if done == 0 {
		content.WriteString("None yet\n")
	}
	for i, label := range s.Session.UserPath {
		content.WriteString(fmt.Sprintf("%d. %s\n", i+1, label))
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /copy: Copy story\n")
	content.WriteString("• /export: Save PDF\n")

	return content.String()
}

func renderResults(res *engine.Results) string {
	var b strings.Builder
	if res.Archetype != nil {
		b.WriteString("You are " + res.Archetype.Name)
		if res.Archetype.Icon != "" {
			b.WriteString(" " + res.Archetype.Icon)
		}
		b.WriteString("\n")
		if res.Archetype.Subtitle != "" {
			b.WriteString(res.Archetype.Subtitle + "\n")
		}
		b.WriteString("\n" + res.Archetype.Description + "\n\n")
	}
	b.WriteString("Path: " + strings.Join(res.Path, " > ") + "\n\n")
	if len(res.Insights.Strengths) > 0 {
		b.WriteString("Strengths:\n")
		for _, s := range res.Insights.Strengths {
			b.WriteString("• " + s + "\n")
		}
		b.WriteString("\n")
	}
	if len(res.Insights.BlindSpots) > 0 {
		b.WriteString("Blind spots:\n")
		for _, s := range res.Insights.BlindSpots {
			b.WriteString("• " + s + "\n")
		}
		b.WriteString("\n")
	}
	if res.Insights.Pattern != "" {
		b.WriteString(res.Insights.Pattern + "\n\n")
	}
	for _, p := range res.Conclusion {
		b.WriteString(p + "\n\n")
	}
	if res.Debrief != "" {
		b.WriteString("Debrief:\n" + res.Debrief + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// writeChatContent rebuilds the chat panel for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	title := "ARCHETYPE ENGINE"
	if m.session != nil {
		title = strings.ToUpper(m.session.Title)
	}
	content.WriteString(titleStyle.Render(title) + "\n\n")
	content.WriteString("Answer each question in your own words.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 1))) + "\n\n")

	for _, e := range m.entries {
		switch e.kind {
		case entryScene:
			content.WriteString(wordwrap.String(e.text, chatWidth) + "\n\n")
		case entryQuestion:
			content.WriteString(speakerStyle.Render(wordwrap.String(e.text, chatWidth)) + "\n\n")
		case entryUser:
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(e.text, chatWidth-6) + "\n\n")
		case entryNarration:
			prefix := AgentName + ": "
			content.WriteString(narratorStyle.Render(prefix) + wordwrap.String(e.text, chatWidth-len(prefix)) + "\n\n")
		case entryNotice:
			content.WriteString(promptStyle.Render(wordwrap.String(e.text, chatWidth)) + "\n\n")
		case entryError:
			content.WriteString(errorStyle.Render(wordwrap.String("Error: "+e.text, chatWidth)) + "\n\n")
		case entryResults:
			content.WriteString(titleStyle.Render("RESULTS") + "\n\n")
			content.WriteString(wordwrap.String(e.text, chatWidth) + "\n\n")
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

// plainTranscript is the chat panel without styling, for the clipboard.
func (m ConsoleUI) plainTranscript() string {
	var b strings.Builder
	for _, e := range m.entries {
		switch e.kind {
		case entryUser:
			b.WriteString("You: " + e.text)
		case entryNarration:
			b.WriteString(AgentName + ": " + e.text)
		case entryNotice, entryError:
			continue
		default:
			b.WriteString(e.text)
		}
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadScenarios()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showScenarioModal {
		return m.updateScenarioModal(msg)
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.writeChatContent()
		if m.session != nil {
			m.metaViewport.SetContent(writeMetadata(m.session))
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			if m.session.Complete {
				m.textarea.Reset()
				m.addEntry(entryNotice, "The scenario is complete. Use /results, /copy or /export.")
				m.writeChatContent()
				return m, nil
			}

			m.textarea.Reset()
			m.loading = true
			m.progressTick = 0
			m.addEntry(entryUser, input)
			m.writeChatContent()

			return m, tea.Batch(m.sendTurn(input), progressTick())
		}

	case turnResultMsg:
		m.loading = false
		switch {
		case msg.err != nil:
			m.addEntry(entryError, msg.err.Error())
		case !msg.result.OK():
			m.addEntry(entryNotice, msg.result.ErrorMessage)
		default:
			m.addEntry(entryNarration, msg.result.NextSceneText)
			m.addEntry(entryNotice, fmt.Sprintf("Approach: %s (%s)", msg.result.Classification, msg.result.ActionSummary))
			m.writeChatContent()
			return m, m.refreshSession()
		}
		m.writeChatContent()
		return m, nil

	case sessionMsg:
		if msg.err != nil {
			m.addEntry(entryError, msg.err.Error())
			m.writeChatContent()
			return m, nil
		}
		m.session = msg.session
		m.metaViewport.SetContent(writeMetadata(m.session))
		m.addBeat()
		if m.session.Complete && m.results == nil {
			m.loading = true
			m.addEntry(entryNotice, "Scenario complete. Working out your archetype...")
			m.writeChatContent()
			return m, tea.Batch(m.fetchResults(), progressTick())
		}
		m.writeChatContent()

	case resultsMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry(entryError, msg.err.Error()+" (try /results)")
		} else {
			m.results = msg.results
			m.addEntry(entryResults, renderResults(msg.results))
		}
		m.writeChatContent()
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.addEntry(entryError, msg.err.Error())
		} else {
			m.addEntry(entryNotice, "Saved "+msg.path)
		}
		m.writeChatContent()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	m.textarea.Reset()

	switch cmd {
	case "/help":
		m.addEntry(entryNotice, `Commands:
• /help - Show this help
• /results - Show your archetype once every question is answered
• /copy - Copy the story so far to the clipboard
• /export - Save the session as a PDF
• Ctrl+C - Quit

How to play:
• Read the situation and answer each question in your own words
• There are no wrong answers; your choices shape your archetype`)

	case "/results":
		if !m.session.Complete {
			m.addEntry(entryNotice, "Answer every question first.")
			break
		}
		if m.results != nil {
			m.addEntry(entryResults, renderResults(m.results))
			break
		}
		m.loading = true
		m.writeChatContent()
		return m, tea.Batch(m.fetchResults(), progressTick())

	case "/copy":
		if err := clipboard.WriteAll(m.plainTranscript()); err != nil {
			m.addEntry(entryError, "clipboard unavailable: "+err.Error())
		} else {
			m.addEntry(entryNotice, "Story copied to clipboard.")
		}

	case "/export":
		return m, m.exportPDF()

	default:
		m.addEntry(entryNotice, "Unknown command "+cmd+". Try /help.")
	}

	m.writeChatContent()
	return m, nil
}

func (m ConsoleUI) sendTurn(message string) tea.Cmd {
	id := m.session.Session.ID
	return func() tea.Msg {
		res, err := submitTurn(m.client, m.config.APIBaseURL, id, message)
		return turnResultMsg{res, err}
	}
}

func (m ConsoleUI) refreshSession() tea.Cmd {
	id := m.session.Session.ID
	return func() tea.Msg {
		s, err := getSession(m.client, m.config.APIBaseURL, id)
		return sessionMsg{s, err}
	}
}

func (m ConsoleUI) fetchResults() tea.Cmd {
	id := m.session.Session.ID
	return func() tea.Msg {
		res, err := getResults(m.client, m.config.APIBaseURL, id)
		return resultsMsg{res, err}
	}
}

func (m ConsoleUI) exportPDF() tea.Cmd {
	id := m.session.Session.ID
	path := fmt.Sprintf("%s-%s.pdf", m.session.Session.ScenarioID, id.String()[:8])
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: fmt.Errorf("failed to create %s: %w", path, err)}
		}
		if err := downloadPDF(m.client, m.config.APIBaseURL, id, f); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path, err: f.Close()}
	}
}

func (m ConsoleUI) loadScenarios() tea.Cmd {
	return func() tea.Msg {
		list, err := listScenarios(m.client, m.config.APIBaseURL)
		return scenariosLoadedMsg{list, err}
	}
}

func (m ConsoleUI) startSession(scenarioID string) tea.Cmd {
	return func() tea.Msg {
		s, err := createSession(m.client, m.config.APIBaseURL, scenarioID)
		return sessionCreatedMsg{s, err}
	}
}

func (m ConsoleUI) updateScenarioModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case scenariosLoadedMsg:
		m.loadingScenarios = false
		if msg.err != nil {
			m.err = msg.err
		} else if len(msg.scenarios) == 0 {
			m.err = fmt.Errorf("no scenarios available")
		} else {
			m.scenarios = msg.scenarios
		}

	case sessionCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		m.showScenarioModal = false
		if m.width > 0 && m.height > 0 {
			m.layout()
		}
		if msg.session.InitialScene != "" {
			m.addEntry(entryScene, msg.session.InitialScene)
		}
		m.addBeat()
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.session))
		m.textarea.Focus()
		m.ready = true
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.loadingScenarios {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selectedScenario > 0 {
				m.selectedScenario--
			}
		case tea.KeyDown:
			if m.selectedScenario < len(m.scenarios)-1 {
				m.selectedScenario++
			}
		case tea.KeyEnter:
			if m.err == nil && len(m.scenarios) > 0 && !m.loading {
				m.loading = true
				return m, m.startSession(m.scenarios[m.selectedScenario].ID)
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Your session is saved on the server, but this console cannot resume it.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderScenarioModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingScenarios:
		content.WriteString(modalTitleStyle.Render("Loading Scenarios..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch available scenarios..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(m.err.Error()))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Starting..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Setting up your session..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a Scenario"))
		content.WriteString("\n\n")

		for i, sc := range m.scenarios {
			line := fmt.Sprintf("%s (%d questions)", sc.Title, sc.Turns)
			if i == m.selectedScenario {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + line))
				content.WriteString("\n")
				content.WriteString(promptStyle.Render(wordwrap.String("  "+sc.Description, 54)))
			} else {
				content.WriteString(modalItemStyle.Render("  " + line))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if m.showScenarioModal {
		return m.renderScenarioModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	usable = min(max(usable, 10), 80)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
