package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/parlorgames/mystery-engine/pkg/chat"
	"github.com/parlorgames/mystery-engine/pkg/state"
	"github.com/parlorgames/mystery-engine/pkg/timeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	chatStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	metaStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	detectiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	suspectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(1, 2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

type chatResponseMsg struct {
	resp *chat.ChatResponse
	err  error
}

type sessionMsg struct {
	session *state.Session
	err     error
}

type charactersMsg struct {
	characters []CharacterSummary
	err        error
}

type transcriptCopiedMsg struct {
	err error
}

type countdownTickMsg time.Time

// ConsoleUI is the bubbletea model for the interrogation console.
type ConsoleUI struct {
	config  *ConsoleConfig
	client  *http.Client
	session *state.Session

	characters []CharacterSummary

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model

	ready   bool
	width   int
	height  int
	loading bool
	err     error
	status  string

	showQuitModal    bool
	showSuspectModal bool
	suspectCursor    int
}

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, session *state.Session) *ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = "Question the suspect..."
	ta.Focus()
	ta.Prompt = "> "
	ta.CharLimit = chat.MaxMessageLength
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	return &ConsoleUI{
		config:           cfg,
		client:           client,
		session:          session,
		textarea:         ta,
		showSuspectModal: true,
	}
}

func (ui *ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, ui.loadCharacters(), countdownTick())
}

func countdownTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return countdownTickMsg(t)
	})
}

func (ui *ConsoleUI) loadCharacters() tea.Cmd {
	return func() tea.Msg {
		characters, err := listCharacters(ui.client, ui.config.APIBaseURL, ui.session.ID)
		return charactersMsg{characters: characters, err: err}
	}
}

func (ui *ConsoleUI) selectSuspect(characterID string) tea.Cmd {
	return func() tea.Msg {
		session, err := selectCharacter(ui.client, ui.config.APIBaseURL, ui.session.ID, characterID)
		return sessionMsg{session: session, err: err}
	}
}

func (ui *ConsoleUI) sendMessage(message string) tea.Cmd {
	return func() tea.Msg {
		resp, err := sendChat(ui.client, ui.config.APIBaseURL, ui.session.ID, ui.session.CurrentCharacter, message)
		return chatResponseMsg{resp: resp, err: err}
	}
}

func (ui *ConsoleUI) refreshSession() tea.Cmd {
	return func() tea.Msg {
		session, err := getSession(ui.client, ui.config.APIBaseURL, ui.session.ID)
		return sessionMsg{session: session, err: err}
	}
}

func (ui *ConsoleUI) reset() tea.Cmd {
	return func() tea.Msg {
		session, err := resetSession(ui.client, ui.config.APIBaseURL, ui.session.ID)
		return sessionMsg{session: session, err: err}
	}
}

func (ui *ConsoleUI) copyTranscript() tea.Cmd {
	transcript := ui.transcriptText()
	return func() tea.Msg {
		return transcriptCopiedMsg{err: clipboard.WriteAll(transcript)}
	}
}

func (ui *ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		ui.width = msg.Width
		ui.height = msg.Height
		ui.layout()
		ui.ready = true
		ui.writeChatContent()
		ui.writeMetadata()

	case tea.KeyMsg:
		if ui.showQuitModal {
			switch msg.String() {
			case "y", "Y", "enter":
				return ui, tea.Quit
			case "n", "N", "esc":
				ui.showQuitModal = false
			}
			return ui, nil
		}

		if ui.showSuspectModal {
			return ui.updateSuspectModal(msg)
		}

		switch msg.String() {
		case "ctrl+c", "esc":
			ui.showQuitModal = true
			return ui, nil
		case "tab":
			ui.showSuspectModal = true
			ui.suspectCursor = 0
			return ui, ui.loadCharacters()
		case "ctrl+r":
			ui.loading = true
			ui.status = "Starting a new case..."
			return ui, ui.reset()
		case "ctrl+y":
			return ui, ui.copyTranscript()
		case "enter":
			message := strings.TrimSpace(ui.textarea.Value())
			if message == "" || ui.loading {
				return ui, nil
			}
			if ui.session.CurrentCharacter == "" {
				ui.status = "Select a suspect first (tab)."
				return ui, nil
			}
			ui.textarea.Reset()
			ui.loading = true
			ui.err = nil
			ui.status = ""
			ui.appendLocalUserMessage(message)
			ui.writeChatContent()
			ui.chatViewport.GotoBottom()
			return ui, ui.sendMessage(message)
		}

	case chatResponseMsg:
		ui.loading = false
		if msg.err != nil {
			ui.err = msg.err
			break
		}
		ui.applyChatResponse(msg.resp)
		cmds = append(cmds, ui.refreshSession())

	case sessionMsg:
		ui.loading = false
		if msg.err != nil {
			ui.err = msg.err
			break
		}
		ui.session = msg.session
		ui.writeChatContent()
		ui.writeMetadata()
		ui.chatViewport.GotoBottom()
		cmds = append(cmds, ui.loadCharacters())

	case charactersMsg:
		if msg.err != nil {
			ui.err = msg.err
			break
		}
		ui.characters = msg.characters
		ui.writeMetadata()

	case transcriptCopiedMsg:
		if msg.err != nil {
			ui.status = "Copy failed: " + msg.err.Error()
		} else {
			ui.status = "Transcript copied to clipboard."
		}

	case countdownTickMsg:
		changed := false
		for i := range ui.characters {
			if ui.characters[i].RetryAfterSeconds > 0 {
				ui.characters[i].RetryAfterSeconds--
				if ui.characters[i].RetryAfterSeconds == 0 {
					ui.characters[i].Online = true
				}
				changed = true
			}
		}
		if changed && ui.ready {
			ui.writeMetadata()
		}
		cmds = append(cmds, countdownTick())
	}

	var taCmd, chatCmd tea.Cmd
	ui.textarea, taCmd = ui.textarea.Update(msg)
	ui.chatViewport, chatCmd = ui.chatViewport.Update(msg)
	cmds = append(cmds, taCmd, chatCmd)

	return ui, tea.Batch(cmds...)
}

func (ui *ConsoleUI) updateSuspectModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return ui, tea.Quit
	case "esc":
		if ui.session.CurrentCharacter != "" {
			ui.showSuspectModal = false
		}
	case "up", "k":
		if ui.suspectCursor > 0 {
			ui.suspectCursor--
		}
	case "down", "j":
		if ui.suspectCursor < len(ui.characters)-1 {
			ui.suspectCursor++
		}
	case "enter":
		if ui.suspectCursor >= len(ui.characters) {
			return ui, nil
		}
		choice := ui.characters[ui.suspectCursor]
		if !choice.Available {
			ui.status = choice.Name + " is not reachable yet."
			return ui, nil
		}
		ui.showSuspectModal = false
		ui.loading = true
		ui.status = ""
		return ui, ui.selectSuspect(choice.ID)
	}
	return ui, nil
}

// applyChatResponse folds the returned messages into the local session copy so
// the transcript updates before the session refresh lands.
func (ui *ConsoleUI) applyChatResponse(resp *chat.ChatResponse) {
	if resp.Error != "" && resp.RetryAfterSeconds > 0 {
		ui.status = fmt.Sprintf("%s (%ds)", resp.Error, resp.RetryAfterSeconds)
	}
	conv, ok := ui.session.Conversations[ui.session.CurrentCharacter]
	if !ok {
		return
	}
	conv.Messages = append(conv.Messages, resp.Messages...)
	ui.writeChatContent()
	ui.chatViewport.GotoBottom()
}

func (ui *ConsoleUI) appendLocalUserMessage(message string) {
	conv, ok := ui.session.Conversations[ui.session.CurrentCharacter]
	if !ok {
		return
	}
	conv.Messages = append(conv.Messages, chat.NewMessage(ui.session.CurrentCharacter, chat.ChatRoleUser, message))
}

func (ui *ConsoleUI) layout() {
	metaWidth := ui.width / 3
	if metaWidth > 44 {
		metaWidth = 44
	}
	chatWidth := ui.width - metaWidth - 6
	bodyHeight := ui.height - 9

	if !ui.ready {
		ui.chatViewport = viewport.New(chatWidth, bodyHeight)
		ui.metaViewport = viewport.New(metaWidth, bodyHeight)
	} else {
		ui.chatViewport.Width = chatWidth
		ui.chatViewport.Height = bodyHeight
		ui.metaViewport.Width = metaWidth
		ui.metaViewport.Height = bodyHeight
	}
	ui.textarea.SetWidth(ui.width - 4)
}

func (ui *ConsoleUI) currentConversation() *state.Conversation {
	if ui.session.CurrentCharacter == "" {
		return nil
	}
	return ui.session.Conversations[ui.session.CurrentCharacter]
}

func (ui *ConsoleUI) characterName(id string) string {
	for _, c := range ui.characters {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}

func (ui *ConsoleUI) writeChatContent() {
	var b strings.Builder

	conv := ui.currentConversation()
	if conv == nil {
		b.WriteString(systemStyle.Render("No suspect selected. Press tab to choose who to question."))
		ui.chatViewport.SetContent(b.String())
		return
	}

	name := ui.characterName(conv.CharacterID)
	wrap := ui.chatViewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}

	for _, msg := range conv.Messages {
		switch msg.Role {
		case chat.ChatRoleUser:
			b.WriteString(detectiveStyle.Render("Detective: "))
		case chat.ChatRoleAgent:
			b.WriteString(suspectStyle.Render(name + ": "))
		default:
			b.WriteString(systemStyle.Render(wordwrap.String(msg.Content, wrap)))
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(wordwrap.String(msg.Content, wrap))
		b.WriteString("\n\n")
	}

	if ui.loading {
		b.WriteString(systemStyle.Render(name + " is thinking..."))
		b.WriteString("\n")
	}

	ui.chatViewport.SetContent(b.String())
}

func (ui *ConsoleUI) writeMetadata() {
	var b strings.Builder

	phase := timeline.CurrentPhase(ui.session.Progress)
	b.WriteString(fmt.Sprintf("%s (%s)\n", phase.Name, phase.TimeWindow))
	b.WriteString(renderProgressBar(ui.session.Progress, ui.metaViewport.Width-8))
	b.WriteString("\n\n")

	if conv := ui.currentConversation(); conv != nil {
		b.WriteString(fmt.Sprintf("Questioning: %s\n", ui.characterName(conv.CharacterID)))
		b.WriteString(fmt.Sprintf("Trust: %d/100\n\n", conv.Context.TrustLevel))
	}

	b.WriteString("Suspects\n")
	for _, c := range ui.characters {
		marker := "  "
		if c.ID == ui.session.CurrentCharacter {
			marker = "> "
		}
		line := marker + c.Name
		switch {
		case !c.Online:
			line += offlineStyle.Render(fmt.Sprintf(" (away %ds)", c.RetryAfterSeconds))
		case !c.Available:
			line += helpStyle.Render(" (unreachable)")
		default:
			line += onlineStyle.Render(" *")
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if len(ui.session.Evidence) > 0 {
		b.WriteString("Evidence\n")
		for _, e := range ui.session.Evidence {
			b.WriteString(wordwrap.String("- "+e, ui.metaViewport.Width-2))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(ui.session.DiscoveredSecrets) > 0 {
		b.WriteString("Secrets\n")
		for _, s := range ui.session.DiscoveredSecrets {
			b.WriteString(wordwrap.String("- "+s, ui.metaViewport.Width-2))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(ui.session.Notes) > 0 {
		b.WriteString("Notebook\n")
		for _, n := range ui.session.Notes {
			b.WriteString(wordwrap.String("- "+n, ui.metaViewport.Width-2))
			b.WriteString("\n")
		}
	}

	ui.metaViewport.SetContent(b.String())
}

func renderProgressBar(progress, width int) string {
	if width < 10 {
		width = 10
	}
	filled := progress * width / 100
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %d%%", bar, progress)
}

func (ui *ConsoleUI) transcriptText() string {
	var b strings.Builder
	conv := ui.currentConversation()
	if conv == nil {
		return ""
	}
	name := ui.characterName(conv.CharacterID)
	for _, msg := range conv.Messages {
		switch msg.Role {
		case chat.ChatRoleUser:
			b.WriteString("Detective: ")
		case chat.ChatRoleAgent:
			b.WriteString(name + ": ")
		default:
			b.WriteString("[" + msg.Content + "]\n")
			continue
		}
		b.WriteString(msg.Content + "\n")
	}
	return b.String()
}

func (ui *ConsoleUI) View() string {
	if !ui.ready {
		return "Loading the manor..."
	}

	if ui.showQuitModal {
		modal := modalStyle.Render("Abandon the investigation?\n\n[y] yes   [n] no")
		return lipgloss.Place(ui.width, ui.height, lipgloss.Center, lipgloss.Center, modal)
	}

	if ui.showSuspectModal {
		return ui.viewSuspectModal()
	}

	title := titleStyle.Render("The Ashworth Manor Mystery")

	chatPanel := chatStyle.Width(ui.chatViewport.Width + 2).Render(ui.chatViewport.View())
	metaPanel := metaStyle.Width(ui.metaViewport.Width + 2).Render(ui.metaViewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)

	var footer string
	switch {
	case ui.err != nil:
		footer = errorStyle.Render("Error: " + ui.err.Error())
	case ui.status != "":
		footer = systemStyle.Render(ui.status)
	default:
		footer = helpStyle.Render("enter send • tab suspects • ctrl+y copy transcript • ctrl+r new case • esc quit")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		body,
		ui.textarea.View(),
		footer,
	)
}

func (ui *ConsoleUI) viewSuspectModal() string {
	var b strings.Builder
	b.WriteString("Who will you question?\n\n")

	if len(ui.characters) == 0 {
		b.WriteString(helpStyle.Render("Loading suspects..."))
	}

	for i, c := range ui.characters {
		line := fmt.Sprintf("%s — %s", c.Name, c.Role)
		switch {
		case !c.Online:
			line += fmt.Sprintf(" (away %ds)", c.RetryAfterSeconds)
		case !c.Available:
			line += " (unreachable)"
		}
		if i == ui.suspectCursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("up/down move • enter select • esc cancel"))

	modal := modalStyle.Render(b.String())
	return lipgloss.Place(ui.width, ui.height, lipgloss.Center, lipgloss.Center, modal)
}
