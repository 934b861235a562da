package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"voicecart/internal/agent"
	"voicecart/internal/cart"
)

// chatMessage is one entry in the transcript view.
type chatMessage struct {
	role    string // "user" or "agent"
	content string
	time    time.Time
}

// Messages for tea updates
type (
	replyMsg agent.Reply
	errorMsg error
)

// ChatModel is the main model for the interactive storefront chat.
type ChatModel struct {
	// UI components
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	styles    Styles
	renderer  *glamour.TermRenderer

	// State
	history   []chatMessage
	isLoading bool
	err       error
	width     int
	height    int
	ready     bool

	// Backend
	pipeline *agent.Pipeline
	store    *cart.Store
	location *Location
}

// NewChatModel builds the chat model over an assembled pipeline.
func NewChatModel(pipeline *agent.Pipeline, store *cart.Store, loc *Location, theme Theme) ChatModel {
	styles := NewStyles(theme)

	ti := textinput.New()
	ti.Placeholder = "Say something... (Enter to send, /help for commands, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 1024
	ti.Width = 80
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.UserInput

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)
	vp.SetContent("")

	var renderer *glamour.TermRenderer
	if styles.Theme.IsDark {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	} else {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(80),
		)
	}

	return ChatModel{
		textinput: ti,
		viewport:  vp,
		spinner:   sp,
		styles:    styles,
		renderer:  renderer,
		history:   []chatMessage{},
		pipeline:  pipeline,
		store:     store,
		location:  loc,
	}
}

func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if !m.isLoading {
				return m.handleSubmit()
			}
		}

		if !m.isLoading {
			m.textinput, tiCmd = m.textinput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		footerHeight := 3
		inputHeight := 3

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-footerHeight-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - footerHeight - inputHeight
		}

		m.textinput.Width = msg.Width - 4

		if m.renderer != nil {
			m.renderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(msg.Width-8),
			)
		}

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case replyMsg:
		m.isLoading = false
		if msg.Transcript != "" {
			// Show what the transcriber heard before the agent's answer.
			m.history = append(m.history, chatMessage{
				role:    "user",
				content: "🎤 " + msg.Transcript,
				time:    time.Now(),
			})
		}
		m.history = append(m.history, chatMessage{
			role:    "agent",
			content: msg.Message,
			time:    time.Now(),
		})
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()

	case errorMsg:
		m.isLoading = false
		m.err = msg
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m ChatModel) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	if input == "" {
		return m, nil
	}

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.history = append(m.history, chatMessage{
		role:    "user",
		content: input,
		time:    time.Now(),
	})
	m.textinput.Reset()
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	m.isLoading = true
	m.err = nil

	return m, tea.Batch(
		m.spinner.Tick,
		m.processUtterance(input),
	)
}

// processUtterance runs the pipeline off the UI loop.
func (m ChatModel) processUtterance(input string) tea.Cmd {
	return func() tea.Msg {
		page := agent.PageContext{CurrentProductID: agent.ProductIDFromPath(m.location.Path())}
		reply, err := m.pipeline.ProcessText(context.Background(), input, page)
		if err != nil && reply.Message == "" {
			return errorMsg(err)
		}
		// Gateway failures arrive with the apology framing already applied.
		return replyMsg(reply)
	}
}

// processRecording loads an audio file and runs the full voice pipeline.
func (m ChatModel) processRecording(path string) tea.Cmd {
	return func() tea.Msg {
		audio, err := os.ReadFile(path)
		if err != nil {
			return errorMsg(fmt.Errorf("could not read recording: %w", err))
		}

		mimeType := "audio/webm"
		switch strings.ToLower(filepath.Ext(path)) {
		case ".wav":
			mimeType = "audio/wav"
		case ".mp3":
			mimeType = "audio/mpeg"
		case ".ogg":
			mimeType = "audio/ogg"
		case ".m4a":
			mimeType = "audio/mp4"
		}

		page := agent.PageContext{CurrentProductID: agent.ProductIDFromPath(m.location.Path())}
		reply, err := m.pipeline.ProcessAudio(context.Background(), audio, filepath.Base(path), mimeType, page)
		if err != nil && reply.Message == "" {
			return errorMsg(err)
		}
		return replyMsg(reply)
	}
}

func (m ChatModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/clear":
		m.history = []chatMessage{}
		m.viewport.SetContent("")
		m.textinput.Reset()
		return m, nil

	case "/help":
		help := `## Available Commands

| Command | Description |
|---------|-------------|
| /help | Show this help message |
| /clear | Clear chat history |
| /cart | Show cart contents |
| /record <file> | Transcribe an audio file and run it as an utterance |
| /quit, /exit, /q | Exit |

## Things to try
- "show me t-shirts"
- "add 2 of product ID 3 to cart"
- "add this" (while viewing a product page)
- "how much is in my cart"
- "remove the jeans"

## Tips
- **Enter** to send
- **Ctrl+C** or **Esc** to exit
- Use **↑/↓** to scroll history
`
		m.history = append(m.history, chatMessage{
			role:    "agent",
			content: help,
			time:    time.Now(),
		})
		m.textinput.Reset()
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case "/cart":
		m.history = append(m.history, chatMessage{
			role:    "agent",
			content: m.renderCart(),
			time:    time.Now(),
		})
		m.textinput.Reset()
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case "/record":
		if len(parts) < 2 {
			m.history = append(m.history, chatMessage{
				role:    "agent",
				content: "Usage: `/record <audio file>`",
				time:    time.Now(),
			})
			m.textinput.Reset()
			m.viewport.SetContent(m.renderHistory())
			return m, nil
		}
		m.textinput.Reset()
		m.isLoading = true
		m.err = nil
		return m, tea.Batch(
			m.spinner.Tick,
			m.processRecording(parts[1]),
		)

	default:
		m.history = append(m.history, chatMessage{
			role:    "agent",
			content: fmt.Sprintf("Unknown command: `%s`. Try `/help`.", cmd),
			time:    time.Now(),
		})
		m.textinput.Reset()
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil
	}
}

// renderCart formats the cart contents as markdown.
func (m ChatModel) renderCart() string {
	items := m.store.Items()
	if len(items) == 0 {
		return "Your cart is empty."
	}

	var sb strings.Builder
	sb.WriteString("## Your Cart\n\n")
	sb.WriteString("| Item | Qty | Price |\n|------|-----|-------|\n")
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("| %s | %d | $%.2f |\n",
			item.Product.Name, item.Quantity, item.Product.Price*float64(item.Quantity)))
	}
	sb.WriteString(fmt.Sprintf("\n**Total: $%.2f**\n", m.store.Total()))
	return sb.String()
}

func (m ChatModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()

	chatView := m.styles.Content.Render(m.viewport.View())
	if m.isLoading {
		chatView += "\n" + m.styles.Spinner.Render(m.spinner.View()) + " Listening..."
	}
	if m.err != nil {
		chatView += "\n" + m.styles.Error.Render("Error: "+m.err.Error())
	}

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1)
	inputArea := inputStyle.Render(m.textinput.View())

	footer := m.styles.Muted.Render("Enter: send • /help: commands • Ctrl+C: exit")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		chatView,
		inputArea,
		lipgloss.NewStyle().MarginTop(1).Render(footer),
	)
}

func (m ChatModel) renderHeader() string {
	title := m.styles.Header.Render(" 🛍 voicecart ")

	// The cart badge reads live store state; the store's version counter
	// guarantees a fresh read after every mutation.
	count := m.store.ItemCount()
	badge := m.styles.Badge.Render(fmt.Sprintf("🛒 %d · $%.2f", count, m.store.Total()))

	var status string
	if m.isLoading {
		status = m.styles.Warning.Render("● Processing")
	} else {
		status = m.styles.Success.Render("● Ready")
	}

	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		" ",
		badge,
		"  ",
		status,
	)

	page := m.styles.Muted.Render(" 📍 " + m.location.String())

	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		page,
		m.styles.RenderDivider(m.width),
	)
}

func (m ChatModel) renderHistory() string {
	var sb strings.Builder

	for _, msg := range m.history {
		if msg.role == "user" {
			userStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Primary).
				MarginTop(1)
			sb.WriteString(userStyle.Render("You") + "\n")
			sb.WriteString(m.styles.UserInput.Render(msg.content))
			sb.WriteString("\n\n")
		} else {
			agentStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Accent).
				MarginTop(1)
			sb.WriteString(agentStyle.Render("🛍 voicecart") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.content))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery.
func (m ChatModel) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}
