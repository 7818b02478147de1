// Package wizard implements the interactive Bubble Tea TUI behind
// `equo-ide init`. It walks through three stages: title and project
// directory inputs, catalog and feature selection, and a confirmation screen. When
// Options.Yes is set the TUI is skipped and Run returns the defaults.
package wizard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agustinschilling/equo-ide/internal/catalog"
	"github.com/agustinschilling/equo-ide/internal/manifest"
)

// ErrCancelled is returned when the user quits the wizard.
var ErrCancelled = errors.New("init cancelled")

// Options controls wizard behaviour.
type Options struct {
	// DefaultDir pre-fills the project directory input.
	DefaultDir string
	// Yes skips the TUI and returns defaults immediately.
	Yes bool
}

// Result is what the wizard produces: a project directory and the
// provisioning file to write into it.
type Result struct {
	Dir      string
	Manifest *manifest.Manifest
}

// Run shows the interactive wizard seeded from base and returns the result.
func Run(base *manifest.Manifest, opts Options) (*Result, error) {
	if opts.Yes {
		return defaultResult(base, opts), nil
	}

	model := newModel(base, opts)
	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	result := final.(wizardModel)
	if result.cancelled {
		return nil, ErrCancelled
	}
	return result.toResult(), nil
}

// ── styles ────────────────────────────────────────────────────────────────────

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle     = dimStyle
)

// ── model stages ─────────────────────────────────────────────────────────────

type stage int

const (
	stageInputs  stage = iota // IDE title and project dir
	stageOptions              // catalog entries and features
	stageConfirm
)

const (
	featureChromium = "chromium"
	featureAtomos   = "atomos"
)

type checkItem struct {
	id      string
	desc    string
	checked bool
}

type wizardModel struct {
	base        *manifest.Manifest
	errMsg      string
	entries     []checkItem
	features    []checkItem
	titleInput  textinput.Model
	dirInput    textinput.Model
	stage       stage
	activeInput int
	cursor      int
	cancelled   bool
	confirmed   bool
}

func defaultDir(opts Options) string {
	if opts.DefaultDir != "" {
		return opts.DefaultDir
	}
	cwd, _ := os.Getwd()
	return cwd
}

func baseTitle(base *manifest.Manifest) string {
	if base.Branding != nil {
		return base.Branding.Title
	}
	return ""
}

func catalogItems(base *manifest.Manifest) []checkItem {
	known := catalog.Builtin()
	var items []checkItem
	for _, name := range catalog.Names() {
		e := known[name]
		_, on := base.Catalog[name]
		items = append(items, checkItem{
			id:      name,
			desc:    fmt.Sprintf("default %s", e.DefaultVersion),
			checked: on,
		})
	}
	return items
}

func featureItems(base *manifest.Manifest) []checkItem {
	return []checkItem{
		{id: featureChromium, desc: "embedded Chromium browser", checked: base.UseChromium},
		{id: featureAtomos, desc: "Atomos + Equinox backend", checked: base.UseAtomos},
	}
}

func newModel(base *manifest.Manifest, opts Options) wizardModel {
	ti := textinput.New()
	ti.Placeholder = "Equo IDE"
	ti.SetValue(baseTitle(base))
	ti.Focus()
	ti.Width = 50

	di := textinput.New()
	di.Placeholder = "~/projects/my-ide"
	di.SetValue(defaultDir(opts))
	di.Width = 50

	return wizardModel{
		base:       base,
		stage:      stageInputs,
		titleInput: ti,
		dirInput:   di,
		entries:    catalogItems(base),
		features:   featureItems(base),
	}
}

// ── tea.Model interface ───────────────────────────────────────────────────────

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	var cmd tea.Cmd
	if m.stage == stageInputs {
		m, cmd = m.updateActiveInput(msg)
	}
	return m, cmd
}

func (m wizardModel) updateActiveInput(msg tea.Msg) (wizardModel, tea.Cmd) {
	var cmd tea.Cmd
	if m.activeInput == 0 {
		m.titleInput, cmd = m.titleInput.Update(msg)
	} else {
		m.dirInput, cmd = m.dirInput.Update(msg)
	}
	return m, cmd
}

func (m wizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageInputs:
		return m.handleInputsKey(msg)
	case stageOptions:
		return m.handleOptionsKey(msg)
	case stageConfirm:
		return m.handleConfirmKey(msg)
	}
	return m, nil
}

func (m wizardModel) handleInputsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "tab", "down":
		m.activeInput = 1 - m.activeInput
		if m.activeInput == 0 {
			m.titleInput.Focus()
			m.dirInput.Blur()
		} else {
			m.dirInput.Focus()
			m.titleInput.Blur()
		}
		return m, textinput.Blink
	case "enter":
		if err := m.validateInputs(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.stage = stageOptions
		m.cursor = 0
		return m, nil
	}
	return m.updateActiveInput(msg)
}

func (m wizardModel) handleOptionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	total := len(m.entries) + len(m.features)
	switch msg.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < total-1 {
			m.cursor++
		}
	case " ":
		m.toggleCursor()
	case "enter":
		if !anyChecked(m.entries) {
			m.errMsg = "select at least one catalog entry"
			return m, nil
		}
		m.errMsg = ""
		m.stage = stageConfirm
	}
	return m, nil
}

func (m wizardModel) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "n", "N":
		m.cancelled = true
		return m, tea.Quit
	case "enter", "y", "Y":
		m.confirmed = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *wizardModel) toggleCursor() {
	if m.cursor < len(m.entries) {
		m.entries[m.cursor].checked = !m.entries[m.cursor].checked
	} else {
		i := m.cursor - len(m.entries)
		m.features[i].checked = !m.features[i].checked
	}
}

func (m wizardModel) validateInputs() error {
	if strings.TrimSpace(m.dirInput.Value()) == "" {
		return fmt.Errorf("project directory is required")
	}
	return nil
}

// ── View ──────────────────────────────────────────────────────────────────────

func (m wizardModel) View() string {
	switch m.stage {
	case stageInputs:
		return m.viewInputs()
	case stageOptions:
		return m.viewOptions()
	case stageConfirm:
		return m.viewConfirm()
	}
	return ""
}

func (m wizardModel) viewInputs() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  equo-ide") + "  new IDE\n\n")

	b.WriteString("  " + sectionStyle.Render("Title") + "\n")
	b.WriteString("  " + m.titleInput.View() + "\n")
	b.WriteString(dimStyle.Render("  Shown in the window title and splash\n\n"))

	b.WriteString("  " + sectionStyle.Render("Project directory") + "\n")
	b.WriteString("  " + m.dirInput.View() + "\n")
	b.WriteString(dimStyle.Render("  equo.yaml is written here\n\n"))

	m.writeError(&b)
	b.WriteString(helpStyle.Render("  tab switch · enter next · esc quit"))
	return b.String()
}

func (m wizardModel) viewOptions() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  equo-ide") + "  select contents\n\n")

	b.WriteString("  " + sectionStyle.Render("─── Catalog ───") + "\n")
	for i, e := range m.entries {
		b.WriteString(m.renderItem(i, e))
	}
	b.WriteString("\n")

	b.WriteString("  " + sectionStyle.Render("─── Features ───") + "\n")
	for i, f := range m.features {
		b.WriteString(m.renderItem(len(m.entries)+i, f))
	}
	b.WriteString("\n")

	m.writeError(&b)
	b.WriteString(helpStyle.Render("  ↑↓ move · space toggle · enter next · esc quit"))
	return b.String()
}

func (m wizardModel) renderItem(idx int, item checkItem) string {
	cursor := "  "
	if idx == m.cursor {
		cursor = focusStyle.Render(" ▶")
	}
	check := "○"
	style := normalStyle
	if item.checked {
		check = selectedStyle.Render("◉")
		style = selectedStyle
	}
	return fmt.Sprintf("%s %s  %-12s  %s\n",
		cursor, check,
		style.Render(item.id),
		dimStyle.Render(item.desc),
	)
}

func (m wizardModel) viewConfirm() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  equo-ide") + "  ready to write " + manifest.FileName + "\n\n")
	b.WriteString(fmt.Sprintf("  Title:      %s\n", focusStyle.Render(m.titleInput.Value())))
	b.WriteString(fmt.Sprintf("  Project:    %s\n\n", focusStyle.Render(m.dirInput.Value())))
	if sel := checkedIDs(m.entries); len(sel) > 0 {
		b.WriteString("  Catalog:    " + strings.Join(sel, ", ") + "\n")
	}
	if sel := checkedIDs(m.features); len(sel) > 0 {
		b.WriteString("  Features:   " + strings.Join(sel, ", ") + "\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  Press enter to write · n to cancel"))
	return b.String()
}

func (m wizardModel) writeError(b *strings.Builder) {
	if m.errMsg != "" {
		b.WriteString("  " + errorStyle.Render("✖ "+m.errMsg) + "\n\n")
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (m wizardModel) toResult() *Result {
	return &Result{
		Dir:      expandHome(m.dirInput.Value()),
		Manifest: build(m.base, m.titleInput.Value(), m.entries, m.features),
	}
}

func defaultResult(base *manifest.Manifest, opts Options) *Result {
	return &Result{
		Dir:      expandHome(defaultDir(opts)),
		Manifest: build(base, baseTitle(base), catalogItems(base), featureItems(base)),
	}
}

// build copies base and overlays the wizard choices. Catalog versions from
// base are kept for entries that stay selected.
func build(base *manifest.Manifest, title string, entries, features []checkItem) *manifest.Manifest {
	out := *base
	out.Source = ""
	out.Catalog = map[string]string{}
	for _, id := range checkedIDs(entries) {
		out.Catalog[id] = base.Catalog[id]
	}
	out.UseChromium, out.UseAtomos = false, false
	for _, id := range checkedIDs(features) {
		switch id {
		case featureChromium:
			out.UseChromium = true
		case featureAtomos:
			out.UseAtomos = true
		}
	}
	out.Branding = nil
	if title = strings.TrimSpace(title); title != "" {
		br := manifest.Branding{}
		if base.Branding != nil {
			br = *base.Branding
		}
		br.Title = title
		out.Branding = &br
	}
	return &out
}

func anyChecked(items []checkItem) bool {
	return len(checkedIDs(items)) > 0
}

func checkedIDs(items []checkItem) []string {
	var out []string
	for _, it := range items {
		if it.checked {
			out = append(out, it.id)
		}
	}
	return out
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
