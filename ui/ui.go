// Package ui provides the live terminal dashboard for the cache stack. It
// consumes the monitor and manager snapshots; nothing in here feeds back
// into cache behavior.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	te "github.com/muesli/termenv"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dgnsrekt/cascade/cache"
	"github.com/dgnsrekt/cascade/monitor"
)

const (
	flashTimeout = 2 * time.Second
	minWidth     = 40
	ellipsis     = "…"
)

// sparks maps a [0,1] sample onto a block glyph, quietest first.
var sparks = []rune("▁▂▃▄▅▆▇█")

// NewProgram returns a new Tea program rendering the dashboard.
func NewProgram(cfg Config, manager *cache.Manager, mon *monitor.Monitor) *tea.Program {
	log.Debug("starting dashboard", "fps", cfg.FPS, "strategy", cfg.Strategy)
	return tea.NewProgram(newModel(cfg, manager, mon), tea.WithAltScreen())
}

type tickMsg time.Time

type model struct {
	cfg     Config
	manager *cache.Manager
	mon     *monitor.Monitor

	spinner  spinner.Model
	printer  *message.Printer
	width    int
	height   int
	lastTick time.Time
	warmed   bool

	flash      string
	flashUntil time.Time
}

func newModel(cfg Config, manager *cache.Manager, mon *monitor.Monitor) *model {
	if cfg.FPS <= 0 || cfg.FPS > 120 {
		cfg.FPS = 30
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle

	if te.HasDarkBackground() {
		lipgloss.SetHasDarkBackground(true)
	}

	return &model{
		cfg:      cfg,
		manager:  manager,
		mon:      mon,
		spinner:  sp,
		printer:  message.NewPrinter(language.English),
		width:    80,
		lastTick: time.Now(),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m *model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.cfg.FPS), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "c":
			if err := clipboard.WriteAll(m.summary()); err != nil {
				log.Warn("unable to copy summary", "error", err)
				m.setFlash("clipboard unavailable")
			} else {
				m.setFlash("copied stats to clipboard")
			}
			return m, nil
		}
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		m.mon.Update(now.Sub(m.lastTick))
		m.lastTick = now
		if !m.warmed && m.mon.EventsPerSecond() > 0 {
			m.warmed = true
		}
		if m.flash != "" && now.After(m.flashUntil) {
			m.flash = ""
		}
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *model) setFlash(s string) {
	m.flash = s
	m.flashUntil = time.Now().Add(flashTimeout)
}

func (m *model) View() string {
	width := m.width
	if width < minWidth {
		width = minWidth
	}

	var b strings.Builder

	title := titleStyle.Render("cascade")
	meta := dimStyle.Render(fmt.Sprintf("%s · %.0f ops/s", m.cfg.Strategy, m.cfg.Rate))
	b.WriteString(title + " " + meta + "\n\n")

	for ch := monitor.ChannelL1; ch <= monitor.ChannelL3; ch++ {
		b.WriteString(m.channelView(ch, width))
		b.WriteString("\n")
	}

	if m.warmed {
		b.WriteString(dimStyle.Render(m.printer.Sprintf("%d events/s", m.mon.EventsPerSecond())))
	} else {
		b.WriteString(m.spinner.View() + dimStyle.Render(" warming up"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.statsView(width))

	if m.flash != "" {
		b.WriteString("\n" + flashStyle.Render(m.flash))
	}
	if m.cfg.ShowKeys {
		b.WriteString("\n" + dimStyle.Render("q: quit · c: copy stats"))
	}

	return b.String()
}

// channelView renders one channel: label, waveform, and activity bar.
func (m *model) channelView(ch monitor.Channel, width int) string {
	style := channelStyles[int(ch)]
	label := labelStyle.Render(fmt.Sprintf("%-3s", ch))

	waveWidth := width - 16
	if waveWidth < 10 {
		waveWidth = 10
	}

	wave := style.Render(sparkline(m.mon.Waveform(ch), waveWidth))
	level := m.mon.Activity(ch)
	bar := activityBar(level, 8, style)

	return fmt.Sprintf("%s %s %s %s", label, wave, bar, dimStyle.Render(fmt.Sprintf("%3.0f%%", level*100)))
}

// statsView renders the per-layer table.
func (m *model) statsView(width int) string {
	stats := m.manager.Stats()
	infos := m.manager.Layers()

	var b strings.Builder
	b.WriteString(headerRowStyle.Render(fmt.Sprintf("%-12s %12s %12s %8s %18s", "layer", "hits", "misses", "rate", "size")))
	b.WriteString("\n")

	for _, info := range infos {
		s := stats[info.Name]
		name := truncate.StringWithTail(info.Name, 12, ellipsis)
		pad := 12 - runewidth.StringWidth(name)
		if pad < 0 {
			pad = 0
		}

		row := fmt.Sprintf("%s%s %12s %12s %7.1f%% %9s / %-8s",
			name, strings.Repeat(" ", pad),
			m.printer.Sprintf("%d", s.Hits),
			m.printer.Sprintf("%d", s.Misses),
			s.HitRate*100,
			humanize.IBytes(uint64(info.CurrentSize)),
			humanize.IBytes(uint64(info.MaxSize)),
		)
		b.WriteString(truncate.StringWithTail(row, uint(width), ellipsis)) //nolint:gosec
		b.WriteString("\n")
	}
	return b.String()
}

// summary builds the plain-text stats block placed on the clipboard.
func (m *model) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cascade · %s · %d events/s\n", m.cfg.Strategy, m.mon.EventsPerSecond())

	stats := m.manager.Stats()
	for _, info := range m.manager.Layers() {
		s := stats[info.Name]
		fmt.Fprintf(&b, "%s: hits=%d misses=%d rate=%.1f%% size=%s/%s\n",
			info.Name, s.Hits, s.Misses, s.HitRate*100,
			humanize.IBytes(uint64(info.CurrentSize)),
			humanize.IBytes(uint64(info.MaxSize)),
		)
	}
	return b.String()
}

// sparkline renders samples as block glyphs, newest on the right, padded
// to width.
func sparkline(samples []float64, width int) string {
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}

	var b strings.Builder
	for i := 0; i < width-len(samples); i++ {
		b.WriteRune(' ')
	}
	for _, s := range samples {
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		idx := int(s * float64(len(sparks)-1))
		b.WriteRune(sparks[idx])
	}
	return b.String()
}

// activityBar renders a level in [0,1] as a fixed-width bar.
func activityBar(level float64, width int, style lipgloss.Style) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	filled := int(level * float64(width))
	if filled > width {
		filled = width
	}
	return style.Render(strings.Repeat("█", filled)) +
		emptyBarStyle.Render(strings.Repeat("░", width-filled))
}
