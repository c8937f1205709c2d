package tui

import (
	"github.com/charmbracelet/lipgloss"
)

type ThemeName string

const (
	ThemeMidnight  ThemeName = "midnight"
	ThemePorcelain ThemeName = "porcelain"
)

type Theme struct {
	Name ThemeName

	TextPrimary lipgloss.AdaptiveColor
	TextMuted   lipgloss.AdaptiveColor

	Accent  lipgloss.AdaptiveColor
	Success lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor

	TopBar      lipgloss.Style
	TopBarTitle lipgloss.Style
	TopBarMeta  lipgloss.Style
	Footer      lipgloss.Style

	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	PaneTitle   lipgloss.Style
	PaneTitleF  lipgloss.Style
	PaneDivider lipgloss.Style

	InputBox         lipgloss.Style
	InputBoxF        lipgloss.Style
	InputBoxDisabled lipgloss.Style

	RoleYou lipgloss.Style
	RoleAI  lipgloss.Style
	RoleErr lipgloss.Style

	SessionItem   lipgloss.Style
	SessionActive lipgloss.Style
	SessionSel    lipgloss.Style

	Welcome    lipgloss.Style
	Typing     lipgloss.Style
	Attachment lipgloss.Style
	Status     lipgloss.Style
	StatusErr  lipgloss.Style
}

func NewTheme(name string) Theme {
	switch ThemeName(name) {
	case ThemePorcelain:
		return porcelainTheme()
	default:
		return midnightTheme()
	}
}

func midnightTheme() Theme {
	t := Theme{
		Name:        ThemeMidnight,
		TextPrimary: lipgloss.AdaptiveColor{Light: "#24292F", Dark: "#E6EDF3"},
		TextMuted:   lipgloss.AdaptiveColor{Light: "#57606A", Dark: "#8B949E"},
		Accent:      lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#58A6FF"},
		Success:     lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"},
		Error:       lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"},
	}
	return buildStyles(t)
}

func porcelainTheme() Theme {
	t := Theme{
		Name:        ThemePorcelain,
		TextPrimary: lipgloss.AdaptiveColor{Light: "#2D2A2E", Dark: "#FAF4ED"},
		TextMuted:   lipgloss.AdaptiveColor{Light: "#797593", Dark: "#9893A5"},
		Accent:      lipgloss.AdaptiveColor{Light: "#907AA9", Dark: "#C4A7E7"},
		Success:     lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9CCFD8"},
		Error:       lipgloss.AdaptiveColor{Light: "#B4637A", Dark: "#EB6F92"},
	}
	return buildStyles(t)
}

func buildStyles(t Theme) Theme {
	border := t.TextMuted

	t.TopBar = lipgloss.NewStyle().Foreground(t.TextPrimary)
	t.TopBarTitle = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.TopBarMeta = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.Footer = lipgloss.NewStyle().Foreground(t.TextMuted)

	t.Pane = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	t.PaneFocused = t.Pane.BorderForeground(t.Accent)
	t.PaneTitle = lipgloss.NewStyle().Bold(true).Foreground(t.TextMuted)
	t.PaneTitleF = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.PaneDivider = lipgloss.NewStyle().Foreground(border)

	t.InputBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	t.InputBoxF = t.InputBox.BorderForeground(t.Accent)
	t.InputBoxDisabled = t.InputBox.BorderForeground(t.TextMuted).Faint(true)

	t.RoleYou = lipgloss.NewStyle().Bold(true).Foreground(t.Success)
	t.RoleAI = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.RoleErr = lipgloss.NewStyle().Bold(true).Foreground(t.Error)

	t.SessionItem = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.SessionActive = lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true)
	t.SessionSel = lipgloss.NewStyle().Foreground(t.Accent).Bold(true)

	t.Welcome = lipgloss.NewStyle().Foreground(t.TextMuted).Italic(true)
	t.Typing = lipgloss.NewStyle().Foreground(t.Accent)
	t.Attachment = lipgloss.NewStyle().Foreground(t.Success)
	t.Status = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.StatusErr = lipgloss.NewStyle().Foreground(t.Error)

	return t
}
