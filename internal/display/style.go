package display

import "github.com/charmbracelet/lipgloss"

var (
	Cyan   = lipgloss.Color("#00E5FF")
	Yellow = lipgloss.Color("#FFB500")
	Green  = lipgloss.Color("#2AFFAA")
	Red    = lipgloss.Color("#FF5555")
	Muted  = lipgloss.Color("#6C7280")

	BuyColor  = Green
	SellColor = Red
)

// Styles used by the CLI.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Buy      lipgloss.Style
	Sell     lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Footnote lipgloss.Style
}

// DefaultStyles returns the CLI styles. lipgloss drops colors on its own
// when output is not a terminal.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true).
			MarginBottom(1),
		Label:   lipgloss.NewStyle().Foreground(Muted),
		Buy:     lipgloss.NewStyle().Foreground(BuyColor).Bold(true),
		Sell:    lipgloss.NewStyle().Foreground(SellColor).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(Yellow).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(Red).Bold(true),
		Success: lipgloss.NewStyle().Foreground(Green),
		Footnote: lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true),
	}
}

// Direction styles "buy" or "sell".
func (s Styles) Direction(direction string) string {
	switch direction {
	case "buy":
		return s.Buy.Render(direction)
	case "sell":
		return s.Sell.Render(direction)
	default:
		return direction
	}
}
