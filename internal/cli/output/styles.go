package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// Styles holds the lipgloss styles of a renderer.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	RiskLow      lipgloss.Style
	RiskMedium   lipgloss.Style
	RiskHigh     lipgloss.Style
	RiskCritical lipgloss.Style
}

// NewStyles builds the styles for one lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: r.NewStyle().Bold(true),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("14")),

		RiskLow:      r.NewStyle().Foreground(lipgloss.Color("8")),
		RiskMedium:   r.NewStyle().Foreground(lipgloss.Color("11")),
		RiskHigh:     r.NewStyle().Foreground(lipgloss.Color("9")),
		RiskCritical: r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
	}
}

// Risk returns the style of a risk level.
func (s *Styles) Risk(level lineage.RiskLevel) lipgloss.Style {
	switch level {
	case lineage.RiskCritical:
		return s.RiskCritical
	case lineage.RiskHigh:
		return s.RiskHigh
	case lineage.RiskMedium:
		return s.RiskMedium
	default:
		return s.RiskLow
	}
}
