package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dkeye/Pairline/internal/protocol"
)

var (
	Primary = lipgloss.Color("#22d3ee")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Error   = lipgloss.Color("#EF4444")
	Muted   = lipgloss.Color("#6B7280")
)

var (
	KindStyle    = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	SuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(Success)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(Error)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
)

func kindStyle(k protocol.Kind) lipgloss.Style {
	switch k {
	case protocol.KindFound, protocol.KindFoundRoom, protocol.KindRoomCreated:
		return SuccessStyle
	case protocol.KindLeave, protocol.KindRoomClosed:
		return WarningStyle
	case protocol.KindRoomError, protocol.KindError:
		return ErrorStyle
	default:
		return KindStyle
	}
}

func PrintError(w io.Writer, msg string) {
	fmt.Fprintln(w, ErrorStyle.Render("error:"), msg)
}
