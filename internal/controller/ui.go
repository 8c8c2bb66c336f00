// Package controller renders patcher and loader results for the operator.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"modhook.dev/pkg/modhook/internal/domain"
	m "modhook.dev/pkg/modhook/internal/model"
)

// UI defines how command results reach the operator.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	DisplayInstall(ctx context.Context, res domain.InstallResult) error
	DisplayUpdate(ctx context.Context, res domain.UpdateResult) error
	DisplayRestore(ctx context.Context, res domain.RestoreResult) error
	DisplayDetection(ctx context.Context, det m.Detection) error
	DisplayHostVersion(ctx context.Context, det m.Detection) error
	DisplayInspection(ctx context.Context, rows []domain.TypeSummary) error
	DisplayDiff(ctx context.Context, diff string) error
	DisplayLoadReport(ctx context.Context, report m.LoadReport) error
	DisplayError(ctx context.Context, err error)

	// Confirm asks a yes/no question. Anything but an explicit yes is a no.
	Confirm(ctx context.Context, question string) (bool, error)

	// Pause waits for a single key press before the program exits.
	Pause(ctx context.Context) error
}

// NewUI picks the TUI on a terminal and SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	simple := NewSimpleUI(cmd)
	if !tty {
		return simple
	}

	return NewTUI(simple)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
