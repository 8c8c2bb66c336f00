package controller

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"modhook.dev/pkg/modhook/internal/domain"
	m "modhook.dev/pkg/modhook/internal/model"
)

var (
	headlineStyle = lipgloss.NewStyle().Bold(true)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF5F56"})

	addedLine   = color.New(color.FgGreen).SprintFunc()
	removedLine = color.New(color.FgRed).SprintFunc()
	hunkLine    = color.New(color.FgCyan).SprintFunc()
	fileLine    = color.New(color.Bold).SprintFunc()
)

// SimpleUI implements UI using the cobra command's output streams.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplayInstall reports a fresh injection or the existing one.
func (s *SimpleUI) DisplayInstall(ctx context.Context, res domain.InstallResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !res.Injected {
		return s.displayAlreadyInjected(res.Before.State)
	}

	if err := s.headline("Hook installed"); err != nil {
		return err
	}

	return s.displayInjection(res)
}

func (s *SimpleUI) displayAlreadyInjected(state m.InjectionState) error {
	if state.Kind == m.LegacyInjection {
		return s.printf("Already injected with a legacy hook in %s.\nRun 'modhook update' to move it to the current location.\n",
			state.Location)
	}

	return s.printf("Already injected in %s.\n", state.Location)
}

func (s *SimpleUI) displayInjection(res domain.InstallResult) error {
	if err := s.printf("  location: %s\n  strategy: %s\n", res.Location, res.Strategy); err != nil {
		return err
	}

	if err := s.printf("  after:    IL_%04d call %s\n", res.Anchor.Index, res.Anchor.Call.String()); err != nil {
		return err
	}

	return s.printf("  backup:   %s (%s)\n", res.Backup.Path, humanize.Bytes(uint64(max(res.Backup.Size, 0))))
}

// DisplayUpdate reports the outcome of an update.
func (s *SimpleUI) DisplayUpdate(ctx context.Context, res domain.UpdateResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch {
	case res.Cancelled:
		return s.printf("Update cancelled.\n")
	case !res.Before.State.Injected():
		return s.printf("Nothing to update: the hook is not installed.\n")
	}

	if err := s.headline(fmt.Sprintf("Hook updated (was %s)", res.Before.State.Kind)); err != nil {
		return err
	}

	return s.displayInjection(res.Install)
}

// DisplayRestore reports the outcome of a restore.
func (s *SimpleUI) DisplayRestore(ctx context.Context, res domain.RestoreResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !res.Restored {
		return s.printf("Already restored: the hook is not installed.\n")
	}

	if err := s.headline("Module restored"); err != nil {
		return err
	}

	return s.printf("  %s (%s, sha256 %s)\n", res.File.Path, humanize.Bytes(uint64(max(res.File.Size, 0))), shortHash(res.File.Hash))
}

// DisplayDetection prints true or false.
func (s *SimpleUI) DisplayDetection(ctx context.Context, det m.Detection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.printf("%t\n", det.State.Injected())
}

// DisplayHostVersion prints the version marker, or an empty line.
func (s *SimpleUI) DisplayHostVersion(ctx context.Context, det m.Detection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.printf("%s\n", det.HostVersion)
}

// DisplayInspection prints one table row per type.
func (s *SimpleUI) DisplayInspection(ctx context.Context, rows []domain.TypeSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.printf("\n%s", renderInspectionTable(rows))
}

func renderInspectionTable(rows []domain.TypeSummary) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Type", "Methods", "Instructions", "Nested"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	methods, instructions := 0, 0

	for _, row := range rows {
		table.Append([]string{
			row.Type,
			fmt.Sprintf("%d", row.Methods),
			fmt.Sprintf("%d", row.Instructions),
			fmt.Sprintf("%d", row.Nested),
		})

		methods += row.Methods
		instructions += row.Instructions
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Types %d", len(rows)),
		fmt.Sprintf("%d", methods),
		fmt.Sprintf("%d", instructions),
		"",
	})

	table.Render()

	return tableBuffer.String()
}

// DisplayDiff prints a unified diff with coloured lines.
func (s *SimpleUI) DisplayDiff(ctx context.Context, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if diff == "" {
		return s.printf("No differences.\n")
	}

	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}

		if err := s.printf("%s", colorDiffLine(line)); err != nil {
			return err
		}
	}

	return nil
}

func colorDiffLine(line string) string {
	text := strings.TrimSuffix(line, "\n")
	suffix := line[len(text):]

	switch {
	case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
		return fileLine(text) + suffix
	case strings.HasPrefix(text, "@@"):
		return hunkLine(text) + suffix
	case strings.HasPrefix(text, "+"):
		return addedLine(text) + suffix
	case strings.HasPrefix(text, "-"):
		return removedLine(text) + suffix
	default:
		return line
	}
}

// DisplayLoadReport prints one row per plugin followed by the diagnostics of
// skipped or failed entry points.
func (s *SimpleUI) DisplayLoadReport(ctx context.Context, report m.LoadReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(report.Plugins) == 0 {
		return s.printf("No plugins found in %s.\n", report.Dir)
	}

	if err := s.printf("\n%s", renderLoadTable(report)); err != nil {
		return err
	}

	for _, plugin := range report.Plugins {
		if plugin.Err != nil && len(plugin.Invocations) == 0 {
			if err := s.printf("%s: %v\n", plugin.File, plugin.Err); err != nil {
				return err
			}
		}

		for _, inv := range plugin.Invocations {
			var err error

			switch inv.Status {
			case m.InvocationSkipped:
				err = s.printf("%s: %s\n", plugin.File, inv.Mismatch.Diagnostic())
			case m.InvocationFailed:
				err = s.printf("%s: %v\n", plugin.File, inv.Err)
			case m.InvocationCalled:
			}

			if err != nil {
				return err
			}
		}
	}

	return s.printf("Done. Took %.2f seconds\n", report.Elapsed.Seconds())
}

func renderLoadTable(report m.LoadReport) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Plugin", "Version", "Called", "Skipped", "Failed", "Status"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")

	loaded := 0

	for _, plugin := range report.Plugins {
		counts := map[m.InvocationStatus]int{}
		for _, inv := range plugin.Invocations {
			counts[inv.Status]++
		}

		status := "ok"
		if !plugin.OK() {
			status = "failed"
		} else {
			loaded++
		}

		table.Append([]string{
			plugin.File,
			plugin.Version,
			fmt.Sprintf("%d", counts[m.InvocationCalled]),
			fmt.Sprintf("%d", counts[m.InvocationSkipped]),
			fmt.Sprintf("%d", counts[m.InvocationFailed]),
			status,
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Plugins %d", len(report.Plugins)),
		"", "", "", "",
		fmt.Sprintf("%d ok", loaded),
	})

	table.Render()

	return tableBuffer.String()
}

// DisplayError prints err to the error stream.
func (s *SimpleUI) DisplayError(_ context.Context, err error) {
	if err == nil {
		return
	}

	_, _ = fmt.Fprintln(s.cmd.ErrOrStderr(), errorStyle.Render("Error:")+" "+err.Error())
}

// Confirm reads one line from the command's input.
func (s *SimpleUI) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if err := s.printf("%s [y/N] ", question); err != nil {
		return false, err
	}

	line, err := bufio.NewReader(s.cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(line))

	return answer == "y" || answer == "yes", nil
}

// Pause is a no-op without a terminal.
func (s *SimpleUI) Pause(ctx context.Context) error {
	return ctx.Err()
}

func (s *SimpleUI) headline(text string) error {
	return s.printf("%s\n", headlineStyle.Render(text))
}

func (s *SimpleUI) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
	return err
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}

	return hash
}
