package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/taskclock/internal/config"
	"github.com/mrz1836/taskclock/internal/domain"
	"github.com/mrz1836/taskclock/internal/store"
	"github.com/mrz1836/taskclock/internal/timer"
	"github.com/mrz1836/taskclock/internal/tracker"
)

// AddListCommand adds the list subcommand to root.
func AddListCommand(root *cobra.Command, flags *GlobalFlags) {
	var storePath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the task list and completion statistics",
		Long: `Print the task list and completion statistics from the task document.

The document is read under the same file lock the server uses, so list is
safe to run while the server is up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), cmd.OutOrStdout(), flags.Output, storePath)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "task document path (default ~/.taskclock/tasks.json)")

	root.AddCommand(cmd)
}

func runList(ctx context.Context, w io.Writer, output, storePath string) error {
	logger := GetLogger()

	cfg, err := config.LoadWithOverrides(ctx, &config.Config{
		Store: config.StoreConfig{Path: storePath},
	})
	if err != nil {
		return err
	}

	fs, err := store.NewFileStore(cfg.Store.Path,
		store.WithLockTimeout(cfg.Store.LockTimeout),
		store.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	// No countdown is started here; the registry only serializes the read.
	reg := timer.New(fs, timer.WithLogger(logger))
	defer func() { _ = reg.Shutdown(ctx) }()

	view, err := tracker.New(reg, tracker.WithLogger(logger)).List(ctx)
	if err != nil {
		return err
	}

	if output == OutputJSON {
		return outputListJSON(w, view)
	}
	return outputListTable(w, view)
}

func outputListJSON(w io.Writer, view tracker.View) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(view); err != nil {
		return fmt.Errorf("failed to encode tasks to JSON: %w", err)
	}
	return nil
}

// listStyles holds lipgloss styles for the task table.
type listStyles struct {
	header  lipgloss.Style
	dim     lipgloss.Style
	done    lipgloss.Style
	timing  lipgloss.Style
	pending lipgloss.Style
}

func newListStyles() *listStyles {
	return &listStyles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}),
		done:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}),
		timing:  lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}),
		pending: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}),
	}
}

// Column widths are display cells; task titles are often CJK.
const (
	idWidth       = 4
	titleWidth    = 28
	statusWidth   = 14
	durationWidth = 9
)

func outputListTable(w io.Writer, view tracker.View) error {
	styles := newListStyles()

	if len(view.Tasks) == 0 {
		_, _ = fmt.Fprintln(w, styles.dim.Render("No tasks."))
		return nil
	}

	upper := cases.Upper(language.English)
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		cell(idWidth, upper.String("id")),
		cell(titleWidth, upper.String("title")),
		cell(statusWidth, upper.String("status")),
		cell(durationWidth, upper.String("duration")),
		upper.String("suggested"),
	)
	_, _ = fmt.Fprintln(w, styles.header.Render(header))

	for _, task := range view.Tasks {
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			cell(idWidth, strconv.Itoa(task.ID)),
			cell(titleWidth, truncate(task.Title, titleWidth)),
			cell(statusWidth, styles.status(task)),
			cell(durationWidth, minutes(task.Duration)),
			minutes(task.AIDuration),
		)
		_, _ = fmt.Fprintln(w, row)
	}

	summary := fmt.Sprintf("%d/%d completed (%d%%), %d pending, capacity %d",
		view.Completed, view.Total, view.CompletionRate, view.Pending, view.MaxTasks)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, styles.dim.Render(summary))
	return nil
}

// status renders the task state word, colored by state.
func (s *listStyles) status(task domain.Task) string {
	title := cases.Title(language.English)
	switch {
	case task.Completed:
		return s.done.Render(title.String("done"))
	case task.IsTiming:
		return s.timing.Render(title.String("timing") + " " + strconv.Itoa(task.TimeRemaining))
	default:
		return s.pending.Render(title.String("pending"))
	}
}

// cell pads text to width display cells plus a separator.
func cell(width int, text string) string {
	return lipgloss.NewStyle().Width(width).Render(text) + " "
}

// truncate shortens plain text to at most width display cells.
func truncate(text string, width int) string {
	if lipgloss.Width(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

func minutes(n int) string {
	if n <= 0 {
		return "-"
	}
	return strconv.Itoa(n) + "m"
}
