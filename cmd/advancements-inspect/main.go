package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/Amund211/advancements/internal/adapters/catalog"
	"github.com/Amund211/advancements/internal/adapters/completionstore"
	"github.com/Amund211/advancements/internal/config"
	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/leaderboard"
	"github.com/Amund211/advancements/internal/strutils"
	"github.com/Amund211/advancements/internal/tracker"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFAA00"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#00AAAA")).Padding(0, 1)
)

func main() {
	cliApp := &cli.App{
		Name:  "advancements-inspect",
		Usage: "inspect persisted advancement completion counts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   config.DEFAULT_DATA_DIR,
				EnvVars: []string{"ADVANCEMENTS_DATA_DIR"},
				Usage:   "directory containing " + completionstore.DATA_FILE_NAME,
			},
			&cli.StringFlag{
				Name:    "catalog",
				EnvVars: []string{"ADVANCEMENTS_CATALOG"},
				Usage:   "milestone catalog file, the embedded vanilla catalog when empty",
			},
			&cli.StringFlag{
				Name:    "format",
				Value:   string(domain.PercentFormatDecimal),
				EnvVars: []string{"ADVANCEMENTS_PERCENT_FORMAT"},
				Usage:   "percent format, decimal or integer",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "leaderboard",
				Usage: "print the ranked leaderboard",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "capacity",
						Value: leaderboard.DefaultCapacity,
						Usage: "number of rows to print",
					},
				},
				Action: func(c *cli.Context) error {
					return printLeaderboard(c.Context, os.Stdout, inspectOptionsFromContext(c), c.Int("capacity"))
				},
			},
			{
				Name:      "sidebar",
				Usage:     "preview the sidebar as seen by a player",
				ArgsUsage: "<uuid>",
				Action: func(c *cli.Context) error {
					viewerID, err := strutils.NormalizeUUID(c.Args().First())
					if err != nil {
						return cli.Exit(fmt.Sprintf("invalid viewer uuid: %s", err.Error()), 2)
					}
					return printSidebar(c.Context, os.Stdout, inspectOptionsFromContext(c), viewerID)
				},
			},
			{
				Name:  "catalog",
				Usage: "validate the catalog and print how many milestones count",
				Action: func(c *cli.Context) error {
					return printCatalog(os.Stdout, c.String("catalog"))
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type inspectOptions struct {
	dataDir     string
	catalogPath string
	format      string
}

func inspectOptionsFromContext(c *cli.Context) inspectOptions {
	return inspectOptions{
		dataDir:     c.String("data-dir"),
		catalogPath: c.String("catalog"),
		format:      c.String("format"),
	}
}

// loadTracker reads the data file strictly, a corrupt file is an error here
func loadTracker(ctx context.Context, options inspectOptions) (*tracker.Tracker, domain.PercentFormat, error) {
	format, err := domain.ParsePercentFormat(options.format)
	if err != nil {
		return nil, "", err
	}

	milestones, err := catalog.New(options.catalogPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load catalog: %w", err)
	}
	total := len(milestones.Valid(domain.HasDisplayCriterion))

	store := completionstore.NewFileStore(options.dataDir)
	if _, err := store.Load(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", store.Path(), err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	t := tracker.New(total, store, logger)
	t.Init(ctx)
	return t, format, nil
}

func printLeaderboard(ctx context.Context, w io.Writer, options inspectOptions, capacity int) error {
	t, format, err := loadTracker(ctx, options)
	if err != nil {
		return err
	}

	entries := leaderboard.Render(t.Snapshot(), t.Total(), "", capacity)

	rows := []string{
		headerStyle.Render(fmt.Sprintf("%4s  %-36s  %9s  %7s", "rank", "uuid", "completed", "percent")),
	}
	for _, entry := range entries {
		rows = append(rows, fmt.Sprintf(
			"%4d  %-36s  %9s  %6s%%",
			entry.Rank,
			entry.PlayerID,
			fmt.Sprintf("%d/%d", entry.CompletedCount, t.Total()),
			format.Format(entry.Percent),
		))
	}

	title := titleStyle.Render(fmt.Sprintf("%d players, %d milestones", len(t.Records()), t.Total()))
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, title, boxStyle.Render(strings.Join(rows, "\n"))))
	return nil
}

func printSidebar(ctx context.Context, w io.Writer, options inspectOptions, viewerID string) error {
	t, format, err := loadTracker(ctx, options)
	if err != nil {
		return err
	}

	entries := leaderboard.Render(t.Snapshot(), t.Total(), viewerID, leaderboard.DefaultCapacity)
	lines := leaderboard.Lines(entries, strutils.ShortUUID, format)

	rendered := []string{renderLegacy(leaderboard.Title)}
	for _, line := range lines {
		rendered = append(rendered, renderLegacy(line.Text))
	}

	fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, rendered...)))
	return nil
}

func printCatalog(w io.Writer, catalogPath string) error {
	milestones, err := catalog.New(catalogPath)
	if err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	source := catalogPath
	if source == "" {
		source = "embedded vanilla catalog"
	}

	fmt.Fprintln(w, boxStyle.Render(strings.Join([]string{
		headerStyle.Render(source),
		fmt.Sprintf("milestones: %d", len(milestones.All())),
		fmt.Sprintf("counted:    %d", len(milestones.Valid(domain.HasDisplayCriterion))),
	}, "\n")))
	return nil
}
