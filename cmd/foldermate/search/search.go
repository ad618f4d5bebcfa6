// Package searchcmder provides the search command for semantic search over
// file reports.
package searchcmder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/logger"
	"github.com/foldermate/foldermate/pkg/record"
	"github.com/foldermate/foldermate/pkg/utils"
	"github.com/foldermate/foldermate/pkg/workspace"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
)

type searchCommander struct {
	query string
	topK  int
	quiet bool

	debug     bool
	configDir string
	logger    *zap.Logger
}

const searchLongDesc string = `Search file reports semantically.

When the argument names a registered file, its nearest neighbors by report
similarity are returned. Otherwise the argument is embedded as free text and
matched against every stored report.

Use --quiet to output only paths, one per line, for piping.

Examples:
  foldermate search "tax receipts from 2023"
  foldermate search notes/todo.txt
  foldermate search "meeting notes" --top 20
  foldermate search "invoices" --quiet`

const searchShortDesc string = "Find files similar to a query or path"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query-or-path>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 0, "Number of results to return (default from config)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only paths, one per line (for piping)")

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ws, err := workspace.Open(ctx, workspace.Options{ConfigDir: c.configDir, Debug: c.debug}, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	topK := c.topK
	if topK <= 0 {
		topK = ws.Config.Search.TopK
	}

	results, err := c.search(ctx, ws, topK)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range results {
			fmt.Println(result.Record.Path)
		}
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Search results for:"),
		pathStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, result := range results {
		printResult(i+1, result)
	}

	return nil
}

// search runs path-based lookup when the query names a registered file and
// falls back to free-text embedding search otherwise.
func (c *searchCommander) search(ctx context.Context, ws *workspace.Workspace, topK int) ([]record.Similar, error) {
	byPath, err := ws.Store.FindSimilar(ctx, c.query, topK)
	if err == nil {
		return byPath, nil
	}

	var notFound record.ErrNotFound
	var invalidPath record.ErrInvalidPath
	if !errors.As(err, &notFound) && !errors.As(err, &invalidPath) {
		return nil, err
	}

	embedding, err := ws.Embedder.Embed(ctx, c.query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := ws.Vector.Query(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vector index: %w", err)
	}

	results := make([]record.Similar, 0, len(hits))
	for _, hit := range hits {
		rec, err := ws.Store.GetByID(ctx, hit.ID)
		if err != nil {
			// Index entry without a record; skip it.
			continue
		}
		results = append(results, record.Similar{Record: *rec, Score: hit.Score})
	}

	return results, nil
}

func printResult(rank int, result record.Similar) {
	preview := strings.ReplaceAll(result.Record.ReportText, "\n", " ")
	preview = utils.Truncate(strings.TrimSpace(preview), 96)

	fmt.Printf("  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("%.3f", result.Score)),
		pathStyle.Render(result.Record.Path),
	)
	if preview != "" {
		fmt.Printf("      %s\n", previewStyle.Render(preview))
	}
	fmt.Println()
}
