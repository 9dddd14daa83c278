package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/cloud"
	"github.com/harshpatel5940/reelmark/internal/ui"
)

var (
	exportFormat  string
	exportOutput  string
	importReplace bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export bookmarks as JSON or CSV",
	Long: `Write all bookmarks to stdout or a file.

Examples:
  reelmark export > bookmarks.json
  reelmark export --format csv -o bookmarks.csv`,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import bookmarks from a JSON export",
	Long: `Import bookmarks from a JSON export.

By default the file is merged into the local collection: bookmarks with the
same id keep whichever copy was modified last. --replace discards the local
collection instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json or csv")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")

	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Replace local bookmarks instead of merging")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	list, err := a.store.Load(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = ui.Out
	if exportOutput != "" {
		f, err := os.OpenFile(exportOutput, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	switch exportFormat {
	case "json":
		err = bookmark.ExportJSON(w, list)
	case "csv":
		err = bookmark.ExportCSV(w, list)
	default:
		return fmt.Errorf("unknown format %q (use json or csv)", exportFormat)
	}
	if err != nil {
		return err
	}

	if exportOutput != "" {
		size := "?"
		if info, err := os.Stat(exportOutput); err == nil {
			size = ui.FormatBytes(info.Size())
		}
		ui.PrintSuccess("Exported %d bookmarks to %s (%s)", len(list), exportOutput, size)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	imported, err := bookmark.ImportJSON(f)
	if err != nil {
		return err
	}

	if importReplace {
		if err := a.store.Replace(ctx, imported); err != nil {
			return err
		}
		ui.PrintSuccess("Replaced local bookmarks with %d imported", len(imported))
		return nil
	}

	local, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	res := cloud.Merge(local, imported)
	if err := a.store.Replace(ctx, res.Merged); err != nil {
		return err
	}
	ui.PrintSuccess("Imported: %d added, %d updated", res.Added, res.Updated)
	return nil
}
