package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/tui"
	"github.com/harshpatel5940/reelmark/internal/ui"
)

var (
	addTitle       string
	addDescription string
	addTags        []string
	listFile       string
	listJSON       bool
	relocateByName bool
	editTitle      string
	editPosition   string
	editTags       []string
)

var addCmd = &cobra.Command{
	Use:   "add <media-file> <position>",
	Short: "Bookmark a position in a media file",
	Long: `Add a bookmark at a position in a media file.

The position is either seconds (90, 90.5) or a clock value (1:30, 1:02:03).

Examples:
  reelmark add ~/Movies/film.mkv 1:23:45 --title "Best scene"
  reelmark add ep01.mkv 90 --tag intro --tag skip`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List bookmarks",
	RunE:    runList,
}

var removeCmd = &cobra.Command{
	Use:     "remove [id...]",
	Aliases: []string{"rm"},
	Short:   "Remove bookmarks",
	Long: `Remove bookmarks by id (a unique prefix is enough).

Without arguments an interactive picker is shown.`,
	RunE: runRemove,
}

var relocateCmd = &cobra.Command{
	Use:   "relocate <old-path> <new-path>",
	Short: "Point bookmarks at a media file that moved",
	Long: `Move bookmarks from one media path to another.

With --by-name, only the new path is given and every bookmark whose file no
longer exists but has the same file name is moved.

Examples:
  reelmark relocate /old/film.mkv /new/film.mkv
  reelmark relocate --by-name /new/film.mkv`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRelocate,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a bookmark's title, position or tags",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(relocateCmd)

	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Bookmark title (defaults to the position)")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Longer description")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tag, may be repeated")

	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	editCmd.Flags().StringVar(&editPosition, "at", "", "New position")
	editCmd.Flags().StringSliceVar(&editTags, "tag", nil, "Replace tags, may be repeated")

	listCmd.Flags().StringVarP(&listFile, "file", "f", "", "Only bookmarks for this media file")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print as JSON")

	relocateCmd.Flags().BoolVar(&relocateByName, "by-name", false, "Match missing files by file name")
}

// parsePosition accepts seconds or [h:]mm:ss.
func parsePosition(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		return v, bookmark.ValidateTimestamp(v)
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("invalid position %q: minutes and seconds must be below 60", s)
		}
		total = total*60 + v
	}
	return total, bookmark.ValidateTimestamp(total)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	position, err := parsePosition(args[1])
	if err != nil {
		return err
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	title := addTitle
	if title == "" {
		title = bookmark.FormatTimestamp(position)
	}
	b := bookmark.New(title, position, path, now())
	b.Description = addDescription
	b.Tags = bookmark.NormalizeTags(addTags)

	list, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	list, err = bookmark.Add(list, b)
	if err != nil {
		return err
	}
	if err := a.store.Replace(ctx, list); err != nil {
		return err
	}

	ui.PrintSuccess("Bookmarked %s at %s", filepath.Base(path), bookmark.FormatTimestamp(position))
	ui.PrintVerbose("id %s", b.ID)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
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
	id, err := resolveID(list, args[0])
	if err != nil {
		return err
	}

	var p bookmark.Patch
	if cmd.Flags().Changed("title") {
		p.Title = &editTitle
	}
	if editPosition != "" {
		position, err := parsePosition(editPosition)
		if err != nil {
			return err
		}
		p.Timestamp = &position
	}
	if cmd.Flags().Changed("tag") {
		p.Tags = append([]string{}, editTags...)
	}

	list, err = bookmark.Update(list, id, p, now())
	if err != nil {
		return err
	}
	if err := a.store.Replace(ctx, list); err != nil {
		return err
	}
	ui.PrintSuccess("Updated %s", shortID(id))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
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
	if listFile != "" {
		path, err := filepath.Abs(listFile)
		if err != nil {
			return err
		}
		list = bookmark.ForFile(list, path)
	}

	if listJSON {
		return bookmark.ExportJSON(ui.Out, list)
	}
	if len(list) == 0 {
		ui.PrintInfo("No bookmarks yet")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, b := range list {
		rows = append(rows, []string{
			shortID(b.ID),
			bookmark.FormatTimestamp(b.Timestamp),
			b.Title,
			ui.Truncate(b.Filepath, 50),
			strings.Join(b.Tags, ","),
		})
	}
	ui.PrintTable([]string{"ID", "AT", "TITLE", "FILE", "TAGS"}, rows)
	ui.PrintDim("%d bookmarks", len(list))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
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

	var ids []string
	if len(args) == 0 {
		picked, err := tui.PickBookmarks("Select bookmarks to remove", list)
		if err != nil {
			return err
		}
		for _, b := range picked {
			ids = append(ids, b.ID)
		}
	} else {
		for _, arg := range args {
			id, err := resolveID(list, arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ui.PrintInfo("Nothing removed")
		return nil
	}

	for _, id := range ids {
		list, _ = bookmark.Remove(list, id)
	}
	if err := a.store.Replace(ctx, list); err != nil {
		return err
	}
	ui.PrintSuccess("Removed %d bookmarks", len(ids))
	return nil
}

func runRelocate(cmd *cobra.Command, args []string) error {
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

	var moved int
	if relocateByName {
		if len(args) != 1 {
			return fmt.Errorf("--by-name takes exactly one path")
		}
		newPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		list, moved = bookmark.RelocateByName(list, newPath, fileExists, now())
	} else {
		if len(args) != 2 {
			return fmt.Errorf("relocate needs the old and the new path")
		}
		oldPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		newPath, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		list, moved = bookmark.Relocate(list, oldPath, newPath, now())
	}

	if moved == 0 {
		ui.PrintWarning("No bookmarks matched")
		return nil
	}
	if err := a.store.Replace(ctx, list); err != nil {
		return err
	}
	ui.PrintSuccess("Relocated %d bookmarks", moved)
	return nil
}

// resolveID accepts a full id or a unique prefix of one.
func resolveID(list []bookmark.Bookmark, arg string) (string, error) {
	var match string
	for _, b := range list {
		if b.ID == arg {
			return b.ID, nil
		}
		if strings.HasPrefix(b.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", arg)
			}
			match = b.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no bookmark with id %q", arg)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
