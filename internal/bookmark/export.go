package bookmark

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ExportJSON writes the bookmarks as an indented JSON array.
func ExportJSON(w io.Writer, list []Bookmark) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if list == nil {
		list = []Bookmark{}
	}
	return enc.Encode(list)
}

// ImportJSON reads a JSON array of bookmarks. Invalid records are reported,
// duplicate ids keep the first occurrence.
func ImportJSON(r io.Reader) ([]Bookmark, error) {
	var raw []Bookmark
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode bookmarks: %w", err)
	}

	out := make([]Bookmark, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, b := range raw {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, ok := seen[b.ID]; ok {
			continue
		}
		seen[b.ID] = struct{}{}
		b.Tags = NormalizeTags(b.Tags)
		out = append(out, b)
	}
	return out, nil
}

var csvHeader = []string{"id", "title", "timestamp", "filepath", "description", "createdAt", "updatedAt", "tags"}

// ExportCSV writes one row per bookmark. Cells that a spreadsheet would
// evaluate as a formula are prefixed with a single quote.
func ExportCSV(w io.Writer, list []Bookmark) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range list {
		updated := ""
		if !b.UpdatedAt.IsZero() {
			updated = b.UpdatedAt.Format(time.RFC3339Nano)
		}
		row := []string{
			escapeCSVCell(b.ID),
			escapeCSVCell(b.Title),
			strconv.FormatFloat(b.Timestamp, 'f', -1, 64),
			escapeCSVCell(b.Filepath),
			escapeCSVCell(b.Description),
			b.CreatedAt.Format(time.RFC3339Nano),
			updated,
			escapeCSVCell(strings.Join(b.Tags, ";")),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func escapeCSVCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
