// Package store persists the local bookmark collection. FileStore keeps it
// in a JSON file next to the player config; RedisStore keeps it in a single
// redis key for setups where several players share one collection.
package store

import (
	"bytes"
	"context"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
)

// Store loads and replaces the whole collection. Replace is all-or-nothing.
type Store interface {
	Load(ctx context.Context) ([]bookmark.Bookmark, error)
	Replace(ctx context.Context, list []bookmark.Bookmark) error
}

func encode(list []bookmark.Bookmark) ([]byte, error) {
	var buf bytes.Buffer
	if err := bookmark.ExportJSON(&buf, list); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) ([]bookmark.Bookmark, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []bookmark.Bookmark{}, nil
	}
	return bookmark.ImportJSON(bytes.NewReader(data))
}
