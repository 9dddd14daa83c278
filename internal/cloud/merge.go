package cloud

import "github.com/harshpatel5940/reelmark/internal/bookmark"

// MergeResult is the outcome of combining a local collection with a remote one.
type MergeResult struct {
	Merged  []bookmark.Bookmark
	Added   int
	Updated int
	// Skipped holds the ids of remote records that failed validation.
	Skipped []string
}

// Merge combines local and remote bookmarks by id. Local bookmarks keep their
// order and win ties; a remote copy replaces the local one only when its
// modification time is strictly later at millisecond precision. Remote-only
// bookmarks are appended in remote order. Nothing local is ever removed.
// Remote records that fail validation are left out and listed in Skipped.
func Merge(local, remote []bookmark.Bookmark) MergeResult {
	merged := bookmark.CloneAll(local)
	index := make(map[string]int, len(merged)+len(remote))
	for i, b := range merged {
		index[b.ID] = i
	}

	var res MergeResult
	for _, r := range remote {
		if err := r.Validate(); err != nil {
			res.Skipped = append(res.Skipped, r.ID)
			continue
		}
		i, ok := index[r.ID]
		if !ok {
			index[r.ID] = len(merged)
			merged = append(merged, r.Clone())
			res.Added++
			continue
		}
		if r.ModifiedAt().UnixMilli() > merged[i].ModifiedAt().UnixMilli() {
			merged[i] = r.Clone()
			res.Updated++
		}
	}

	res.Merged = merged
	return res
}
