package retrofit

import (
	"fmt"
	"path"
	"time"
)

// ManifestVersion is the current manifest layout version.
const ManifestVersion = 1

const (
	manifestName = "MANIFEST.json"
	currentName  = "CURRENT"
)

// Manifest describes one committed checkpoint run.
type Manifest struct {
	Version     int           `json:"version"`
	RunID       string        `json:"run_id"`
	Created     time.Time     `json:"created"`
	NumShards   int           `json:"num_shards"`
	Iterations  int           `json:"iterations"`
	Dim         int           `json:"dim"`
	Rows        int           `json:"rows"`
	Compression string        `json:"compression"`
	Shards      []ShardRecord `json:"shards"`
}

// ShardRecord describes one shard blob.
type ShardRecord struct {
	Index    int    `json:"index"`
	Blob     string `json:"blob"`
	Rows     int    `json:"rows"`
	Checksum uint32 `json:"checksum"`
	Size     int64  `json:"size"`
}

// TotalSize returns the combined size of all shard blobs.
func (m *Manifest) TotalSize() int64 {
	var n int64
	for _, s := range m.Shards {
		n += s.Size
	}
	return n
}

func shardBlobName(prefix, runID string, i, n int) string {
	return path.Join(prefix, runID, fmt.Sprintf("shard-%04d-of-%04d.rows", i, n))
}

func manifestPath(prefix, runID string) string {
	return path.Join(prefix, runID, manifestName)
}

func currentPath(prefix string) string {
	return path.Join(prefix, currentName)
}
