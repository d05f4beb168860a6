package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

const (
	ArchiveContentType = "application/zip"
	MetadataFile       = "metadata.json"
)

// ArchiveMetadata describes the contents of a dataset archive
type ArchiveMetadata struct {
	ExportedAt time.Time      `json:"exportedAt"`
	Datasets   []string       `json:"datasets"`
	Counts     map[string]int `json:"counts"`
}

// WriteDatasetArchive writes one "<key>.json" entry per dataset plus a
// metadata.json entry with the row counts
func WriteDatasetArchive(w io.Writer, datasets []domain.Dataset, exportedAt time.Time) error {
	zw := zip.NewWriter(w)

	meta := ArchiveMetadata{
		ExportedAt: exportedAt.UTC(),
		Datasets:   make([]string, 0, len(datasets)),
		Counts:     make(map[string]int, len(datasets)),
	}
	for _, ds := range datasets {
		key := ds.Meta.Dataset
		if err := writeJSONEntry(zw, key+".json", exportedAt, ds); err != nil {
			return err
		}
		meta.Datasets = append(meta.Datasets, key)
		meta.Counts[key] = len(ds.Rows)
	}

	if err := writeJSONEntry(zw, MetadataFile, exportedAt, meta); err != nil {
		return err
	}
	return zw.Close()
}

func writeJSONEntry(zw *zip.Writer, name string, modified time.Time, v any) error {
	f, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return nil
}
