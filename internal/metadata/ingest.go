package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// IngestStats reports how many rows an ingest call wrote.
type IngestStats struct {
	Raw    int64
	Labels int64
}

// Ingest loads newline-delimited JSON dumps into the store tables. Either
// path may be empty. Raw lines look like
//
//	{"srcid": "...", "building": "...", "metadata": {"BACnetName": "...", ...}}
//
// and label lines like
//
//	{"srcid": "...", "building": "...", "tagsets": [...], "point_tagset": "...", "fullparsing": {...}}
func Ingest(ctx context.Context, db *sql.DB, rawPath, labelPath string) (IngestStats, error) {
	var stats IngestStats

	if _, err := NewDuckStore(db); err != nil {
		return stats, err
	}

	if rawPath != "" {
		query := fmt.Sprintf(`
			INSERT OR REPLACE INTO raw_metadata
			SELECT
				CAST(srcid AS VARCHAR),
				CAST(building AS VARCHAR),
				COALESCE(CAST(metadata AS VARCHAR), '{}')
			FROM read_json('%s',
				format = 'newline_delimited',
				columns = {srcid: 'VARCHAR', building: 'VARCHAR', metadata: 'JSON'}
			)
			WHERE srcid IS NOT NULL AND building IS NOT NULL
		`, quotePath(rawPath))
		res, err := db.ExecContext(ctx, query)
		if err != nil {
			return stats, fmt.Errorf("failed to ingest raw metadata: %w", err)
		}
		stats.Raw, _ = res.RowsAffected()
	}

	if labelPath != "" {
		query := fmt.Sprintf(`
			INSERT OR REPLACE INTO labeled_metadata
			SELECT
				CAST(srcid AS VARCHAR),
				CAST(building AS VARCHAR),
				COALESCE(CAST(to_json(tagsets) AS VARCHAR), '[]'),
				COALESCE(point_tagset, ''),
				COALESCE(CAST(fullparsing AS VARCHAR), '{}')
			FROM read_json('%s',
				format = 'newline_delimited',
				columns = {srcid: 'VARCHAR', building: 'VARCHAR', tagsets: 'VARCHAR[]', point_tagset: 'VARCHAR', fullparsing: 'JSON'}
			)
			WHERE srcid IS NOT NULL AND building IS NOT NULL
		`, quotePath(labelPath))
		res, err := db.ExecContext(ctx, query)
		if err != nil {
			return stats, fmt.Errorf("failed to ingest labels: %w", err)
		}
		stats.Labels, _ = res.RowsAffected()
	}

	return stats, nil
}

func quotePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
