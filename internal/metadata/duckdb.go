package metadata

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS raw_metadata (
	srcid    VARCHAR PRIMARY KEY,
	building VARCHAR NOT NULL,
	metadata VARCHAR NOT NULL
);
CREATE TABLE IF NOT EXISTS labeled_metadata (
	srcid        VARCHAR PRIMARY KEY,
	building     VARCHAR NOT NULL,
	tagsets      VARCHAR NOT NULL,
	point_tagset VARCHAR NOT NULL DEFAULT '',
	fullparsing  VARCHAR NOT NULL DEFAULT '{}'
);
`

// DuckStore is a Store backed by two DuckDB tables holding JSON text columns.
type DuckStore struct {
	db *sql.DB
}

// NewDuckStore creates the schema if needed.
func NewDuckStore(db *sql.DB) (*DuckStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create metadata schema: %w", err)
	}
	return &DuckStore{db: db}, nil
}

func (s *DuckStore) PutRaw(ctx context.Context, raw RawMetadata) error {
	metadataJSON, err := json.Marshal(raw.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata for %s: %w", raw.SrcID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO raw_metadata (srcid, building, metadata) VALUES ($1, $2, $3)`,
		raw.SrcID, raw.Building, string(metadataJSON))
	if err != nil {
		return fmt.Errorf("failed to insert raw metadata %s: %w", raw.SrcID, err)
	}
	return nil
}

func (s *DuckStore) PutLabel(ctx context.Context, label LabeledMetadata) error {
	tagsetsJSON, err := json.Marshal(label.Tagsets)
	if err != nil {
		return fmt.Errorf("failed to marshal tagsets for %s: %w", label.SrcID, err)
	}
	fullParsing := label.FullParsing
	if fullParsing == nil {
		fullParsing = map[string][]CharLabel{}
	}
	parsingJSON, err := json.Marshal(fullParsing)
	if err != nil {
		return fmt.Errorf("failed to marshal full parsing for %s: %w", label.SrcID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO labeled_metadata (srcid, building, tagsets, point_tagset, fullparsing)
		VALUES ($1, $2, $3, $4, $5)`,
		label.SrcID, label.Building, string(tagsetsJSON), label.PointTagset, string(parsingJSON))
	if err != nil {
		return fmt.Errorf("failed to insert label %s: %w", label.SrcID, err)
	}
	return nil
}

func (s *DuckStore) RawBySrcID(ctx context.Context, srcid string) (*RawMetadata, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT srcid, building, metadata FROM raw_metadata WHERE srcid = $1`, srcid)

	raw, err := scanRaw(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query raw metadata %s: %w", srcid, err)
	}
	return raw, nil
}

func (s *DuckStore) RawByBuilding(ctx context.Context, building string) ([]RawMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT srcid, building, metadata
		FROM raw_metadata
		WHERE building = $1
		ORDER BY srcid`, building)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw metadata: %w", err)
	}
	defer rows.Close()

	var raws []RawMetadata
	for rows.Next() {
		raw, err := scanRaw(rows)
		if err != nil {
			return nil, err
		}
		raws = append(raws, *raw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return raws, nil
}

func (s *DuckStore) LabelBySrcID(ctx context.Context, srcid string) (*LabeledMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT srcid, building, tagsets, point_tagset, fullparsing
		FROM labeled_metadata
		WHERE srcid = $1`, srcid)

	label, err := scanLabel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query label %s: %w", srcid, err)
	}
	return label, nil
}

func (s *DuckStore) LabelsByBuilding(ctx context.Context, building string) ([]LabeledMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT srcid, building, tagsets, point_tagset, fullparsing
		FROM labeled_metadata
		WHERE building = $1
		ORDER BY srcid`, building)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var labels []LabeledMetadata
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, *label)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return labels, nil
}

// BuildingStats counts raw and labeled records of building.
func (s *DuckStore) BuildingStats(ctx context.Context, building string) (BuildingStats, error) {
	stats := BuildingStats{Building: building}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM raw_metadata WHERE building = $1) AS raw_count,
			(SELECT COUNT(*) FROM labeled_metadata WHERE building = $1) AS labeled_count
	`, building).Scan(&stats.Raw, &stats.Labeled)
	if err != nil {
		return stats, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// Buildings lists every building that has raw metadata.
func (s *DuckStore) Buildings(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT building FROM raw_metadata ORDER BY building`)
	if err != nil {
		return nil, fmt.Errorf("failed to list buildings: %w", err)
	}
	defer rows.Close()

	var buildings []string
	for rows.Next() {
		var building string
		if err := rows.Scan(&building); err != nil {
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		buildings = append(buildings, building)
	}
	return buildings, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRaw(row scanner) (*RawMetadata, error) {
	var (
		raw          RawMetadata
		metadataJSON string
	)
	if err := row.Scan(&raw.SrcID, &raw.Building, &metadataJSON); err != nil {
		return nil, err
	}

	metadata, err := decodeMetadata(metadataJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", raw.SrcID, err)
	}
	raw.Metadata = metadata
	return &raw, nil
}

func scanLabel(row scanner) (*LabeledMetadata, error) {
	var (
		label       LabeledMetadata
		tagsetsJSON string
		parsingJSON string
	)
	if err := row.Scan(&label.SrcID, &label.Building, &tagsetsJSON, &label.PointTagset, &parsingJSON); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsetsJSON), &label.Tagsets); err != nil {
		return nil, fmt.Errorf("failed to decode tagsets for %s: %w", label.SrcID, err)
	}
	if err := json.Unmarshal([]byte(parsingJSON), &label.FullParsing); err != nil {
		return nil, fmt.Errorf("failed to decode full parsing for %s: %w", label.SrcID, err)
	}
	return &label, nil
}

// decodeMetadata flattens a JSON object into strings. Null values are
// dropped so that an absent field and a null field read the same; numbers
// keep their literal form.
func decodeMetadata(text string) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			metadata[key] = v
		case json.Number:
			metadata[key] = v.String()
		default:
			metadata[key] = fmt.Sprint(v)
		}
	}
	return metadata, nil
}
