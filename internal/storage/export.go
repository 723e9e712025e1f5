package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Run     RunMetadata `json:"run"`
	Samples int         `json:"samples"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

func (s *Store) export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	table, err := s.LoadTrace(runID)
	if err != nil {
		return nil, err
	}
	return &ExportData{
		Run:     *meta,
		Samples: len(table.Rows),
		Columns: table.Header,
		Rows:    table.Rows,
	}, nil
}

// ExportJSON writes the metadata and full trace of a run to w.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	data, err := s.export(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSONFile is ExportJSON to a new file at path.
func (s *Store) ExportJSONFile(path, runID string) error {
	data, err := s.export(runID)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
