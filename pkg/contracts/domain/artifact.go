package domain

import (
	"time"
)

// PipelineArtifact bundles everything a fitted pipeline learned from a
// training set: the category mappings and the imputation statistics, plus
// provenance. Loading an artifact and running a transform with its tables
// reproduces the training-time preprocessing exactly.
type PipelineArtifact struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	Target      string          `json:"target,omitempty"`
	SourceFile  string          `json:"source_file,omitempty"`
	RowCount    int             `json:"row_count"`
	ColumnCount int             `json:"column_count"`
	// Sentinel and IndicatorSuffix record the fit-time configuration so a
	// transform replays with the exact settings the tables were built under.
	Sentinel        string          `json:"sentinel,omitempty"`
	IndicatorSuffix string          `json:"indicator_suffix,omitempty"`
	Checksum        string          `json:"checksum"`
	Mappings        MappingTable    `json:"mappings"`
	Imputations     ImputationTable `json:"imputations"`
}

// ArtifactSummary is the listing view of an artifact, without the tables.
type ArtifactSummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Target      string    `json:"target,omitempty"`
	SourceFile  string    `json:"source_file,omitempty"`
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
	Mapped      int       `json:"mapped_columns"`
	Imputed     int       `json:"imputed_columns"`
}

// Summary derives the listing view from a full artifact.
func (a *PipelineArtifact) Summary() ArtifactSummary {
	return ArtifactSummary{
		ID:          a.ID,
		CreatedAt:   a.CreatedAt,
		Target:      a.Target,
		SourceFile:  a.SourceFile,
		RowCount:    a.RowCount,
		ColumnCount: a.ColumnCount,
		Mapped:      len(a.Mappings),
		Imputed:     len(a.Imputations),
	}
}
