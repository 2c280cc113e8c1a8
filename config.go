package nespreso

import (
	"path/filepath"
	"time"
)

// Defaults for the per-call configuration surface.
const (
	// DefaultProfileURL is the profile endpoint used when none is configured.
	DefaultProfileURL = "http://localhost:5000/v1/profile"
	// DefaultGridURL is the grid endpoint used when none is configured.
	DefaultGridURL = "https://ozavala.coaps.fsu.edu/nespreso_grid"
	// DefaultProfileTimeout bounds a single profile request.
	DefaultProfileTimeout = 30 * time.Minute
	// DefaultGridTimeout bounds a single grid request.
	DefaultGridTimeout = 10 * time.Minute
	// DefaultConnectTimeout bounds connection establishment.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultBatchSize is the maximum number of points sent per profile request.
	DefaultBatchSize = 1000
)

// DefaultGridOutputDir is where grid query results are saved unless the
// client is configured otherwise.
var DefaultGridOutputDir = filepath.Join("uses", "grid")

// Config holds the client configuration. All fields are optional; zero
// values fall back to the package defaults above.
type Config struct {
	// ProfileURL is the endpoint for point-wise profile predictions.
	ProfileURL string
	// GridURL is the endpoint for gridded field queries.
	GridURL string
	// ProfileTimeout is the total time allowed for one profile request.
	ProfileTimeout time.Duration
	// GridTimeout is the total time allowed for one grid request.
	GridTimeout time.Duration
	// ConnectTimeout is the time allowed for establishing a connection.
	ConnectTimeout time.Duration
	// GridOutputDir is the directory grid results are saved into. It is
	// created on first use if it does not exist.
	GridOutputDir string
	// BatchSize is the default maximum batch size for
	// GetPredictionsBatch when its options do not set one.
	BatchSize int
	// Merger combines per-batch NetCDF files into a single output file.
	// It is optional: a nil Merger disables merging, and requesting a
	// merged output without one fails with ErrMergeUnavailable.
	Merger Merger
}
