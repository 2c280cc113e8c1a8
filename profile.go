package nespreso

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// netcdfContentType is the content type the profile endpoint replies with.
const netcdfContentType = "application/x-netcdf"

// PointRequest holds the point coordinates and dates for which synthetic
// temperature/salinity profiles are requested. The three slices are
// parallel and must have the same non-zero length.
type PointRequest struct {
	Lat  []float64 `json:"lat"`
	Lon  []float64 `json:"lon"`
	Date []string  `json:"date"`
}

// Validate checks the parallel-slice invariant.
func (r *PointRequest) Validate() error {
	if r == nil || len(r.Lat) == 0 {
		return ErrEmptyInput
	}
	if len(r.Lat) != len(r.Lon) || len(r.Lat) != len(r.Date) {
		return ErrMismatchedInputs.WithErr(
			fmt.Errorf("got %d latitudes, %d longitudes, %d dates", len(r.Lat), len(r.Lon), len(r.Date)))
	}
	return nil
}

// slice returns the contiguous batch [start:end) of the request.
func (r *PointRequest) slice(start, end int) *PointRequest {
	return &PointRequest{
		Lat:  r.Lat[start:end],
		Lon:  r.Lon[start:end],
		Date: r.Date[start:end],
	}
}

// GetPredictions requests profiles for all points in req and writes the
// NetCDF response body to filename, returning filename. Input validation
// happens before any network activity; HTTP failures surface as network
// errors with no retry.
func (c *Client) GetPredictions(ctx context.Context, req *PointRequest, filename string) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if strings.HasSuffix(c.profileURL, "/predict") {
		log.Warn().Msg("the /predict endpoint is deprecated, use /v1/profile")
	}
	log.Debug().Int("points", len(req.Lat)).Str("url", c.profileURL).Msg("fetching predictions")

	resp, err := c.postJSON(ctx, c.profileHTTP, c.profileURL, req)
	if err != nil {
		return "", err
	}
	body, err := readSuccess(resp)
	if err != nil {
		return "", err
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, netcdfContentType) {
		return "", ErrUnexpectedContentType.WithErr(fmt.Errorf("got %q", ct))
	}
	if err := saveBody(filename, body); err != nil {
		return "", err
	}
	log.Debug().Str("file", filename).Int("bytes", len(body)).Msg("predictions saved")
	return filename, nil
}

// BatchOptions controls GetPredictionsBatch.
type BatchOptions struct {
	// BatchSize caps the number of points per request. Zero uses the
	// client's configured batch size.
	BatchSize int
	// FilenamePrefix names the per-batch files {prefix}_{index}.nc.
	// Defaults to "output".
	FilenamePrefix string
	// MergeOutput combines all batch files into a single NetCDF file
	// once every batch has succeeded.
	MergeOutput bool
	// MergedFilename names the merged output. Defaults to {prefix}.nc.
	MergedFilename string
}

// BatchResult reports the files produced by a batch run.
type BatchResult struct {
	// Files are the per-batch output files, in batch order. On failure it
	// lists the files of the batches that completed before the error.
	Files []string
	// MergedFile is set when the batch outputs were merged into one file.
	MergedFile string
}

// GetPredictionsBatch splits req into contiguous batches of at most the
// configured size and fetches them sequentially, writing batch i (1-based)
// to {prefix}_{i}.nc. The first batch failure aborts the remaining batches;
// the returned result still lists the files already produced.
//
// With opts.MergeOutput set and more than one batch file produced, the
// files are combined through the configured Merger. Batch files are left
// in place whether or not merging succeeds.
func (c *Client) GetPredictionsBatch(ctx context.Context, req *PointRequest, opts *BatchOptions) (*BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &BatchOptions{}
	}
	size := opts.BatchSize
	if size == 0 {
		size = c.batchSize
	}
	if size < 1 {
		return nil, ErrInvalidBatchSize.WithErr(fmt.Errorf("got %d", size))
	}
	prefix := opts.FilenamePrefix
	if prefix == "" {
		prefix = "output"
	}

	total := len(req.Lat)
	nBatches := (total + size - 1) / size
	log.Info().Msgf("processing %d points in %d batches of at most %d", total, nBatches, size)

	result := &BatchResult{}
	for i := 0; i < nBatches; i++ {
		start := i * size
		end := min(start+size, total)
		name := fmt.Sprintf("%s_%03d.nc", prefix, i+1)
		log.Debug().Msgf("batch %d/%d (points %d-%d of %d)", i+1, nBatches, start+1, end, total)
		if _, err := c.GetPredictions(ctx, req.slice(start, end), name); err != nil {
			return result, fmt.Errorf("batch %d of %d: %w", i+1, nBatches, err)
		}
		result.Files = append(result.Files, name)
	}

	if !opts.MergeOutput || len(result.Files) < 2 {
		return result, nil
	}
	if c.merger == nil {
		return result, ErrMergeUnavailable
	}
	merged := opts.MergedFilename
	if merged == "" {
		merged = prefix
		if !strings.HasSuffix(merged, ".nc") {
			merged += ".nc"
		}
	}
	log.Info().Msgf("merging %d batch files into %s", len(result.Files), merged)
	if err := c.merger.Merge(ctx, result.Files, merged); err != nil {
		return result, ErrMergeFailed.WithErr(err)
	}
	result.MergedFile = merged
	return result, nil
}
