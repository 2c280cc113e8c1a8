package nespreso

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// BoundingBox delimits a geographic region in degrees.
type BoundingBox struct {
	LonMin float64
	LatMin float64
	LonMax float64
	LatMax float64
}

// Validate checks world-range bounds and axis ordering.
func (b *BoundingBox) Validate() error {
	if b.LonMin < -180 || b.LonMin > 180 || b.LonMax < -180 || b.LonMax > 180 {
		return ErrInvalidBBox.WithErr(fmt.Errorf("longitude out of [-180,180]: %v, %v", b.LonMin, b.LonMax))
	}
	if b.LatMin < -90 || b.LatMin > 90 || b.LatMax < -90 || b.LatMax > 90 {
		return ErrInvalidBBox.WithErr(fmt.Errorf("latitude out of [-90,90]: %v, %v", b.LatMin, b.LatMax))
	}
	if b.LonMin >= b.LonMax || b.LatMin >= b.LatMax {
		return ErrInvalidBBox.WithErr(fmt.Errorf("require lon_min < lon_max and lat_min < lat_max"))
	}
	return nil
}

// wire returns the [lon_min, lat_min, lon_max, lat_max] representation the
// grid endpoint expects.
func (b *BoundingBox) wire() []float64 {
	return []float64{b.LonMin, b.LatMin, b.LonMax, b.LatMax}
}

// GridOptions holds the optional parameters of a grid query.
type GridOptions struct {
	// BBox restricts the query to a region. Nil requests the full grid.
	BBox *BoundingBox
	// Resolution is the grid resolution in degrees. Zero leaves the
	// choice to the server.
	Resolution float64
}

// GridResult describes a saved grid query response.
type GridResult struct {
	Date      string
	Filename  string
	SizeBytes int64
}

type gridRequest struct {
	Date       string    `json:"date"`
	BBox       []float64 `json:"bbox,omitempty"`
	Resolution float64   `json:"resolution,omitempty"`
}

// QueryGrid requests the gridded field for one date and saves the NetCDF
// response under the configured grid output directory. It returns the
// saved path and byte size. HTTP failures surface as network errors with
// no retry.
func (c *Client) QueryGrid(ctx context.Context, date string, opts *GridOptions) (*GridResult, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, ErrInvalidDate.WithErr(err)
	}
	if opts == nil {
		opts = &GridOptions{}
	}
	greq := gridRequest{Date: date}
	if opts.BBox != nil {
		if err := opts.BBox.Validate(); err != nil {
			return nil, err
		}
		greq.BBox = opts.BBox.wire()
	}
	if opts.Resolution != 0 {
		if opts.Resolution < 0 {
			return nil, ErrInvalidResolution.WithErr(fmt.Errorf("got %v", opts.Resolution))
		}
		greq.Resolution = opts.Resolution
	}
	if err := os.MkdirAll(c.gridOutputDir, 0o755); err != nil {
		return nil, ErrCreateOutputDir.WithErr(err)
	}

	log.Debug().Str("date", date).Str("url", c.gridURL).Msg("querying grid")
	resp, err := c.postJSON(ctx, c.gridHTTP, c.gridURL, greq)
	if err != nil {
		return nil, err
	}
	body, err := readSuccess(resp)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(c.gridOutputDir, gridFilename(date, opts))
	if err := saveBody(path, body); err != nil {
		return nil, err
	}
	log.Info().Str("file", path).Int("bytes", len(body)).Msg("grid query successful")
	return &GridResult{Date: date, Filename: path, SizeBytes: int64(len(body))}, nil
}

// gridFilename derives the output name from the query parameters.
func gridFilename(date string, opts *GridOptions) string {
	name := "nespreso_grid_" + date
	if opts.BBox != nil {
		b := opts.BBox
		name += fmt.Sprintf("_bbox_%.2f_%.2f_%.2f_%.2f", b.LonMin, b.LatMin, b.LonMax, b.LatMax)
	}
	if opts.Resolution != 0 {
		name += fmt.Sprintf("_res_%.3f", opts.Resolution)
	}
	return name + ".nc"
}

// GridEntry is the per-date outcome of a multi-date grid query. Exactly one
// of Filename and Err is meaningful.
type GridEntry struct {
	Date      string
	Filename  string
	SizeBytes int64
	Err       error
}

// GridSummary aggregates the outcomes of a multi-date grid query.
type GridSummary struct {
	Total      int
	Successful int
	Failed     int
	Results    []GridEntry
}

// QueryMultipleDates runs QueryGrid once per date, sequentially and in
// order. Unlike batch profile requests it does not abort on failure: each
// date is an independent unit of work and failures are recorded per entry,
// so callers must inspect the summary to detect partial failure.
func (c *Client) QueryMultipleDates(ctx context.Context, dates []string, opts *GridOptions) *GridSummary {
	summary := &GridSummary{Total: len(dates), Results: make([]GridEntry, 0, len(dates))}
	for i, date := range dates {
		log.Debug().Msgf("[%d/%d] processing date %s", i+1, len(dates), date)
		res, err := c.QueryGrid(ctx, date, opts)
		if err != nil {
			summary.Failed++
			summary.Results = append(summary.Results, GridEntry{Date: date, Err: err})
			log.Warn().Err(err).Str("date", date).Msg("grid query failed")
			continue
		}
		summary.Successful++
		summary.Results = append(summary.Results, GridEntry{
			Date:      date,
			Filename:  res.Filename,
			SizeBytes: res.SizeBytes,
		})
	}
	log.Info().Msgf("grid summary: %d total, %d successful, %d failed",
		summary.Total, summary.Successful, summary.Failed)
	return summary
}
