package nespreso

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

// gridServer is a test double for the grid endpoint. It records decoded
// payloads and fails requests for dates listed in failDates.
type gridServer struct {
	*httptest.Server
	requests  []map[string]any
	failDates map[string]bool
	payload   []byte
}

func newGridServer(t *testing.T) *gridServer {
	gs := &gridServer{
		failDates: map[string]bool{},
		payload:   []byte("CDF\x01 synthetic grid payload"),
	}
	gs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gs.requests = append(gs.requests, req)
		if date, _ := req["date"].(string); gs.failDates[date] {
			http.Error(w, "no data for "+date, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/x-netcdf")
		_, _ = w.Write(gs.payload)
	}))
	t.Cleanup(gs.Close)
	return gs
}

func TestQueryGrid(t *testing.T) {
	gs := newGridServer(t)
	outDir := filepath.Join(t.TempDir(), "grid")
	c := newTestClient(t, &Config{GridURL: gs.URL, GridOutputDir: outDir})

	bbox := CommonBBoxRegions()["western_gulf"]
	res, err := c.QueryGrid(context.Background(), "2016-12-01", &GridOptions{
		BBox:       &bbox,
		Resolution: 0.25,
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, res.Date, qt.Equals, "2016-12-01")
	qt.Assert(t, res.SizeBytes, qt.Equals, int64(len(gs.payload)))
	qt.Assert(t, res.Filename, qt.Equals,
		filepath.Join(outDir, "nespreso_grid_2016-12-01_bbox_-97.00_20.00_-90.00_29.00_res_0.250.nc"))

	info, err := os.Stat(res.Filename)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, info.Size(), qt.Equals, res.SizeBytes)

	qt.Assert(t, gs.requests, qt.HasLen, 1)
	qt.Assert(t, gs.requests[0]["date"], qt.Equals, "2016-12-01")
	qt.Assert(t, gs.requests[0]["bbox"], qt.DeepEquals, []any{-97.0, 20.0, -90.0, 29.0})
	qt.Assert(t, gs.requests[0]["resolution"], qt.Equals, 0.25)
}

func TestQueryGridFullGrid(t *testing.T) {
	gs := newGridServer(t)
	outDir := filepath.Join(t.TempDir(), "grid")
	c := newTestClient(t, &Config{GridURL: gs.URL, GridOutputDir: outDir})

	res, err := c.QueryGrid(context.Background(), "2016-12-01", nil)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, res.Filename, qt.Equals, filepath.Join(outDir, "nespreso_grid_2016-12-01.nc"))

	// bbox and resolution must be omitted from the payload entirely.
	_, hasBBox := gs.requests[0]["bbox"]
	qt.Assert(t, hasBBox, qt.IsFalse)
	_, hasRes := gs.requests[0]["resolution"]
	qt.Assert(t, hasRes, qt.IsFalse)
}

func TestQueryGridValidation(t *testing.T) {
	gs := newGridServer(t)
	c := newTestClient(t, &Config{GridURL: gs.URL, GridOutputDir: t.TempDir()})
	ctx := context.Background()

	_, err := c.QueryGrid(ctx, "12/01/2016", nil)
	qt.Assert(t, err, qt.ErrorIs, ErrInvalidDate)

	_, err = c.QueryGrid(ctx, "2016-12-01", &GridOptions{
		BBox: &BoundingBox{LonMin: -90, LatMin: 20, LonMax: -97, LatMax: 29},
	})
	qt.Assert(t, err, qt.ErrorIs, ErrInvalidBBox)

	_, err = c.QueryGrid(ctx, "2016-12-01", &GridOptions{
		BBox: &BoundingBox{LonMin: -200, LatMin: 20, LonMax: -90, LatMax: 29},
	})
	qt.Assert(t, err, qt.ErrorIs, ErrInvalidBBox)

	_, err = c.QueryGrid(ctx, "2016-12-01", &GridOptions{
		BBox: &BoundingBox{LonMin: -97, LatMin: 95, LonMax: -90, LatMax: 99},
	})
	qt.Assert(t, err, qt.ErrorIs, ErrInvalidBBox)

	_, err = c.QueryGrid(ctx, "2016-12-01", &GridOptions{Resolution: -0.5})
	qt.Assert(t, err, qt.ErrorIs, ErrInvalidResolution)

	// None of the invalid queries may reach the server.
	qt.Assert(t, gs.requests, qt.HasLen, 0)
}

func TestQueryGridOutputDirFailure(t *testing.T) {
	gs := newGridServer(t)

	// A regular file where the output directory should be makes the
	// directory creation fail.
	blocker := filepath.Join(t.TempDir(), "grid")
	qt.Assert(t, os.WriteFile(blocker, []byte("x"), 0o644), qt.IsNil)

	c := newTestClient(t, &Config{GridURL: gs.URL, GridOutputDir: filepath.Join(blocker, "out")})
	_, err := c.QueryGrid(context.Background(), "2016-12-01", nil)
	qt.Assert(t, err, qt.ErrorIs, ErrCreateOutputDir)
	qt.Assert(t, IsKind(err, KindFilesystem), qt.IsTrue)

	// The query fails before anything is sent.
	qt.Assert(t, gs.requests, qt.HasLen, 0)
}

func TestQueryGridServerError(t *testing.T) {
	gs := newGridServer(t)
	gs.failDates["2016-12-01"] = true
	c := newTestClient(t, &Config{GridURL: gs.URL, GridOutputDir: t.TempDir()})

	_, err := c.QueryGrid(context.Background(), "2016-12-01", nil)
	qt.Assert(t, err, qt.ErrorIs, ErrUnexpectedStatus)
	var cerr *Error
	qt.Assert(t, err, qt.ErrorAs, &cerr)
	qt.Assert(t, cerr.StatusCode, qt.Equals, http.StatusNotFound)
}

func TestQueryMultipleDates(t *testing.T) {
	gs := newGridServer(t)
	gs.failDates["2016-12-02"] = true
	c := newTestClient(t, &Config{GridURL: gs.URL, GridOutputDir: t.TempDir()})

	dates := []string{"2016-12-01", "2016-12-02", "2016-12-03"}
	summary := c.QueryMultipleDates(context.Background(), dates, nil)

	qt.Assert(t, summary.Total, qt.Equals, 3)
	qt.Assert(t, summary.Successful, qt.Equals, 2)
	qt.Assert(t, summary.Failed, qt.Equals, 1)
	qt.Assert(t, summary.Results, qt.HasLen, 3)

	// The failing date does not stop the following ones: all three dates
	// reached the server, in order.
	qt.Assert(t, gs.requests, qt.HasLen, 3)
	for i, date := range dates {
		qt.Assert(t, summary.Results[i].Date, qt.Equals, date)
	}
	qt.Assert(t, summary.Results[0].Err, qt.IsNil)
	qt.Assert(t, summary.Results[1].Err, qt.ErrorIs, ErrUnexpectedStatus)
	qt.Assert(t, summary.Results[1].Filename, qt.Equals, "")
	qt.Assert(t, summary.Results[2].Err, qt.IsNil)

	for _, entry := range []GridEntry{summary.Results[0], summary.Results[2]} {
		info, err := os.Stat(entry.Filename)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, info.Size(), qt.Equals, entry.SizeBytes)
	}
}
