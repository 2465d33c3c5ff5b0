package runner

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gwillem/zkbot/pkg/robot"
)

// Sweep verdicts.
const (
	SweepOK    = "OK"
	SweepError = "ERROR"
)

// SweepResult is the verdict for one point of a zone sweep.
type SweepResult struct {
	N        int // 1-based
	Zone     string
	Point    robot.Point
	Status   string
	Note     string
	Duration time.Duration
	Time     time.Time
}

// Sweep moves to each point in turn as a one-step G00 program and records
// whether the run went through. A failed point does not stop the sweep.
// each, if set, sees every result as it is produced and may amend it,
// e.g. with an operator's verdict.
func (r *Runner) Sweep(zone string, points []robot.Point, delay robot.Seconds, each func(SweepResult) SweepResult) []SweepResult {
	results := make([]SweepResult, 0, len(points))
	for i, pt := range points {
		res := SweepResult{N: i + 1, Zone: zone, Point: pt, Time: time.Now()}
		out := r.Run(pt.Program("zone_test", delay))
		res.Duration = out.Duration()
		if out.OK() {
			res.Status, res.Note = SweepOK, "Move completed"
		} else {
			res.Status, res.Note = SweepError, out.Cause()
		}
		if each != nil {
			res = each(res)
		}
		results = append(results, res)
	}
	return results
}

// SweepCounts tallies OK and ERROR verdicts.
func SweepCounts(results []SweepResult) (ok, failed int) {
	for _, res := range results {
		if res.Status == SweepOK {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

// WriteSweepCSV writes results with a header row.
func WriteSweepCSV(w io.Writer, results []SweepResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"test_num", "timestamp", "zone", "x", "y", "z", "status", "duration_sec", "note"}); err != nil {
		return err
	}
	for _, res := range results {
		err := cw.Write([]string{
			strconv.Itoa(res.N),
			res.Time.Format("2006-01-02 15:04:05"),
			res.Zone,
			strconv.FormatFloat(res.Point.X, 'f', -1, 64),
			strconv.FormatFloat(res.Point.Y, 'f', -1, 64),
			strconv.FormatFloat(res.Point.Z, 'f', -1, 64),
			res.Status,
			fmt.Sprintf("%.3f", res.Duration.Seconds()),
			res.Note,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
