package monitor

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
)

// CSVHeader is the column layout of a metrics file.
var CSVHeader = []string{"time", "cpu_util", "ram_util", "execution_time", "avg_cpu_util", "avg_ram_util"}

// BlobStore is where metrics files are written.
type BlobStore interface {
	PutObject(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error)
}

// ObjectName is the metrics file name for one run.
func ObjectName(name string, run int) string {
	return fmt.Sprintf("metrics_monitor_%s_%d.csv", name, run)
}

// EncodeCSV writes the record as a metrics table. The first row carries the
// run aggregates; later rows leave those columns blank. Times are in seconds.
func EncodeCSV(w io.Writer, rec RunRecord) error {
	exec, err := rec.Samples.ExecutionTime()
	if err != nil {
		return err
	}
	avgCPU, _ := rec.Samples.AvgCPU()
	avgRAM, _ := rec.Samples.AvgRAM()

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, s := range rec.Samples {
		row := []string{formatFloat(s.Time.Seconds()), formatFloat(s.CPU), formatFloat(s.RAM), "", "", ""}
		if i == 0 {
			row[3] = formatFloat(exec.Seconds())
			row[4] = formatFloat(avgCPU)
			row[5] = formatFloat(avgRAM)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSVWriter stores one metrics file per run in a BlobStore.
type CSVWriter struct {
	Store  BlobStore
	Prefix string
}

// WriteRun implements RecordWriter.
func (w CSVWriter) WriteRun(ctx context.Context, rec RunRecord) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, rec); err != nil {
		return fmt.Errorf("encode metrics for run %d: %w", rec.Run, err)
	}
	obj := path.Join(w.Prefix, ObjectName(rec.Name, rec.Run))
	if _, err := w.Store.PutObject(ctx, obj, "text/csv", &buf); err != nil {
		return fmt.Errorf("store %s: %w", obj, err)
	}
	return nil
}
