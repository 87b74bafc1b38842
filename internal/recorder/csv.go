package recorder

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/vesaa/sysadvisor/internal/errors"
	"github.com/vesaa/sysadvisor/internal/models"
)

// Header is the first row of every performance CSV.
var Header = []string{
	"timestamp",
	"cpu_percent",
	"memory_percent",
	"memory_used_gb",
	"memory_total_gb",
	"top_cpu_process",
	"top_cpu_percent",
	"top_memory_process",
	"top_memory_percent",
}

const gib = 1024 * 1024 * 1024

// invalidPathChars may not appear in an output file name.
const invalidPathChars = `<>:"|?*`

// ValidatePath rejects blank paths and names with characters that are not
// portable across filesystems.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return apperrors.New(apperrors.ErrCodeValidation, "output filename is empty")
	}
	if i := strings.IndexAny(filepath.Base(path), invalidPathChars); i >= 0 {
		return apperrors.Newf(apperrors.ErrCodeValidation,
			"output filename %q contains invalid character %q", path, filepath.Base(path)[i])
	}
	return nil
}

// Row flattens r into CSV fields in Header order.
func Row(r *models.AnalysisResult) []string {
	s := r.Stats
	row := []string{
		s.Timestamp.Format("2006-01-02T15:04:05.000000"),
		formatFloat(s.CPU.OverallPercent),
		formatFloat(s.Memory.Percent),
		formatFloat(float64(s.Memory.Used) / gib),
		formatFloat(float64(s.Memory.Total) / gib),
		"", "0", "", "0",
	}
	if p, ok := s.TopCPU(); ok {
		row[5] = p.Name
		row[6] = formatFloat(p.CPU())
	}
	if p, ok := s.TopMemory(); ok {
		row[7] = p.Name
		row[8] = formatFloat(p.Mem())
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSVWriter appends rows to one file.
type CSVWriter struct {
	Path string
}

// Append writes r as one row, preceded by the header when the file is new
// or empty. The row is written in a single call so an interrupted run never
// leaves half a line behind.
func (w *CSVWriter) Append(r *models.AnalysisResult) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(w.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(w.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", w.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.Path, err)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := cw.Write(Header); err != nil {
			return err
		}
	}
	if err := cw.Write(Row(r)); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", w.Path, err)
	}
	return f.Sync()
}
