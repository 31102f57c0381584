package turns

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var ErrEmptyDataset = errors.New("dataset is empty")

var csvHeader = []string{"combined_content", "message_count", "preceding_content"}

// Dataset accumulates turns across all scraped rooms for serialization.
type Dataset struct {
	turns []*Turn
}

func (d *Dataset) Add(turns ...*Turn) {
	d.turns = append(d.turns, turns...)
}

func (d *Dataset) Len() int {
	return len(d.turns)
}

// WriteCSV writes one row per turn to the given path, with a timestamp
// suffix inserted into the filename. Parent directories are created as
// needed. Returns the path actually written.
func (d *Dataset) WriteCSV(path string) (string, error) {
	if len(d.turns) == 0 {
		return "", ErrEmptyDataset
	}
	path = timestampPath(path, time.Now())
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}
	for _, turn := range d.turns {
		row := []string{turn.Combined(), strconv.Itoa(turn.MessageCount()), turn.PrecedingText}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func timestampPath(path string, now time.Time) string {
	stamp := now.Format("20060102_150405")
	if strings.Contains(path, ".csv") {
		return strings.Replace(path, ".csv", fmt.Sprintf("_%s.csv", stamp), 1)
	}
	return fmt.Sprintf("%s_%s", path, stamp)
}
