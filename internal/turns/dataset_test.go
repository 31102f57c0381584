package turns

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestTimestampPath(t *testing.T) {
	now := time.Date(2024, 5, 12, 14, 30, 45, 0, time.UTC)
	tests := []struct {
		path   string
		wanted string
	}{
		{"./data/messages.csv", "./data/messages_20240512_143045.csv"},
		{"out.csv", "out_20240512_143045.csv"},
		{"./data/messages", "./data/messages_20240512_143045"},
	}
	for _, test := range tests {
		if result := timestampPath(test.path, now); result != test.wanted {
			t.Errorf("timestampPath(%q) = %q, wanted %q", test.path, result, test.wanted)
		}
	}
}

func TestDatasetWriteCSV(t *testing.T) {
	dataset := &Dataset{}
	dataset.Add(
		&Turn{Texts: []string{"yo", "sup"}, PrecedingText: "hi"},
		&Turn{Texts: []string{"a line with, a comma"}, PrecedingText: ""},
	)

	path, err := dataset.WriteCSV(filepath.Join(t.TempDir(), "nested", "out.csv"))
	if err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	if !strings.HasSuffix(path, ".csv") || !strings.Contains(filepath.Base(path), "out_") {
		t.Errorf("unexpected output path %q", path)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	wanted := [][]string{
		{"combined_content", "message_count", "preceding_content"},
		{"yo\nsup", "2", "hi"},
		{"a line with, a comma", "1", ""},
	}
	if !reflect.DeepEqual(records, wanted) {
		t.Errorf("csv content = %+v, wanted %+v", records, wanted)
	}
}

func TestDatasetWriteCSVEmpty(t *testing.T) {
	dataset := &Dataset{}
	if _, err := dataset.WriteCSV(filepath.Join(t.TempDir(), "out.csv")); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("WriteCSV() on empty dataset = %v, wanted ErrEmptyDataset", err)
	}
}
