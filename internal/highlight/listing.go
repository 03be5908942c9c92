package highlight

import (
	"encoding/json"
	"fmt"
	"os"

	"highlighter/internal/fileutil"
)

// WriteListing stores intervals as indented JSON at path.
func WriteListing(path string, intervals []ClipInterval) error {
	if intervals == nil {
		intervals = []ClipInterval{}
	}
	data, err := json.MarshalIndent(intervals, "", "  ")
	if err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write listing %s: %w", path, err)
	}
	return nil
}

// ReadListing loads intervals previously written by WriteListing.
func ReadListing(path string) ([]ClipInterval, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	var intervals []ClipInterval
	if err := json.Unmarshal(data, &intervals); err != nil {
		return nil, fmt.Errorf("decode listing %s: %w", path, err)
	}
	for i, interval := range intervals {
		if interval.EndTime < interval.StartTime {
			return nil, fmt.Errorf("listing %s: interval %d ends before it starts", path, i)
		}
	}
	return intervals, nil
}
