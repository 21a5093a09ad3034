package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LoadLabels reads a JSON array of class labels, index-aligned with the
// model's output.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, errors.New("label table is empty")
	}
	return labels, nil
}
