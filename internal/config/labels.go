package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

//go:embed status_labels.yaml
var defaultLabelTable []byte

type labelFile struct {
	Statuses []domain.LabelEntry `yaml:"statuses"`
}

// LoadLabels reads the room status label table from path, or the embedded
// table when path is empty.
func LoadLabels(path string) (*domain.Labels, error) {
	data := defaultLabelTable
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return ParseLabels(data)
}

func ParseLabels(data []byte) (*domain.Labels, error) {
	var f labelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse label table: %w", err)
	}
	return domain.NewLabels(f.Statuses)
}

// DefaultLabels returns the embedded table. It panics if the embedded file is
// invalid, which only a broken build can cause.
func DefaultLabels() *domain.Labels {
	labels, err := ParseLabels(defaultLabelTable)
	if err != nil {
		panic("embedded status label table: " + err.Error())
	}
	return labels
}
