// Package profile loads the engine's default runtime tunables from a YAML
// file: parallelism, buffer sizes, and write options that a query hint may
// override.
package profile

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Profile is the set of defaults the Builder consults when a statement's
// hints leave a tunable unset.
type Profile struct {
	MaxDOP                     int   `yaml:"max_dop"`
	PrefetchBuffer             int   `yaml:"prefetch_buffer"`
	AggregatePartitionCap      int64 `yaml:"aggregate_partition_cap"`
	WindowMaterializationLimit int   `yaml:"window_materialization_limit"`
	DMLRowCap                  int64 `yaml:"dml_row_cap"`
	BatchSize                  int   `yaml:"batch_size"`
	BypassPlugins              bool  `yaml:"bypass_plugins"`
	BypassFlows                bool  `yaml:"bypass_flows"`
	NoLock                     bool  `yaml:"no_lock"`
	ForceClientAggregation     bool  `yaml:"force_client_aggregation"`
}

// Default returns the built-in defaults, used when no profile file is
// configured.
func Default() *Profile {
	return &Profile{
		MaxDOP:                     4,
		PrefetchBuffer:             5000,
		AggregatePartitionCap:      50000,
		WindowMaterializationLimit: 500000,
		DMLRowCap:                  0,
		BatchSize:                  100,
	}
}

// Load reads a YAML profile from path, applying it on top of Default()
// so an incomplete file still yields sane values for omitted fields.
func Load(path string) (*Profile, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading profile")
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "parsing profile")
	}
	return p, nil
}
