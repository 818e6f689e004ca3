package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads a pool configuration document from path. Viper locates the
// file and layers in TASKGATE_-prefixed environment overrides; the merged
// settings are then re-marshalled and decoded through yaml.v3 so the
// document structs' `yaml:` tags (rather than viper's mapstructure
// defaults) govern field mapping, matching the teacher's struct-tag style.
// Load tolerates both a top-level `pool:` wrapper and a document whose root
// directly holds the pool body.
func Load(path string) (*Document, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKGATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, newLoadError(CodeMalformedDocument, fmt.Sprintf("failed to read config file %q", path), err)
	}

	merged, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return nil, newLoadError(CodeMalformedDocument, "failed to re-marshal merged settings", err)
	}

	doc := &Document{}
	if v.IsSet("pool") {
		if err := yaml.Unmarshal(merged, doc); err != nil {
			return nil, newLoadError(CodeMalformedDocument, "failed to decode pool document", err)
		}
	} else {
		if err := yaml.Unmarshal(merged, &doc.Pool); err != nil {
			return nil, newLoadError(CodeMalformedDocument, "failed to decode unwrapped pool document", err)
		}
	}

	if doc.Pool.SyntaxUsed == "" {
		doc.Pool.SyntaxUsed = SyntaxConditionTree
	}

	return doc, nil
}
