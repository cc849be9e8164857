package scorm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"
)

//go:embed assets/scorm_api.js
var shimSource []byte

// DefaultMaxHops bounds the parent-window walk during host discovery.
const DefaultMaxHops = 7

const shimConfigMarker = "/*SHIM_CONFIG*/{}"

// HostOptions lets an embedder that already knows the host handle skip
// discovery of the standard API object names.
type HostOptions struct {
	APIObjectName string
	MaxHops       int
}

type shimConfig struct {
	MaxHops  int      `json:"maxHops"`
	APINames []string `json:"apiNames"`
}

// RuntimeShim returns the shared scorm_api.js script. The profile decides
// which API object name is probed first.
func RuntimeShim(profile Profile, opts HostOptions) []byte {
	cfg := shimConfig{MaxHops: opts.MaxHops}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = DefaultMaxHops
	}
	switch {
	case strings.TrimSpace(opts.APIObjectName) != "":
		cfg.APINames = []string{strings.TrimSpace(opts.APIObjectName)}
	case profile == Profile12:
		cfg.APINames = []string{"API", "API_1484_11"}
	default:
		cfg.APINames = []string{"API_1484_11", "API"}
	}
	raw, _ := json.Marshal(cfg)
	return bytes.Replace(shimSource, []byte(shimConfigMarker), raw, 1)
}
