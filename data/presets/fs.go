package presets

import (
	_ "embed"
)

//go:embed default.yaml
var dft []byte

// Default returns the embedded preset used when no preset file is configured.
func Default() []byte {
	return dft
}
