package stores

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liut/insightchat/data/presets"
	"github.com/liut/insightchat/pkg/models/convo"
)

// LoadPreset reads the yaml file, or the embedded default when file is empty.
func LoadPreset(file string) (doc convo.Preset, err error) {
	if len(file) == 0 {
		err = yaml.Unmarshal(presets.Default(), &doc)
		if err != nil {
			logger().Infow("decode default preset fail", "err", err)
		}
		return
	}
	var yf *os.File
	yf, err = os.Open(file)
	if err != nil {
		logger().Infow("load preset fail", "file", file, "err", err)
		return
	}
	defer yf.Close()
	err = yaml.NewDecoder(yf).Decode(&doc)
	if err != nil {
		logger().Infow("decode preset fail", "err", err)
		return
	}

	return
}
