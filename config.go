package opal

import (
	"os"

	"github.com/spf13/viper"
)

var (
	cfgLoaded = false
	config    = _opalconfig{}
)

// _opalconfig is a "hidden" struct, just use `opalConfig`.
type _opalconfig struct {
	VSOP87Dir string
	outputDir string
}

// opalConfig returns the engine configuration, loaded once from the conf.toml
// in the directory pointed to by the OPAL_CONFIG environment variable. Without
// that variable the defaults apply: no VSOP87 directory (third-body
// ephemerides unavailable) and output to the working directory.
func opalConfig() _opalconfig {
	if cfgLoaded {
		return config
	}
	config = _opalconfig{VSOP87Dir: "", outputDir: "."}
	confPath := os.Getenv("OPAL_CONFIG")
	if confPath != "" {
		v := viper.New()
		v.SetConfigName("conf")
		v.AddConfigPath(confPath)
		if err := v.ReadInConfig(); err == nil {
			if dir := v.GetString("VSOP87.directory"); dir != "" {
				config.VSOP87Dir = dir
			}
			if dir := v.GetString("general.output_path"); dir != "" {
				config.outputDir = dir
			}
		}
	}
	cfgLoaded = true
	return config
}
