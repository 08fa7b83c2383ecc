package hconfig

import (
	"github.com/spf13/viper"
)

// Load reads the YAML file at path into out via viper, adapted from
// internal/common.LoadConfig's SetConfigName/AddConfigPath/Unmarshal pattern
// but taking one explicit file path instead of a directory, since both of
// this repository's binaries are handed a single config file rather than a
// merged stack of them.
func Load(path string, out interface{}) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(out)
}
