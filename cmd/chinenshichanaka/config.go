package main

import (
	"fmt"
	"strings"

	"github.com/adrg/xdg"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/paazmaya/chinenshichanaka/internal/ico"
	"github.com/paazmaya/chinenshichanaka/internal/pipeline"
	"github.com/paazmaya/chinenshichanaka/internal/quant"
)

const envPrefix = "CHINENSHICHANAKA"

// conf holds flags, environment and config file values merged by viper.
var conf = viper.New()

func addPipelineFlags(cmd *cobra.Command) {
	def := pipeline.DefaultOptions()
	f := cmd.PersistentFlags()
	f.IntP("size", "s", def.OutputSize, "Icon edge length in pixels (1-256)")
	f.IntP("colors", "c", def.MaxColors, "Maximum number of colors in the icon")
	f.StringP("method", "m", string(def.Method), "Palette builder (neuquant, mediancut)")
	f.StringP("payload", "p", string(def.Payload), "Bitmap storage inside the icon (bmp, png)")
	f.Int("max-pixels", def.MaxSourcePixels, "Reject raster inputs with more pixels than this (0 = no limit)")
	f.BoolP("verbose", "v", false, "Verbose mode gives more details about the conversion process")
	f.String("config", "", "Config file in KEY=value format (default $XDG_CONFIG_HOME/chinenshichanaka/config)")
}

// loadConfig layers the config file under environment variables under
// explicitly set flags.
func loadConfig(flags *pflag.FlagSet, path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}

	if path == "" {
		found, err := xdg.SearchConfigFile("chinenshichanaka/config")
		if err != nil {
			// config file not found
			return v, nil
		}
		path = found
	}
	v.SetConfigType("env")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	log.WithField("file", path).Debug("config loaded")
	return v, nil
}

// optionsFromConfig builds validated pipeline options.
func optionsFromConfig(v *viper.Viper) (pipeline.Options, error) {
	method, err := quant.ParseMethod(strings.ToLower(v.GetString("method")))
	if err != nil {
		return pipeline.Options{}, err
	}
	payload, err := ico.ParsePayload(strings.ToLower(v.GetString("payload")))
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		OutputSize:      v.GetInt("size"),
		MaxColors:       v.GetInt("colors"),
		Method:          method,
		Payload:         payload,
		MaxSourcePixels: v.GetInt("max-pixels"),
		Log:             log.StandardLogger(),
	}
	if err := opts.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}
