// Package config loads settings with viper from defaults, an optional
// config.yaml and INKPIPE_* environment variables, then validates them with
// struct tags.
package config
