// Package config holds the webspectre configuration: built-in defaults,
// the optional .webspectre YAML file with per-site overrides, and the
// validation applied before a scan starts.
package config
