// Package config loads KasaFinder settings.
//
// Settings are resolved once before a discovery run and converted into the
// immutable values the engine consumes (scan.Config, page.Palette,
// page.Visibility, page.Capacity, display.Geometry).
//
// Loading order:
//   - Defaults, matching the stock device firmware
//   - YAML file, if a path is given
//   - KASAFINDER_* environment variables
//
// Usage:
//
//	settings, err := config.Load("kasafinder.yaml")
//	if err != nil {
//	    return err
//	}
//	cfg, err := settings.ScanConfig()
package config
