package domain

import "strings"

// ConfigPropName is a key of the properties sheet.
type ConfigPropName string

const (
	ConfigTitle             ConfigPropName = "title"
	ConfigDescription       ConfigPropName = "description"
	ConfigSourceName        ConfigPropName = "source.name"
	ConfigSourceURL         ConfigPropName = "source.url"
	ConfigAuthorName        ConfigPropName = "createdBy.name"
	ConfigAuthorURL         ConfigPropName = "createdBy.url"
	ConfigMapboxMapStyle    ConfigPropName = "mapbox.mapStyle"
	ConfigMapboxAccessToken ConfigPropName = "mapbox.accessToken"
	ConfigIgnoreErrors      ConfigPropName = "ignore.errors"
	ConfigColorScheme       ConfigPropName = "colors.scheme"
	ConfigDarkMode          ConfigPropName = "colors.darkMode"
	ConfigAnimate           ConfigPropName = "animate.flows"
	ConfigClustering        ConfigPropName = "clustering"
)

// Config is the serialized configuration record of a flow map.
type Config map[ConfigPropName]string

// Get returns the trimmed value for name, or "" when absent.
func (c Config) Get(name ConfigPropName) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c[name])
}

// Flag interprets yes/no style values. The second result is false when the
// property is absent or not a recognised boolean.
func (c Config) Flag(name ConfigPropName) (value, ok bool) {
	switch strings.ToLower(c.Get(name)) {
	case "yes", "true", "1", "on":
		return true, true
	case "no", "false", "0", "off":
		return false, true
	default:
		return false, false
	}
}

// IgnoreErrors reports whether data diagnostics should be suppressed.
func (c Config) IgnoreErrors() bool {
	return strings.EqualFold(c.Get(ConfigIgnoreErrors), "yes")
}
