// Package settings persists console configuration as YAML.
//
// The lifecycle is explicit: load at startup, save on change. Values can
// reference environment variables as ${VAR_NAME}, expanded at load time.
// Components never reach into the store; the command layer reads
// settings once and passes plain values down. Watch covers the one
// exception, reloading when the file is edited while the console runs.
package settings
