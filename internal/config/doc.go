// Package config loads qchat configuration from a YAML file with ${VAR}
// environment expansion. Every field has a sensible default, so running
// without a config file works: the database lands in the XDG data directory
// and logs go to stderr as text at info level.
package config
