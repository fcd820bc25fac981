// Package configuration provides loading facilities for the notification
// server's YAML configuration file.
package configuration
