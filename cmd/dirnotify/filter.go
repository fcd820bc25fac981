package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching"
)

// filterValue is a pflag.Value that parses comma-separated filter names. The
// special name "all" selects every filter bit.
type filterValue struct {
	// filter is the parsed filter.
	filter watching.Filter
}

// String implements pflag.Value.String.
func (v *filterValue) String() string {
	return v.filter.String()
}

// Set implements pflag.Value.Set.
func (v *filterValue) Set(value string) error {
	var filter watching.Filter
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name == "all" {
			filter |= watching.FilterAll
		} else if bit, ok := watching.ParseFilterName(name); ok {
			filter |= bit
		} else {
			return errors.Errorf("unknown filter: %s", name)
		}
	}
	v.filter = filter
	return nil
}

// Type implements pflag.Value.Type.
func (v *filterValue) Type() string {
	return "filters"
}

// Ensure that filterValue implements pflag.Value.
var _ pflag.Value = (*filterValue)(nil)
