package main

import (
	"fmt"
	"strings"
)

// parseFields turns "key=value" arguments into tracking data. A later value
// for the same key wins.
func parseFields(args []string) (map[string]string, error) {
	data := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", arg)
		}
		data[k] = v
	}
	return data, nil
}

// parseBeep splits an "event[:sound]" flag value. An empty sound selects the
// default one.
func parseBeep(s string) (string, string, error) {
	name, snd, _ := strings.Cut(s, ":")
	if name == "" {
		return "", "", fmt.Errorf("invalid beep %q: event name is required", s)
	}
	return name, snd, nil
}
