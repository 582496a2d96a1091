/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package osutil

import (
	"os"
	"strings"
)

// Returns the value of the environment variable, or defaultVal if it is not set or blank.
func EnvVarStringWithDefault(varName string, defaultVal string) string {
	val, found := os.LookupEnv(varName)
	if !found || strings.TrimSpace(val) == "" {
		return defaultVal
	}
	return val
}

// Converts a NAME=VALUE environment list into a map. Later entries win.
// Entries without '=' are ignored.
func EnvListToMap(env []string) map[string]string {
	retval := make(map[string]string, len(env))
	for _, kv := range env {
		name, value, found := strings.Cut(kv, "=")
		if !found || name == "" {
			continue
		}
		retval[name] = value
	}
	return retval
}

// Overlays the given NAME=VALUE entries over the base environment list.
// Variables that appear in the overlay replace base values; the rest of the base is kept in order.
func MergeEnv(base []string, overlay []string) []string {
	if len(overlay) == 0 {
		return base
	}

	overlayMap := EnvListToMap(overlay)
	retval := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, overridden := overlayMap[name]; overridden {
			continue
		}
		retval = append(retval, kv)
	}
	return append(retval, overlay...)
}
