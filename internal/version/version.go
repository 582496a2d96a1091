/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package version

import (
	"strconv"
	"time"
)

const DevelopmentVersion = "dev"

// Set at build time with -ldflags "-X".
var (
	ProductVersion = DevelopmentVersion
	CommitHash     = ""
	BuildTimestamp = ""
)

type VersionOutput struct {
	Version    string     `json:"version"`
	CommitHash string     `json:"commitHash,omitempty"`
	BuildTime  *time.Time `json:"buildTimestamp,omitempty"`

	// First line of "gdb --version", if the debugger could be run.
	Gdb string `json:"gdb,omitempty"`
}

func Version() VersionOutput {
	v := VersionOutput{
		Version:    ProductVersion,
		CommitHash: CommitHash,
	}
	if v.Version == "" {
		v.Version = DevelopmentVersion
	}
	if bt, ok := buildTime(BuildTimestamp); ok {
		v.BuildTime = &bt
	}
	return v
}

// Accepts Unix seconds or RFC 3339.
func buildTime(timestamp string) (time.Time, bool) {
	if timestamp == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(timestamp, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, timestamp); err == nil {
		return t, true
	}
	return time.Time{}, false
}
