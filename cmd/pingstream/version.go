// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	rtdebug "runtime/debug"
	"sync"
)

var (
	versionOnce sync.Once
	versionStr  string
)

// version returns the module version baked into the binary's build
// information, computed once and reused for the process lifetime.
func version() string {
	versionOnce.Do(func() {
		versionStr = "(devel)"
		info, ok := rtdebug.ReadBuildInfo()
		if !ok {
			return
		}
		if v := info.Main.Version; v != "" {
			versionStr = v
		}
	})
	return versionStr
}
