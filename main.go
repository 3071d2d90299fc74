// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/radex-fr/radex/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
