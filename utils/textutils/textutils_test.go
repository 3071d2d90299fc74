// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerASCIIFolding(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Sceaux", "sceaux"},
		{"  Châtenay-Malabry  ", "chatenay-malabry"},
		{"L'Haÿ-les-Roses", "l'hay-les-roses"},
		{"Saint-Étienne", "saint-etienne"},
		{"Boulogne   Billancourt", "boulogne billancourt"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LowerASCIIFolding(tc.input))
		})
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{34965, "34,965"},
		{-1234567, "-1,234,567"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatInt(tc.input))
		})
	}
}
