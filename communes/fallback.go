// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package communes

import (
	"fmt"
)

// fallbackCSV is shown when no dataset file can be loaded, so the explorer
// always has something to render.
const fallbackCSV = `code_insee;nom_commune;code_departement;dose_rayonnements_telluriques;dose_rayonnements_cosmiques;dose_radon_maison_individuelle;dose_radon_habitat_collectif;dose_depots_essais_atmospheriques_et_tchernobyl;;
92071;Sceaux;92;411;306;1532;1454;9;;
92019;Châtenay-Malabry;92;414;306;1737;1524;9;;
`

// Fallback returns the embedded minimal sample.
func Fallback() []Record {
	records, err := LoadString(fallbackCSV)
	if err != nil {
		panic(fmt.Sprintf("communes: embedded fallback data is invalid: %v", err))
	}

	return records
}
