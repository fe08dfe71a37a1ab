package openfisca

import (
	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/mapping"
)

// Fiscal data is declared for the previous year.
var taxHouseholdAnswers = mapping.Dictionary{
	"revenu-fiscal-reference": mapping.Direct("rfr", generic.PeriodLastYear),
	"nombre-parts-fiscales":   mapping.Direct("nbptr", generic.PeriodYear),
}

var taxHouseholdQuestions = mapping.Dictionary{
	"impot-revenu": mapping.Direct("impot_revenu_restant_a_payer", generic.PeriodYear),
}
