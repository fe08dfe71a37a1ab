package openfisca

import (
	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/mapping"
)

// Family-level benefits are only ever computed, never answered.
var familyQuestions = mapping.Dictionary{
	"aides-logement": mapping.Direct("aide_logement", generic.PeriodMonth),
	"rsa":            mapping.Direct("rsa", generic.PeriodMonth),
	"prime-activite": mapping.Direct("ppa", generic.PeriodMonth),
}
