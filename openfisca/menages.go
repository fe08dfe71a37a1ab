package openfisca

import (
	"fmt"

	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/mapping"
)

// =============================================================================
// HOUSEHOLD
// =============================================================================

// StatutOccupationLogement is the housing tenure variable. It is the only
// variable a later answer may refine.
const StatutOccupationLogement = "statut_occupation_logement"

// statut_occupation_logement values of the engine.
const (
	LocataireVide    = "locataire_vide"
	locataireMeuble  = "locataire_meuble"
	locataireHLM     = "locataire_hlm"
	locataireFoyer   = "locataire_foyer"
	proprietaire     = "proprietaire"
	primoAccedant    = "primo_accedant"
	logeGratuitement = "loge_gratuitement"
	sansDomicile     = "sans_domicile"
)

var householdAnswers = mapping.Dictionary{
	"statut-logement":      mapping.Dispatch(dispatchStatutLogement, generic.PeriodMonth),
	"type-location":        mapping.Dispatch(dispatchTypeLocation, generic.PeriodMonth),
	"loyer":                mapping.Direct("loyer", generic.PeriodMonth),
	"commune":              mapping.Direct("depcom", generic.PeriodMonth),
	"coloc":                mapping.Direct("coloc", generic.PeriodMonth),
	"date-entree-logement": mapping.Direct("date_entree_logement", generic.PeriodMonth),
}

// dispatchStatutLogement records the generic tenure. Tenants are recorded as
// unfurnished tenants until type-location refines it.
func dispatchStatutLogement(_ string, value generic.Scalar, period string) ([]mapping.Assignment, error) {
	var statut string
	switch value {
	case "locataire":
		statut = LocataireVide
	case "proprietaire":
		statut = proprietaire
	case "primo-accedant":
		statut = primoAccedant
	case "heberge", "loge-gratuitement":
		statut = logeGratuitement
	case "sans-domicile":
		statut = sansDomicile
	default:
		return nil, fmt.Errorf("statut logement: unknown value %v", value)
	}
	return []mapping.Assignment{{Variable: StatutOccupationLogement, Period: period, Value: statut}}, nil
}

// dispatchTypeLocation records the precise tenancy.
func dispatchTypeLocation(_ string, value generic.Scalar, period string) ([]mapping.Assignment, error) {
	var statut string
	switch value {
	case "vide", "non-meuble":
		statut = LocataireVide
	case "meuble":
		statut = locataireMeuble
	case "hlm", "logement-social":
		statut = locataireHLM
	case "foyer", "residence-universitaire":
		statut = locataireFoyer
	default:
		return nil, fmt.Errorf("type location: unknown value %v", value)
	}
	return []mapping.Assignment{{Variable: StatutOccupationLogement, Period: period, Value: statut}}, nil
}
