package openfisca

import (
	"fmt"

	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/mapping"
)

// =============================================================================
// INDIVIDUAL
// =============================================================================

// individualAnswers maps answer keys to individual variables.
var individualAnswers = mapping.Dictionary{
	"date-naissance":           mapping.Direct("date_naissance", generic.PeriodEternity),
	"boursier":                 mapping.Direct("boursier", generic.PeriodMonth),
	"nationalite":              mapping.Direct("nationalite", generic.PeriodMonth),
	"sortie-academie":          mapping.Direct("sortie_academie", generic.PeriodMonth),
	"sortie-region-academique": mapping.Direct("sortie_region_academique", generic.PeriodMonth),
	"annee-etude":              mapping.Direct("annee_etude", generic.PeriodMonth),
	"echelon-bourse":           mapping.Direct("echelon_bourse", generic.PeriodMonth),
	"handicap":                 mapping.Direct("handicap", generic.PeriodMonth),
	"salaire-imposable":        mapping.Direct("salaire_imposable", generic.PeriodMonth),

	"situation-professionnelle": mapping.Dispatch(dispatchSituationProfessionnelle, generic.PeriodMonth),

	// Checkbox parents and consent: expanded or irrelevant to the calculation.
	"consentement":       mapping.Excluded(),
	"situation-handicap": mapping.Excluded(),
	"aides-deja-percues": mapping.Excluded(),
}

// individualQuestions are benefits the engine computes for the individual.
var individualQuestions = mapping.Dictionary{
	"bourse-criteres-sociaux":  mapping.Direct("bourse_criteres_sociaux", generic.PeriodMonth),
	"aide-mobilite-parcoursup": mapping.Direct("aide_mobilite_parcoursup", generic.PeriodMonth),
	"aide-mobilite-master":     mapping.Direct("aide_mobilite_master_sortie_region_academique", generic.PeriodMonth),
}

// activite values of the engine.
const (
	activiteActif    = "actif"
	activiteChomeur  = "chomeur"
	activiteEtudiant = "etudiant"
	activiteRetraite = "retraite"
	activiteInactif  = "inactif"
)

// dispatchSituationProfessionnelle splits the professional situation into the
// engine's activity plus the apprentice and intern flags.
func dispatchSituationProfessionnelle(_ string, value generic.Scalar, period string) ([]mapping.Assignment, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("situation professionnelle: expected text, got %T", value)
	}

	var activite string
	alternant, stagiaire := false, false
	switch s {
	case "etudiant", "lyceen":
		activite = activiteEtudiant
	case "alternant", "apprenti":
		activite, alternant = activiteEtudiant, true
	case "stagiaire":
		activite, stagiaire = activiteEtudiant, true
	case "salarie", "independant":
		activite = activiteActif
	case "chomeur", "demandeur-emploi":
		activite = activiteChomeur
	case "retraite":
		activite = activiteRetraite
	case "inactif", "sans-activite":
		activite = activiteInactif
	default:
		return nil, fmt.Errorf("situation professionnelle: unknown value %q", s)
	}

	return []mapping.Assignment{
		{Variable: "activite", Period: period, Value: activite},
		{Variable: "alternant", Period: period, Value: alternant},
		{Variable: "stagiaire", Period: period, Value: stagiaire},
	}, nil
}
