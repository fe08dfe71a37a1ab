/*
Package openfisca is the concrete catalogue of the benefits simulator.

PURPOSE:
  Everything the generic compiler is parameterised with lives here:
  the entity ids and membership arrays, the four mapping dictionaries,
  the dispatch functions, the refinement table and the default rules.

  The survey describes one person ("usager") living alone: one individual,
  one household, one tax household and one family, each holding the user in
  its reference membership array.

FILES:
  - entities.go:       entity ids and membership
  - individus.go:      individual dictionary and dispatchers
  - menages.go:        household dictionary and dispatchers
  - foyers_fiscaux.go: tax household dictionary
  - familles.go:       family dictionary
  - builder.go:        registry, refinements, defaults and NewBuilder
*/
package openfisca

import (
	"github.com/betagouv/aides-simplifiees-engine/entity"
	"github.com/betagouv/aides-simplifiees-engine/generic"
)

// Canonical entity ids.
const (
	IndividualID   = "usager"
	HouseholdID    = "menage_usager"
	TaxHouseholdID = "foyer_fiscal_usager"
	FamilyID       = "famille_usager"
)

// Membership arrays.
const (
	PersonneDeReference = "personne_de_reference"
	Conjoint            = "conjoint"
	Enfants             = "enfants"
	Declarants          = "declarants"
	PersonnesACharge    = "personnes_a_charge"
	Parents             = "parents"
)

// EntityConfigs returns the configuration of the four entities, freshly
// allocated so callers may not alias each other.
func EntityConfigs() []entity.Config {
	return []entity.Config{
		{
			Kind: generic.KindIndividual,
			ID:   IndividualID,
		},
		{
			Kind:         generic.KindHousehold,
			ID:           HouseholdID,
			MemberFields: []string{PersonneDeReference, Conjoint, Enfants},
			Members:      map[string][]string{PersonneDeReference: {IndividualID}},
		},
		{
			Kind:         generic.KindTaxHousehold,
			ID:           TaxHouseholdID,
			MemberFields: []string{Declarants, PersonnesACharge},
			Members:      map[string][]string{Declarants: {IndividualID}},
		},
		{
			Kind:         generic.KindFamily,
			ID:           FamilyID,
			MemberFields: []string{Parents, Enfants},
			Members:      map[string][]string{Parents: {IndividualID}},
		},
	}
}

// EntityID returns the canonical id of a kind.
func EntityID(kind generic.EntityKind) string {
	switch kind {
	case generic.KindIndividual:
		return IndividualID
	case generic.KindHousehold:
		return HouseholdID
	case generic.KindTaxHousehold:
		return TaxHouseholdID
	case generic.KindFamily:
		return FamilyID
	}
	return ""
}
