// Package kinship classifies family relationship kinds.
//
// It is pure data: gender-constrained kind sets, mutually-exclusive kind
// groups, parent/child sets, and the inverse-kind lookup used for display.
// Nothing here touches storage or holds state.
package kinship

// Kind is a relationship kind, read as "from is <Kind> of to".
type Kind string

const (
	Parent Kind = "parent"
	Child  Kind = "child"

	Father         Kind = "father"
	Mother         Kind = "mother"
	Stepfather     Kind = "stepfather"
	Stepmother     Kind = "stepmother"
	AdoptiveFather Kind = "adoptive_father"
	AdoptiveMother Kind = "adoptive_mother"

	Son              Kind = "son"
	Daughter         Kind = "daughter"
	Stepson          Kind = "stepson"
	Stepdaughter     Kind = "stepdaughter"
	AdoptiveSon      Kind = "adoptive_son"
	AdoptiveDaughter Kind = "adoptive_daughter"

	Grandfather      Kind = "grandfather"
	Grandmother      Kind = "grandmother"
	GreatGrandfather Kind = "great_grandfather"
	GreatGrandmother Kind = "great_grandmother"

	Grandson           Kind = "grandson"
	Granddaughter      Kind = "granddaughter"
	GreatGrandson      Kind = "great_grandson"
	GreatGranddaughter Kind = "great_granddaughter"

	Brother     Kind = "brother"
	Sister      Kind = "sister"
	HalfBrother Kind = "half_brother"
	HalfSister  Kind = "half_sister"
	Stepbrother Kind = "stepbrother"
	Stepsister  Kind = "stepsister"

	Spouse    Kind = "spouse"
	Husband   Kind = "husband"
	Wife      Kind = "wife"
	ExSpouse  Kind = "ex_spouse"
	ExHusband Kind = "ex_husband"
	ExWife    Kind = "ex_wife"
	Partner   Kind = "partner"

	Uncle     Kind = "uncle"
	Aunt      Kind = "aunt"
	GreatUncle Kind = "great_uncle"
	GreatAunt  Kind = "great_aunt"

	Nephew      Kind = "nephew"
	Niece       Kind = "niece"
	GrandNephew Kind = "grand_nephew"
	GrandNiece  Kind = "grand_niece"

	Cousin       Kind = "cousin"
	SecondCousin Kind = "second_cousin"

	FatherInLaw   Kind = "father_in_law"
	MotherInLaw   Kind = "mother_in_law"
	SonInLaw      Kind = "son_in_law"
	DaughterInLaw Kind = "daughter_in_law"
	BrotherInLaw  Kind = "brother_in_law"
	SisterInLaw   Kind = "sister_in_law"

	Godfather   Kind = "godfather"
	Godmother   Kind = "godmother"
	Godson      Kind = "godson"
	Goddaughter Kind = "goddaughter"

	Guardian Kind = "guardian"
	Ward     Kind = "ward"
	Unknown  Kind = "unknown"
)

// All lists every recognized kind, in declaration order. Used to build the
// tool catalog enum and the system prompt.
var All = []Kind{
	Parent, Child,
	Father, Mother, Stepfather, Stepmother, AdoptiveFather, AdoptiveMother,
	Son, Daughter, Stepson, Stepdaughter, AdoptiveSon, AdoptiveDaughter,
	Grandfather, Grandmother, GreatGrandfather, GreatGrandmother,
	Grandson, Granddaughter, GreatGrandson, GreatGranddaughter,
	Brother, Sister, HalfBrother, HalfSister, Stepbrother, Stepsister,
	Spouse, Husband, Wife, ExSpouse, ExHusband, ExWife, Partner,
	Uncle, Aunt, GreatUncle, GreatAunt,
	Nephew, Niece, GrandNephew, GrandNiece,
	Cousin, SecondCousin,
	FatherInLaw, MotherInLaw, SonInLaw, DaughterInLaw, BrotherInLaw, SisterInLaw,
	Godfather, Godmother, Godson, Goddaughter,
	Guardian, Ward, Unknown,
}

var known = func() map[Kind]bool {
	m := make(map[Kind]bool, len(All))
	for _, k := range All {
		m[k] = true
	}
	return m
}()

// Known reports whether k is a recognized relationship kind.
// Unrecognized kinds are treated as unconstrained by every classifier below;
// callers surface their own warning.
func Known(k Kind) bool { return known[k] }

var maleOnly = map[Kind]bool{
	Father: true, Stepfather: true, AdoptiveFather: true,
	Son: true, Stepson: true, AdoptiveSon: true,
	Grandfather: true, GreatGrandfather: true,
	Grandson: true, GreatGrandson: true,
	Brother: true, HalfBrother: true, Stepbrother: true,
	Husband: true, ExHusband: true,
	Uncle: true, GreatUncle: true,
	Nephew: true, GrandNephew: true,
	FatherInLaw: true, SonInLaw: true, BrotherInLaw: true,
	Godfather: true, Godson: true,
}

var femaleOnly = map[Kind]bool{
	Mother: true, Stepmother: true, AdoptiveMother: true,
	Daughter: true, Stepdaughter: true, AdoptiveDaughter: true,
	Grandmother: true, GreatGrandmother: true,
	Granddaughter: true, GreatGranddaughter: true,
	Sister: true, HalfSister: true, Stepsister: true,
	Wife: true, ExWife: true,
	Aunt: true, GreatAunt: true,
	Niece: true, GrandNiece: true,
	MotherInLaw: true, DaughterInLaw: true, SisterInLaw: true,
	Godmother: true, Goddaughter: true,
}

// MaleOnly reports whether k requires the bearer to be male.
func MaleOnly(k Kind) bool { return maleOnly[k] }

// FemaleOnly reports whether k requires the bearer to be female.
func FemaleOnly(k Kind) bool { return femaleOnly[k] }

// ExclusiveGroup is a pair of kind sets that cannot both apply to the same
// ordered (from, to) pair: nobody is simultaneously brother and sister of
// the same person.
type ExclusiveGroup struct {
	A []Kind
	B []Kind
}

var exclusiveGroups = []ExclusiveGroup{
	{A: []Kind{Brother, HalfBrother, Stepbrother}, B: []Kind{Sister, HalfSister, Stepsister}},
	{A: []Kind{Father, Stepfather, AdoptiveFather}, B: []Kind{Mother, Stepmother, AdoptiveMother}},
	{A: []Kind{Husband, ExHusband}, B: []Kind{Wife, ExWife}},
	{A: []Kind{Son, Stepson, AdoptiveSon}, B: []Kind{Daughter, Stepdaughter, AdoptiveDaughter}},
	{A: []Kind{Grandfather, GreatGrandfather}, B: []Kind{Grandmother, GreatGrandmother}},
	{A: []Kind{Uncle, GreatUncle}, B: []Kind{Aunt, GreatAunt}},
	{A: []Kind{Nephew, GrandNephew}, B: []Kind{Niece, GrandNiece}},
}

// ExclusiveGroups returns the mutually-exclusive group table.
func ExclusiveGroups() []ExclusiveGroup { return exclusiveGroups }

func contains(ks []Kind, k Kind) bool {
	for _, v := range ks {
		if v == k {
			return true
		}
	}
	return false
}

// Excludes reports whether existing and proposed fall on opposite sides of
// any mutually-exclusive group.
func Excludes(existing, proposed Kind) bool {
	for _, g := range exclusiveGroups {
		if (contains(g.A, existing) && contains(g.B, proposed)) ||
			(contains(g.B, existing) && contains(g.A, proposed)) {
			return true
		}
	}
	return false
}

var parentKinds = map[Kind]bool{
	Parent: true, Father: true, Mother: true,
	Stepfather: true, Stepmother: true,
	AdoptiveFather: true, AdoptiveMother: true,
}

var childKinds = map[Kind]bool{
	Child: true, Son: true, Daughter: true,
	Stepson: true, Stepdaughter: true,
	AdoptiveSon: true, AdoptiveDaughter: true,
}

// IsParent reports whether k is a parent-type kind.
func IsParent(k Kind) bool { return parentKinds[k] }

// IsChild reports whether k is a child-type kind.
func IsChild(k Kind) bool { return childKinds[k] }

// Biological parent kinds are capped at two per target person.
var biologicalParent = map[Kind]bool{
	Parent: true, Father: true, Mother: true,
}

// IsBiologicalParent reports whether k counts against the two-parent cap.
func IsBiologicalParent(k Kind) bool { return biologicalParent[k] }

// inverse maps a kind to its inverse as seen from the other party,
// keyed by that party's gender.
var inverse = map[Kind]map[string]Kind{
	Father:        {"male": Son, "female": Daughter, "other": Child},
	Mother:        {"male": Son, "female": Daughter, "other": Child},
	Son:           {"male": Father, "female": Mother, "other": Parent},
	Daughter:      {"male": Father, "female": Mother, "other": Parent},
	Brother:       {"male": Brother, "female": Sister, "other": Brother},
	Sister:        {"male": Brother, "female": Sister, "other": Sister},
	Husband:       {"male": Husband, "female": Wife, "other": Partner},
	Wife:          {"male": Husband, "female": Wife, "other": Partner},
	Grandfather:   {"male": Grandson, "female": Granddaughter, "other": Grandson},
	Grandmother:   {"male": Grandson, "female": Granddaughter, "other": Granddaughter},
	Grandson:      {"male": Grandfather, "female": Grandmother, "other": Grandfather},
	Granddaughter: {"male": Grandfather, "female": Grandmother, "other": Grandmother},
	Uncle:         {"male": Nephew, "female": Niece, "other": Nephew},
	Aunt:          {"male": Nephew, "female": Niece, "other": Niece},
	Nephew:        {"male": Uncle, "female": Aunt, "other": Uncle},
	Niece:         {"male": Uncle, "female": Aunt, "other": Aunt},
}

// Inverse returns the inverse kind for display purposes: the kind the other
// party holds, given that party's gender ("male", "female", or anything
// else for the neutral fallback). Kinds without an inverse entry return
// themselves unchanged.
func Inverse(k Kind, otherGender string) Kind {
	byGender, ok := inverse[k]
	if !ok {
		return k
	}
	if inv, ok := byGender[otherGender]; ok {
		return inv
	}
	return byGender["other"]
}
