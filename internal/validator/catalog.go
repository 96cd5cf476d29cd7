// Package validator implements the Medical Validator: OTC-mode and
// Prescription-mode safety checks that resolve to an approved /
// needs_review / rejected pharmacist decision.
package validator

// prescriptionValidityDays is how long a prescription stays usable after
// its date.
const prescriptionValidityDays = 180

// nearExpiryWindowDays is the info-level "expires soon" warning window.
const nearExpiryWindowDays = 30

// controlledSubstanceCategory names one of the Schedule buckets a
// controlled substance can fall into.
type controlledSubstanceCategory string

const (
	categoryAntibiotics           controlledSubstanceCategory = "antibiotics"
	categoryRestrictedAntibiotics controlledSubstanceCategory = "restricted_antibiotics"
	categoryHabitForming          controlledSubstanceCategory = "habit_forming"
	categorySteroids              controlledSubstanceCategory = "steroids"
)

// controlledSubstances is reproduced verbatim (by category) from
// a fixed validation rule table — names the
// Schedule H/H1/X/steroid shape but not the concrete drug lists.
var controlledSubstances = map[controlledSubstanceCategory][]string{
	categoryAntibiotics: {
		"amoxicillin", "azithromycin", "ciprofloxacin", "doxycycline",
		"cephalexin", "metronidazole", "levofloxacin", "clarithromycin",
	},
	categoryRestrictedAntibiotics: {
		"cefixime", "cefpodoxime", "linezolid", "meropenem",
		"tigecycline", "colistin",
	},
	categoryHabitForming: {
		"alprazolam", "diazepam", "lorazepam", "clonazepam",
		"tramadol", "codeine", "morphine", "fentanyl",
		"zolpidem", "zopiclone",
	},
	categorySteroids: {
		"prednisolone", "dexamethasone", "hydrocortisone",
		"betamethasone", "methylprednisolone",
	},
}

// controlledCategoryOrder fixes the category lookup order so that a drug
// appearing in more than one list (none currently do) resolves
// deterministically, matching the original's dict iteration-then-break.
var controlledCategoryOrder = []controlledSubstanceCategory{
	categoryAntibiotics, categoryRestrictedAntibiotics, categoryHabitForming, categorySteroids,
}

// highRiskDrugs require extra monitoring even outside the controlled lists.
var highRiskDrugs = []string{
	"warfarin", "insulin", "digoxin", "lithium", "methotrexate",
	"phenytoin", "carbamazepine", "theophylline",
}

// maxDailyDoseMg is the fixed six-drug max-daily-dose table named in
// the prescription-mode assessment, with the concrete milligram figures pinned to
// a fixed validation rule table.
var maxDailyDoseMg = map[string]int{
	"paracetamol": 4000,
	"ibuprofen":   2400,
	"aspirin":     4000,
	"diclofenac":  150,
	"tramadol":    400,
	"codeine":     240,
}

// nearLimitFraction is the "within 80% of the limit" warning threshold.
const nearLimitFraction = 0.8

// emergencyRedFlags forces a severity score of at least 9 regardless of the
// assessor's own number.
var emergencyRedFlags = []string{
	"chest pain", "difficulty breathing", "unconsciousness", "seizure",
	"severe bleeding", "anaphylaxis", "stroke symptoms",
}

// Severity routing thresholds: 1-3 OTC, 4-6 pharmacist,
// 7-8 doctor, 9-10 emergency.
const (
	severityEmergencyScore = 9
	severityReviewScore    = 7
)
