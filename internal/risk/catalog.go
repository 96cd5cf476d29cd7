// Package risk implements the adaptive behavioral risk layer: every request
// is scored against a fixed weight table and folded into the requesting
// patient's cumulative risk profile, which in turn can downgrade or block
// the pharmacist decision already reached upstream.
package risk

import "strings"

// controlledSubstances and abusePotentialMedicines are reproduced verbatim
// from a rule-based risk scoring agent's name lists — describes the
// shape of the rule (a controlled-substance/abuse-potential lookup) but not
// the concrete substance list, so the original is the only source of truth
// for these names.
var controlledSubstances = []string{
	"diazepam", "alprazolam", "clonazepam", "lorazepam", "midazolam", // Benzos
	"morphine", "codeine", "tramadol", "oxycodone", "fentanyl", // Opioids
	"methylphenidate", "amphetamine", "modafinil", // Stimulants
	"zolpidem", "nitrazepam", "phenobarbital", // Sedatives
	"buprenorphine", "methadone", // Opioid substitutes
}

var abusePotentialMedicines = []string{
	"promethazine", "pregabalin", "gabapentin", "carisoprodol",
	"pseudoephedrine", "dextromethorphan",
}

// Weight is a named risk-factor weight added to a request's score delta.
const (
	weightPrescriptionWithoutUpload   = 30
	weightControlledSubstanceRequest  = 40
	weightUnusuallyLargeQuantity      = 25
	weightMultipleValidationFailures  = 15
	weightAbusePotentialMedicine      = 35
	weightMultipleControlledSubstances = 50
)

// matchSubstance returns the first needle appearing anywhere in
// nameLower (already lower-cased by the caller), if any.
func matchSubstance(nameLower string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(nameLower, n) {
			return n, true
		}
	}
	return "", false
}
