package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/arogya-path/kernel/internal/domain"
)

// titleCaser renders a lower-cased drug name for human-facing messages,
// e.g. "alprazolam" -> "Alprazolam".
var titleCaser = cases.Title(language.English)

// dateLayouts mirrors the original's try-each-format loop.
var dateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006"}

// ruleValidatePrescriptionDate checks presence, future-dating, and expiry
// of a prescription date string, pinned to validate_prescription_date.
func ruleValidatePrescriptionDate(dateStr string, now time.Time) []Issue {
	if dateStr == "" {
		return []Issue{{
			Severity:       SeverityCritical,
			Field:          "date",
			Message:        "Prescription date is missing",
			RuleViolated:   "REQUIRED_DATE",
			Recommendation: "Request patient to provide prescription with date",
		}}
	}

	var parsed time.Time
	var ok bool
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			parsed, ok = t, true
			break
		}
	}
	if !ok {
		return []Issue{{
			Severity:       SeverityWarning,
			Field:          "date",
			Message:        fmt.Sprintf("Could not parse date: %s", dateStr),
			RuleViolated:   "DATE_FORMAT",
			Recommendation: "Verify date format with patient",
		}}
	}

	var issues []Issue
	if parsed.After(now) {
		issues = append(issues, Issue{
			Severity:       SeverityCritical,
			Field:          "date",
			Message:        fmt.Sprintf("Prescription date is in the future: %s", dateStr),
			RuleViolated:   "FUTURE_DATE",
			Recommendation: "Verify date with patient",
		})
	}

	expiry := parsed.AddDate(0, 0, prescriptionValidityDays)
	switch {
	case now.After(expiry):
		daysExpired := int(now.Sub(expiry).Hours() / 24)
		issues = append(issues, Issue{
			Severity:     SeverityCritical,
			Field:        "date",
			Message:      fmt.Sprintf("Prescription expired %d days ago (valid until %s)", daysExpired, expiry.Format("02/01/2006")),
			RuleViolated: "EXPIRED_PRESCRIPTION",
			Recommendation: "Request new prescription from doctor",
		})
	case expiry.Sub(now).Hours()/24 < nearExpiryWindowDays:
		daysRemaining := int(expiry.Sub(now).Hours() / 24)
		issues = append(issues, Issue{
			Severity:       SeverityInfo,
			Field:          "date",
			Message:        fmt.Sprintf("Prescription expires in %d days", daysRemaining),
			RuleViolated:   "NEAR_EXPIRY",
			Recommendation: "Inform patient about upcoming expiry",
		})
	}

	return issues
}

// ruleValidateSignature checks the doctor's signature and name are present.
func ruleValidateSignature(signaturePresent bool, doctorName string) []Issue {
	var issues []Issue
	if !signaturePresent {
		issues = append(issues, Issue{
			Severity:       SeverityCritical,
			Field:          "signature",
			Message:        "Doctor signature is missing",
			RuleViolated:   "MISSING_SIGNATURE",
			Recommendation: "Request signed prescription from doctor",
		})
	}
	if doctorName == "" {
		issues = append(issues, Issue{
			Severity:       SeverityCritical,
			Field:          "doctor_name",
			Message:        "Doctor name is missing",
			RuleViolated:   "MISSING_DOCTOR_NAME",
			Recommendation: "Verify doctor details",
		})
	}
	return issues
}

// ruleValidateMedicineDetails checks one medicine row for a usable name,
// dosage, and frequency.
func ruleValidateMedicineDetails(m domain.PrescriptionMedicineLine) []Issue {
	name := strings.ToLower(strings.TrimSpace(m.Name))
	if name == "" || name == "unknown" {
		return []Issue{{
			Severity:       SeverityCritical,
			Field:          "medicine_name",
			Message:        "Medicine name is missing or unclear",
			RuleViolated:   "MISSING_MEDICINE_NAME",
			Recommendation: "Request clearer prescription or verify with doctor",
		}}
	}

	var issues []Issue
	if m.Dosage == "" {
		issues = append(issues, Issue{
			Severity:       SeverityWarning,
			Field:          "dosage",
			Message:        fmt.Sprintf("Dosage not specified for %s", name),
			RuleViolated:   "MISSING_DOSAGE",
			Recommendation: "Verify dosage with pharmacist or doctor",
		})
	}
	if m.Frequency == "" {
		issues = append(issues, Issue{
			Severity:       SeverityWarning,
			Field:          "frequency",
			Message:        fmt.Sprintf("Frequency not specified for %s", name),
			RuleViolated:   "MISSING_FREQUENCY",
			Recommendation: "Verify frequency with pharmacist or doctor",
		})
	}
	return issues
}

// ruleValidateControlledSubstances flags Schedule H/H1/X drugs and
// separately flagged high-risk drugs.
func ruleValidateControlledSubstances(medicines []domain.PrescriptionMedicineLine) []Issue {
	var issues []Issue
	for _, m := range medicines {
		nameLower := strings.ToLower(strings.TrimSpace(m.Name))
		titled := titleCaser.String(nameLower)

		if category, ok := matchControlledCategory(nameLower); ok {
			switch category {
			case categoryHabitForming:
				issues = append(issues, Issue{
					Severity:       SeverityCritical,
					Field:          "medicine",
					Message:        fmt.Sprintf("%s is a Schedule X (habit-forming) drug", titled),
					RuleViolated:   "SCHEDULE_X_DRUG",
					Recommendation: "Verify prescription, maintain records, pharmacist approval required",
				})
			case categoryRestrictedAntibiotics:
				issues = append(issues, Issue{
					Severity:       SeverityWarning,
					Field:          "medicine",
					Message:        fmt.Sprintf("%s is a Schedule H1 (restricted) antibiotic", titled),
					RuleViolated:   "SCHEDULE_H1_DRUG",
					Recommendation: "Verify prescription, pharmacist approval recommended",
				})
			default:
				issues = append(issues, Issue{
					Severity:       SeverityInfo,
					Field:          "medicine",
					Message:        fmt.Sprintf("%s is a prescription-only drug", titled),
					RuleViolated:   "PRESCRIPTION_REQUIRED",
					Recommendation: "Verify valid prescription present",
				})
			}
		}

		if _, ok := matchAny(nameLower, highRiskDrugs); ok {
			issues = append(issues, Issue{
				Severity:       SeverityWarning,
				Field:          "medicine",
				Message:        fmt.Sprintf("%s is a high-risk drug requiring careful monitoring", titled),
				RuleViolated:   "HIGH_RISK_DRUG",
				Recommendation: "Counsel patient on proper usage and side effects",
			})
		}
	}
	return issues
}

func matchControlledCategory(nameLower string) (controlledSubstanceCategory, bool) {
	for _, cat := range controlledCategoryOrder {
		if _, ok := matchAny(nameLower, controlledSubstances[cat]); ok {
			return cat, true
		}
	}
	return "", false
}

func matchAny(nameLower string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(nameLower, n) {
			return n, true
		}
	}
	return "", false
}

var (
	dosageMgPattern  = regexp.MustCompile(`(\d+)\s*mg`)
	frequencyPattern = regexp.MustCompile(`(\d+)\s*times`)
)

// ruleValidateDosageLimits computes single_dose x times_per_day for any
// medicine in maxDailyDoseMg and flags it against that drug's limit.
func ruleValidateDosageLimits(medicines []domain.PrescriptionMedicineLine) []Issue {
	var issues []Issue
	for _, m := range medicines {
		nameLower := strings.ToLower(strings.TrimSpace(m.Name))
		for drug, maxDaily := range maxDailyDoseMg {
			if !strings.Contains(nameLower, drug) {
				continue
			}

			doseMatch := dosageMgPattern.FindStringSubmatch(strings.ToLower(m.Dosage))
			if doseMatch == nil {
				continue
			}
			singleDose, err := strconv.Atoi(doseMatch[1])
			if err != nil {
				continue
			}

			timesPerDay := 1
			if freqMatch := frequencyPattern.FindStringSubmatch(strings.ToLower(m.Frequency)); freqMatch != nil {
				if n, err := strconv.Atoi(freqMatch[1]); err == nil {
					timesPerDay = n
				}
			}

			dailyDosage := singleDose * timesPerDay
			titled := titleCaser.String(nameLower)

			switch {
			case dailyDosage > maxDaily:
				issues = append(issues, Issue{
					Severity:       SeverityCritical,
					Field:          "dosage",
					Message:        fmt.Sprintf("%s daily dosage (%dmg) exceeds maximum safe limit (%dmg)", titled, dailyDosage, maxDaily),
					RuleViolated:   "DOSAGE_EXCEEDS_LIMIT",
					Recommendation: "Verify dosage with doctor, do not dispense",
				})
			case float64(dailyDosage) > float64(maxDaily)*nearLimitFraction:
				issues = append(issues, Issue{
					Severity:       SeverityWarning,
					Field:          "dosage",
					Message:        fmt.Sprintf("%s daily dosage (%dmg) is close to maximum limit (%dmg)", titled, dailyDosage, maxDaily),
					RuleViolated:   "DOSAGE_NEAR_LIMIT",
					Recommendation: "Counsel patient on proper usage",
				})
			}
		}
	}
	return issues
}

// ruleValidateDuplicateMedicines flags exact-name repeats.
func ruleValidateDuplicateMedicines(medicines []domain.PrescriptionMedicineLine) []Issue {
	var issues []Issue
	seen := make(map[string]struct{}, len(medicines))
	for _, m := range medicines {
		name := strings.ToLower(strings.TrimSpace(m.Name))
		if _, ok := seen[name]; ok && name != "unknown" {
			issues = append(issues, Issue{
				Severity:       SeverityWarning,
				Field:          "medicines",
				Message:        fmt.Sprintf("Duplicate medicine detected: %s", titleCaser.String(name)),
				RuleViolated:   "DUPLICATE_MEDICINE",
				Recommendation: "Verify with doctor if intentional",
			})
		}
		seen[name] = struct{}{}
	}
	return issues
}

// calculateRiskScore sums severity weights, capped at 1.0.
func calculateRiskScore(issues []Issue) float64 {
	score := 0.0
	for _, iss := range issues {
		score += iss.Severity.riskWeight()
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ValidationStatus is the rule engine's overall verdict.
type ValidationStatus string

const (
	StatusApproved    ValidationStatus = "approved"
	StatusNeedsReview ValidationStatus = "needs_review"
	StatusRejected    ValidationStatus = "rejected"
)

// determineValidationStatus maps the issue set and risk score to a status
// plus whether a pharmacist must review, per determine_validation_status.
func determineValidationStatus(issues []Issue, riskScore float64) (ValidationStatus, bool) {
	hasCritical := false
	hasWarning := false
	for _, iss := range issues {
		switch iss.Severity {
		case SeverityCritical:
			hasCritical = true
		case SeverityWarning:
			hasWarning = true
		}
	}

	if hasCritical {
		return StatusRejected, true
	}
	if riskScore > 0.5 || hasWarning {
		return StatusNeedsReview, true
	}
	return StatusApproved, false
}
