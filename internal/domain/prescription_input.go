package domain

// PrescriptionMedicineLine is one OCR-extracted medicine row, before any
// catalog lookup or dosage inference has been applied.
type PrescriptionMedicineLine struct {
	Name         string
	Dosage       string
	Frequency    string
	Duration     string
	Instructions string
}

// PrescriptionInput is the raw vision-metadata shape handed to the Medical
// Validator in prescription mode — the unprocessed output of the OCR
// adapter, before the validator reconciles it against the
// medicine catalog and folds it into a ValidatorResult.
type PrescriptionInput struct {
	PatientName      string
	DoctorName       string
	Date             string // as extracted, e.g. "14/02/2026"
	Medicines        []PrescriptionMedicineLine
	SignaturePresent bool
	Confidence       float64
}
