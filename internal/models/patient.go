package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"

	ModalityXRay = "X-Ray"
	ModalityCT   = "CT"
	ModalityMRI  = "MRI"

	// StudyDateLayout is the wire format of study dates
	StudyDateLayout = "2006-01-02"

	MaxPatientAge = 150
)

// Genders lists the selectable genders in display order
var Genders = []string{GenderMale, GenderFemale, GenderOther}

// Modalities lists the selectable imaging modalities in display order
var Modalities = []string{ModalityXRay, ModalityCT, ModalityMRI}

// PatientDescriptor holds the patient metadata captured during intake
type PatientDescriptor struct {
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	Age         string `json:"age"`
	Gender      string `json:"gender"`
	StudyDate   string `json:"study_date"`
	ImageType   string `json:"image_type"`
}

// DefaultPatientDescriptor returns the intake form defaults
func DefaultPatientDescriptor(now time.Time) PatientDescriptor {
	return PatientDescriptor{
		Gender:    GenderMale,
		StudyDate: now.Format(StudyDateLayout),
		ImageType: ModalityXRay,
	}
}

// MissingFields returns the names of required fields that are blank.
// Required: patient id, name, age, gender.
func (p PatientDescriptor) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(p.PatientID) == "" {
		missing = append(missing, "patient_id")
	}
	if strings.TrimSpace(p.PatientName) == "" {
		missing = append(missing, "patient_name")
	}
	if strings.TrimSpace(p.Age) == "" {
		missing = append(missing, "age")
	}
	if strings.TrimSpace(p.Gender) == "" {
		missing = append(missing, "gender")
	}
	return missing
}

// ValidateAge checks the numeric form-field constraint on age
func ValidateAge(age string) error {
	n, err := strconv.Atoi(strings.TrimSpace(age))
	if err != nil {
		return fmt.Errorf("age must be a whole number")
	}
	if n < 0 || n > MaxPatientAge {
		return fmt.Errorf("age must be between 0 and %d", MaxPatientAge)
	}
	return nil
}

// ImageSelection describes the diagnostic image picked during intake
type ImageSelection struct {
	Path   string // Local path of the selected file
	Name   string // Base name forwarded to the backend
	Kind   string // "dicom" or the decoded raster format
	Width  int
	Height int
}

// IsZero reports whether no image has been selected
func (i ImageSelection) IsZero() bool {
	return i.Path == "" && i.Name == ""
}
