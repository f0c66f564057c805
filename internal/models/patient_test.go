package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/trobanga/medreport/internal/models"
)

func TestDefaultPatientDescriptor(t *testing.T) {
	now := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
	p := models.DefaultPatientDescriptor(now)

	assert.Equal(t, models.GenderMale, p.Gender)
	assert.Equal(t, "2024-03-09", p.StudyDate)
	assert.Equal(t, models.ModalityXRay, p.ImageType)
	assert.Empty(t, p.PatientID)
}

func TestPatientDescriptor_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		p    models.PatientDescriptor
		want []string
	}{
		{
			name: "complete",
			p:    models.PatientDescriptor{PatientID: "PAT-1", PatientName: "Jane Doe", Age: "45", Gender: "Female"},
			want: nil,
		},
		{
			name: "all blank",
			p:    models.PatientDescriptor{},
			want: []string{"patient_id", "patient_name", "age", "gender"},
		},
		{
			name: "whitespace counts as blank",
			p:    models.PatientDescriptor{PatientID: "  ", PatientName: "Jane", Age: "45", Gender: "Male"},
			want: []string{"patient_id"},
		},
		{
			name: "study date and modality are optional",
			p:    models.PatientDescriptor{PatientID: "P", PatientName: "N", Age: "1", Gender: "Other"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.MissingFields())
		})
	}
}

func TestValidateAge(t *testing.T) {
	assert.NoError(t, models.ValidateAge("0"))
	assert.NoError(t, models.ValidateAge(" 45 "))
	assert.NoError(t, models.ValidateAge("150"))
	assert.Error(t, models.ValidateAge("151"))
	assert.Error(t, models.ValidateAge("-1"))
	assert.Error(t, models.ValidateAge("forty"))
	assert.Error(t, models.ValidateAge("4.5"))
}
