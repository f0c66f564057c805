package lib

import "github.com/trobanga/medreport/internal/models"

// Identity names a piece of workflow state that unlocks a stage
type Identity string

const (
	IdentityNone      Identity = ""
	IdentitySession   Identity = "session"
	IdentityDraft     Identity = "draft_report"
	IdentityFinalized Identity = "finalized_report"
)

// StagePrerequisites defines which identity must exist before a stage can be shown
var StagePrerequisites = map[models.Stage]Identity{
	models.StageIntake:    IdentityNone, // Always reachable
	models.StageLabEntry:  IdentitySession,
	models.StageReview:    IdentityDraft,
	models.StageFinalized: IdentityFinalized,
}

// IdentitySet records which identities currently exist
type IdentitySet struct {
	Session   bool
	Draft     bool
	Finalized bool
}

// Has reports whether the identity is present
func (s IdentitySet) Has(id Identity) bool {
	switch id {
	case IdentityNone:
		return true
	case IdentitySession:
		return s.Session
	case IdentityDraft:
		return s.Draft
	case IdentityFinalized:
		return s.Finalized
	default:
		return false
	}
}

// CanEnterStage checks if the stage's prerequisite identity exists.
// Returns the missing identity when it does not.
func CanEnterStage(stage models.Stage, ids IdentitySet) (bool, Identity) {
	required, exists := StagePrerequisites[stage]
	if !exists {
		return false, IdentityNone
	}
	if !ids.Has(required) {
		return false, required
	}
	return true, IdentityNone
}

// GetStagePrerequisite returns the identity required by the stage
func GetStagePrerequisite(stage models.Stage) Identity {
	return StagePrerequisites[stage]
}
