package models

// Stage is the active step of the authoring workflow
type Stage string

const (
	StageIntake    Stage = "intake"
	StageLabEntry  Stage = "lab_entry"
	StageReview    Stage = "review"
	StageFinalized Stage = "finalized"
)

// Stages lists every stage in workflow order
var Stages = []Stage{StageIntake, StageLabEntry, StageReview, StageFinalized}

// IsValidStage checks if the stage is recognized
func IsValidStage(s Stage) bool {
	switch s {
	case StageIntake, StageLabEntry, StageReview, StageFinalized:
		return true
	default:
		return false
	}
}

// Index returns the position of the stage in workflow order, or -1
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage that follows s, or s itself for the last stage
func (s Stage) Next() Stage {
	i := s.Index()
	if i < 0 || i == len(Stages)-1 {
		return s
	}
	return Stages[i+1]
}

// Title returns a display label for the stage
func (s Stage) Title() string {
	switch s {
	case StageIntake:
		return "Upload & Patient Info"
	case StageLabEntry:
		return "Lab Values"
	case StageReview:
		return "Review Report"
	case StageFinalized:
		return "Download"
	default:
		return string(s)
	}
}

// CanTransitionTo checks if a stage transition is valid
// Valid transitions:
//
//	intake -> lab_entry
//	lab_entry -> review
//	review -> finalized
//	any -> intake (reset)
func (s Stage) CanTransitionTo(next Stage) bool {
	if next == StageIntake {
		return IsValidStage(s)
	}
	switch s {
	case StageIntake:
		return next == StageLabEntry
	case StageLabEntry:
		return next == StageReview
	case StageReview:
		return next == StageFinalized
	default:
		return false
	}
}
