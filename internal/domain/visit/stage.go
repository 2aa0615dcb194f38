package visit

// Stage is one discrete point in a visit's operational lifecycle. The set is
// closed: a Stage value that does not appear below never enters the system.
type Stage string

const (
	StageRegistered         Stage = "registered"
	StageAtTriage           Stage = "at_triage"
	StageWithDoctor         Stage = "with_doctor"
	StagePayingConsultation Stage = "paying_consultation"
	StageAtLab              Stage = "at_lab"
	StageAtImaging          Stage = "at_imaging"
	StagePayingDiagnosis    Stage = "paying_diagnosis"
	StageAtPharmacy         Stage = "at_pharmacy"
	StagePayingPharmacy     Stage = "paying_pharmacy"
	StageAdmitted           Stage = "admitted"
	StageDischarged         Stage = "discharged"
)

// stageGraph holds, for each stage, the stages reachable by a single legal
// hop. It is static configuration; changing it means shipping a new build.
var stageGraph = map[Stage][]Stage{
	StageRegistered:         {StageAtTriage, StagePayingConsultation},
	StageAtTriage:           {StagePayingConsultation, StageWithDoctor},
	StagePayingConsultation: {StageWithDoctor},
	StageWithDoctor: {
		StageAtLab, StageAtImaging, StageAtPharmacy,
		StagePayingDiagnosis, StageAdmitted, StageDischarged,
	},
	StageAtLab:           {StagePayingDiagnosis, StageWithDoctor},
	StageAtImaging:       {StagePayingDiagnosis, StageWithDoctor},
	StagePayingDiagnosis: {StageAtLab, StageAtImaging, StageWithDoctor, StageAtPharmacy},
	StageAtPharmacy:      {StagePayingPharmacy, StageWithDoctor},
	StagePayingPharmacy:  {StageAdmitted, StageDischarged},
	StageAdmitted:        {StageDischarged},
	StageDischarged:      {},
}

// IsKnownStage reports whether s is a member of the catalog.
func IsKnownStage(s Stage) bool {
	_, ok := stageGraph[s]
	return ok
}

// ParseStage validates a raw stage name from a request body.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !IsKnownStage(s) {
		return "", ErrInvalidStage
	}
	return s, nil
}

// AllowedNextStages returns the set of stages reachable from current by a
// single legal hop. The returned map is a copy; callers may not mutate the
// catalog.
func AllowedNextStages(current Stage) map[Stage]bool {
	next := make(map[Stage]bool, len(stageGraph[current]))
	for _, s := range stageGraph[current] {
		next[s] = true
	}
	return next
}

// IsTerminal reports whether no transitions are defined out of s.
func IsTerminal(s Stage) bool {
	return IsKnownStage(s) && len(stageGraph[s]) == 0
}

// AllStages returns every catalog member. Used by the active-visits
// projection and by tests that sweep the transition matrix.
func AllStages() []Stage {
	stages := make([]Stage, 0, len(stageGraph))
	for s := range stageGraph {
		stages = append(stages, s)
	}
	return stages
}
