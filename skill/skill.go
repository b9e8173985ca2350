package skill

// Name identifies one of the closed set of skills the controller can
// dispatch. Unknown names are rejected rather than passed through.
type Name string

const (
	// Triage analyzes the task and decides the execution strategy.
	Triage Name = "triage"

	// Execute performs one implementation pass.
	Execute Name = "execute"

	// PreVerify authors the validation strategy.
	PreVerify Name = "pre-verify"

	// Verify executes the validation strategy.
	Verify Name = "verify"

	// DevilsAdvocate performs meta-analysis of repeated verification
	// failures.
	DevilsAdvocate Name = "devils-advocate"
)

// All returns every known skill.
func All() []Name {
	return []Name{Triage, Execute, PreVerify, Verify, DevilsAdvocate}
}

// Valid reports whether n is a known skill.
func (n Name) Valid() bool {
	switch n {
	case Triage, Execute, PreVerify, Verify, DevilsAdvocate:
		return true
	}
	return false
}

func (n Name) String() string {
	return string(n)
}

// Standard artifact names produced by skills.
const (
	ArtifactTriagePlan          = "triage-plan"
	ArtifactState               = "state"
	ArtifactFeedback            = "feedback"
	ArtifactValidationStrategy  = "validation-strategy"
	ArtifactVerificationResults = "verification-results"
	ArtifactAssumptionAnalysis  = "assumption-analysis"
	ArtifactRecommendedFix      = "recommended-fix"
)

// RequiredOutputs returns the artifact names a successful invocation
// of the skill must produce. A missing required output is a fatal
// invocation error, never an absent value.
func (n Name) RequiredOutputs() []string {
	switch n {
	case Triage:
		return []string{ArtifactTriagePlan}
	case Execute:
		return []string{ArtifactState}
	case PreVerify:
		return []string{ArtifactValidationStrategy}
	case Verify:
		return []string{ArtifactVerificationResults}
	case DevilsAdvocate:
		return []string{ArtifactAssumptionAnalysis}
	}
	return nil
}

// OptionalOutputs returns artifact names the skill may produce.
func (n Name) OptionalOutputs() []string {
	switch n {
	case Triage, Execute:
		return []string{ArtifactFeedback}
	case DevilsAdvocate:
		return []string{ArtifactRecommendedFix}
	}
	return nil
}
