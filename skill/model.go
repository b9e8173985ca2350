package skill

import (
	"github.com/randalmurphal/llmkit/model"
)

// DefaultModelMap maps skills to default models. Meta-analysis gets
// the reasoning tier; implementation and verification run on the
// default tier.
var DefaultModelMap = map[Name]model.ModelName{
	Triage:         model.ModelSonnet,
	Execute:        model.ModelSonnet,
	PreVerify:      model.ModelSonnet,
	Verify:         model.ModelSonnet,
	DevilsAdvocate: model.ModelOpus,
}

// TierForSkill returns the appropriate tier for a skill.
func TierForSkill(n Name) model.Tier {
	if n == DevilsAdvocate {
		return model.TierThinking
	}
	return model.TierDefault
}

// NewSelector creates a model selector configured for skill runs.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if n, ok := task.(Name); ok {
				return TierForSkill(n)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel selects the model for a skill. Uses the default model
// map unless the skill is unknown, then falls back by tier.
func SelectModel(n Name) model.ModelName {
	if m, ok := DefaultModelMap[n]; ok {
		return m
	}
	if TierForSkill(n) == model.TierThinking {
		return model.ModelOpus
	}
	return model.ModelSonnet
}
