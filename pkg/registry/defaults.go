package registry

import "github.com/aretw0/stageflow/pkg/domain"

// Stage ids of the default evaluation pipeline.
const (
	StageProjectSetup      = "project-setup"
	StageFeedbackAnalysis  = "feedback-analysis"
	StageEvalPlanning      = "eval-planning"
	StageEvalPlanOverview  = "eval-planning-overview"
	StageEvalSetInputSetup = "eval-set-input-setup"
	StageModelEvaluation   = "model-evaluation"
	StageReports           = "reports"
)

// Default returns the model evaluation pipeline.
func Default() *Registry {
	return MustNew(
		domain.Stage{
			ID:          StageProjectSetup,
			Name:        "Project Setup",
			Target:      "/project-setup",
			Description: "Describe the product, its users and the model under evaluation.",
		},
		domain.Stage{
			ID:          StageFeedbackAnalysis,
			Name:        "Feedback Analysis",
			Target:      "/feedback-analysis",
			Description: "Review collected feedback and group it into problems and capabilities.",
		},
		domain.Stage{
			ID:          StageEvalPlanning,
			Name:        "Eval Configuration",
			Target:      "/eval-planning",
			Description: "Pick the capabilities to evaluate and the metrics for each one.",
		},
		domain.Stage{
			ID:          StageEvalPlanOverview,
			Name:        "Plan Overview",
			Target:      "/eval-planning/overview",
			Description: "Confirm the evaluation blueprint before building eval sets.",
		},
		domain.Stage{
			ID:          StageEvalSetInputSetup,
			Name:        "Eval Set Input Set Up",
			Target:      "/eval-set-input-setup",
			Description: "Attach datasets and prompts that feed each evaluation.",
		},
		domain.Stage{
			ID:          StageModelEvaluation,
			Name:        "Model Evaluation",
			Target:      "/model-evaluation",
			Description: "Run the evaluation against the selected models.",
		},
		domain.Stage{
			ID:          StageReports,
			Name:        "Reports",
			Target:      "/reports",
			Description: "Inspect scores and export the evaluation report.",
		},
	)
}
