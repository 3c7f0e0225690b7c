package scoring

import (
	"context"

	"github.com/jobops/jobops/internal/llm"
	"github.com/jobops/jobops/internal/models"
)

// Evaluation is the result of a persistence-free scoring pass.
type Evaluation struct {
	Heuristic  HeuristicResult `json:"heuristic"`
	Reason     *ReasonOutput   `json:"reason,omitempty"`
	FinalScore *float64        `json:"final_score,omitempty"`
	Usage      llm.Usage       `json:"usage"`
}

// ExtractFields runs the extract stage against raw JD text without touching
// the database. Used by the admin dry-run endpoint.
func ExtractFields(ctx context.Context, runner llm.Runner, jobURL, jdText string) (*ExtractOutput, llm.Usage, error) {
	if !runner.Available() {
		return nil, llm.Usage{}, llm.ErrUnavailable
	}
	probe := &models.Job{JobURL: jobURL, JDTextClean: jdText}
	res, err := runner.Complete(ctx, extractSystemPrompt, buildExtractPrompt(probe))
	if err != nil {
		return nil, llm.Usage{}, err
	}
	var out ExtractOutput
	if err := parseJSONBlock(res.Text, &out); err != nil {
		return nil, res.Usage, err
	}
	return &out, res.Usage, nil
}

// EvaluateJD runs the heuristic gate and, when it passes, the reason stage
// against raw JD text. Nothing is persisted; the caller sees the scores the
// pipeline would have produced.
func EvaluateJD(ctx context.Context, runner llm.Runner, jdText string, targets []*models.Target, cfg Config) (*Evaluation, error) {
	if cfg.WeightMust == 0 && cfg.WeightNice == 0 {
		cfg.WeightMust, cfg.WeightNice = 0.7, 0.3
	}
	if cfg.RejectPenalty == 0 {
		cfg.RejectPenalty = 25
	}

	eval := &Evaluation{
		Heuristic: runHeuristic(jdText, targets, cfg.MinJDChars, cfg.MinTargetSignal),
	}
	if !eval.Heuristic.Passed {
		return eval, nil
	}
	if !runner.Available() {
		return nil, llm.ErrUnavailable
	}

	probe := &models.Job{JDTextClean: jdText}
	res, err := runner.Complete(ctx, reasonSystemPrompt, buildReasonPrompt(probe, targets, cfg.WeightMust, cfg.WeightNice))
	if err != nil {
		return nil, err
	}
	var reasoned ReasonOutput
	if err := parseJSONBlock(res.Text, &reasoned); err != nil {
		return nil, err
	}

	final := clip(cfg.WeightMust*reasoned.ScoreMust+cfg.WeightNice*reasoned.ScoreNice-penalty(reasoned.RejectTriggered == 1, cfg.RejectPenalty), 0, 100)
	eval.Reason = &reasoned
	eval.FinalScore = &final
	eval.Usage = res.Usage
	return eval, nil
}
