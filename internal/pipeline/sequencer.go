package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/model"
)

// State is a sequencer state.
type State string

const (
	StateDispatch   State = "DISPATCH"
	StateTech       State = "TECH"
	StateCompetitor State = "COMPETITOR"
	StateMarket     State = "MARKET"
	StateSynthesize State = "SYNTHESIZE"
	StateValidate   State = "VALIDATE"
	StateRetryBump  State = "RETRY_BUMP"
	StateAdvance    State = "ADVANCE"
	StateDone       State = "DONE"

	stateStage    State = "STAGE"
	stateTerminal State = "TERMINAL"
)

// DefaultMaxRetries is the hard per-company retry ceiling.
const DefaultMaxRetries = 3

// ErrStepBudget is returned when a run exceeds its transition budget.
var ErrStepBudget = eris.New("pipeline: step budget exceeded")

// StepBudget is the maximum number of transitions a run may take. Each
// company costs one dispatch, one step per stage, synthesis, validation and
// advance, plus three steps per retry; DONE and the final aggregation add two.
func StepBudget(companies, stages, maxRetries int) int {
	return companies*(stages+4+3*maxRetries) + 2
}

// SummarySynthesizer produces the investment summary for the current company.
type SummarySynthesizer interface {
	Synthesize(ctx context.Context, st model.PipelineState) (Synthesis, error)
}

// Validator judges a synthesized summary.
type Validator interface {
	Validate(ctx context.Context, summary string, retryCount int) (model.Judgment, error)
}

// Aggregator builds the cross-company report from the accumulated summaries.
type Aggregator interface {
	Aggregate(ctx context.Context, reports []string) (*FinalReport, error)
}

// RunRecorder persists run progress. store.Store satisfies it.
type RunRecorder interface {
	CreateRun(ctx context.Context, companies []string) (*model.Run, error)
	SaveOutcome(ctx context.Context, runID string, outcome model.CompanyOutcome) error
	CompleteRun(ctx context.Context, runID, finalReport, reportPath string) error
	FailRun(ctx context.Context, runID string, cause error) error
}

// Transition is one entry of the run trace.
type Transition struct {
	Step       int            `json:"step"`
	State      State          `json:"state"`
	Company    string         `json:"company,omitempty"`
	RetryCount int            `json:"retry_count"`
	Judgment   model.Judgment `json:"judgment,omitempty"`
}

// Result is the outcome of Sequencer.Run.
type Result struct {
	model.RunResult
	State model.PipelineState `json:"-"`
	Trace []Transition        `json:"trace,omitempty"`
}

// Sequencer drives the per-company state machine.
type Sequencer struct {
	stages     []Stage
	synth      SummarySynthesizer
	gate       Validator
	final      Aggregator
	recorder   RunRecorder
	maxRetries int
}

// NewSequencer creates a Sequencer. Stages run in the given order for every
// company. A negative maxRetries selects DefaultMaxRetries.
func NewSequencer(stages []Stage, synth SummarySynthesizer, gate Validator, final Aggregator, maxRetries int) *Sequencer {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Sequencer{
		stages:     stages,
		synth:      synth,
		gate:       gate,
		final:      final,
		maxRetries: maxRetries,
	}
}

// WithRecorder persists runs and outcomes through r.
func (s *Sequencer) WithRecorder(r RunRecorder) *Sequencer {
	s.recorder = r
	return s
}

// run holds the mutable bookkeeping of a single Run call.
type run struct {
	result   *Result
	state    model.PipelineState
	judgment model.Judgment
	score    *model.InvestmentScore
	stageIdx int
}

// Run evaluates companies in order and returns the final report.
func (s *Sequencer) Run(ctx context.Context, companies []string) (*Result, error) {
	if len(companies) == 0 {
		return nil, eris.New("pipeline: no companies to evaluate")
	}
	companies = append([]string(nil), companies...)

	r := &run{result: &Result{RunResult: model.RunResult{Companies: companies}}}
	r.result.RunID = s.createRun(ctx, companies)

	log := zap.L().With(zap.String("run_id", r.result.RunID))
	log.Info("pipeline: run started", zap.Int("companies", len(companies)))

	budget := StepBudget(len(companies), len(s.stages), s.maxRetries)
	current := StateDispatch
	for current != stateTerminal {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(ctx, r, eris.Wrap(err, "pipeline: run canceled"))
		}
		r.result.Steps++
		if r.result.Steps > budget {
			return nil, s.fail(ctx, r, eris.Wrapf(ErrStepBudget, "after %d steps", budget))
		}

		traced := current
		if current == stateStage {
			traced = State(strings.ToUpper(s.stages[r.stageIdx].Name()))
		}
		log.Info("pipeline: transition",
			zap.Int("step", r.result.Steps),
			zap.String("state", string(traced)),
			zap.String("company", r.state.CurrentCompany),
			zap.Int("retry_count", r.state.RetryCount),
		)

		company := r.state.CurrentCompany
		next, err := s.step(ctx, r, current, companies)
		if r.state.CurrentCompany != "" {
			company = r.state.CurrentCompany
		}
		r.result.Trace = append(r.result.Trace, Transition{
			Step:       r.result.Steps,
			State:      traced,
			Company:    company,
			RetryCount: r.state.RetryCount,
			Judgment:   judgmentFor(traced, r.judgment),
		})
		if err != nil {
			return nil, s.fail(ctx, r, err)
		}
		current = next
	}

	r.result.State = r.state.Snapshot()
	log.Info("pipeline: run complete",
		zap.Int("steps", r.result.Steps),
		zap.Int("reports", len(r.state.AccumulatedReports)),
		zap.String("report_path", r.result.ReportPath),
	)
	return r.result, nil
}

// step executes one state and returns the next.
func (s *Sequencer) step(ctx context.Context, r *run, current State, companies []string) (State, error) {
	switch current {
	case StateDispatch:
		if err := r.state.Dispatch(companies); err != nil {
			return "", err
		}
		r.judgment = ""
		r.score = nil
		r.stageIdx = 0
		if len(s.stages) == 0 {
			return StateSynthesize, nil
		}
		return stateStage, nil

	case stateStage:
		stage := s.stages[r.stageIdx]
		patch, err := stage.Run(ctx, r.state.Snapshot())
		if err != nil {
			return "", eris.Wrapf(err, "pipeline: %s stage for %s", stage.Name(), r.state.CurrentCompany)
		}
		if err := r.state.Apply(patch); err != nil {
			return "", eris.Wrapf(err, "pipeline: apply %s patch", stage.Name())
		}
		r.stageIdx++
		if r.stageIdx < len(s.stages) {
			return stateStage, nil
		}
		return StateSynthesize, nil

	case StateSynthesize:
		syn, err := s.synth.Synthesize(ctx, r.state.Snapshot())
		if err != nil {
			return "", eris.Wrap(err, "pipeline: synthesize")
		}
		if err := r.state.Apply(model.Patch{model.FieldInvestmentSummary: syn.Summary}); err != nil {
			return "", err
		}
		r.score = syn.Score
		return StateValidate, nil

	case StateValidate:
		j, err := s.gate.Validate(ctx, r.state.InvestmentSummary, r.state.RetryCount)
		if err != nil {
			return "", eris.Wrap(err, "pipeline: validate")
		}
		if j == model.JudgmentRetry && r.state.RetryCount >= s.maxRetries {
			zap.L().Warn("pipeline: retry ceiling reached",
				zap.String("company", r.state.CurrentCompany),
				zap.Int("retry_count", r.state.RetryCount),
				zap.Int("max_retries", s.maxRetries),
			)
			j = model.JudgmentFail
		}
		r.judgment = j
		if j == model.JudgmentRetry {
			return StateRetryBump, nil
		}
		return StateAdvance, nil

	case StateRetryBump:
		r.state.BumpRetry()
		return StateSynthesize, nil

	case StateAdvance:
		outcome := model.CompanyOutcome{
			Index:    r.state.CompanyIndex,
			Company:  r.state.CurrentCompany,
			Judgment: r.judgment,
			Retries:  r.state.RetryCount,
			Summary:  r.state.InvestmentSummary,
		}
		if r.score != nil {
			final := r.score.Final
			outcome.FinalScore = &final
		}
		r.state.Advance()
		outcome.Summary = r.state.AccumulatedReports[len(r.state.AccumulatedReports)-1]
		r.result.Outcomes = append(r.result.Outcomes, outcome)
		s.saveOutcome(ctx, r.result.RunID, outcome)

		if r.state.CompanyIndex < len(companies) {
			return StateDispatch, nil
		}
		return StateDone, nil

	case StateDone:
		rep, err := s.final.Aggregate(ctx, r.state.AccumulatedReports)
		if err != nil {
			return "", eris.Wrap(err, "pipeline: final report")
		}
		if err := r.state.SetFinalReport(rep.Text); err != nil {
			return "", eris.Wrap(err, "pipeline: final report")
		}
		r.result.FinalReport = rep.Text
		r.result.ReportPath = rep.Path
		if rep.Warning != "" {
			r.result.Warnings = append(r.result.Warnings, rep.Warning)
		}
		s.completeRun(ctx, r.result)
		return stateTerminal, nil
	}
	return "", eris.Errorf("pipeline: unknown state %q", current)
}

func judgmentFor(st State, j model.Judgment) model.Judgment {
	if st == StateValidate {
		return j
	}
	return ""
}

func (s *Sequencer) createRun(ctx context.Context, companies []string) string {
	if s.recorder != nil {
		run, err := s.recorder.CreateRun(ctx, companies)
		if err == nil {
			return run.ID
		}
		zap.L().Warn("pipeline: failed to record run", zap.Error(err))
	}
	return uuid.New().String()
}

func (s *Sequencer) saveOutcome(ctx context.Context, runID string, outcome model.CompanyOutcome) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.SaveOutcome(ctx, runID, outcome); err != nil {
		zap.L().Warn("pipeline: failed to record outcome",
			zap.String("run_id", runID),
			zap.String("company", outcome.Company),
			zap.Error(err),
		)
	}
}

func (s *Sequencer) completeRun(ctx context.Context, res *Result) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.CompleteRun(ctx, res.RunID, res.FinalReport, res.ReportPath); err != nil {
		zap.L().Warn("pipeline: failed to record completion", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

// fail records the failure and returns cause unchanged.
func (s *Sequencer) fail(ctx context.Context, r *run, cause error) error {
	zap.L().Error("pipeline: run failed",
		zap.String("run_id", r.result.RunID),
		zap.String("company", r.state.CurrentCompany),
		zap.Int("step", r.result.Steps),
		zap.Error(cause),
	)
	if s.recorder != nil {
		if err := s.recorder.FailRun(context.WithoutCancel(ctx), r.result.RunID, cause); err != nil {
			zap.L().Warn("pipeline: failed to record failure", zap.String("run_id", r.result.RunID), zap.Error(err))
		}
	}
	return cause
}
