package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/trustmap/internal/fusion"
	"github.com/ppiankov/trustmap/internal/model"
	"github.com/ppiankov/trustmap/internal/score"
	"github.com/ppiankov/trustmap/internal/worker"
)

// Case is a set of observations about one subject, evaluated together
type Case struct {
	Subject      string               `json:"subject" yaml:"subject"`
	Operator     string               `json:"operator,omitempty" yaml:"operator,omitempty"` // Overrides fusion.operator
	Observations []worker.Observation `json:"observations" yaml:"observations"`
}

// Validate checks the case before any mapper runs
func (c *Case) Validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return model.ArgumentError("case subject must not be empty")
	}
	if len(c.Observations) == 0 {
		return model.ArgumentError("case %q has no observations", c.Subject)
	}
	for i, o := range c.Observations {
		if o.Mapper == "" {
			return model.ArgumentError("observation %d has no mapper", i)
		}
		if o.Weight < 0 {
			return model.ArgumentError("observation %d has negative weight %g", i, o.Weight)
		}
	}
	if _, err := fusion.ParseOperator(c.Operator); err != nil {
		return err
	}
	return nil
}

// LoadCase reads a case from a .json, .yaml or .yml file
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case: %w", err)
	}

	var c Case
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, model.WrapFormat(err, "decode case %s", filepath.Base(path))
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, model.WrapFormat(err, "decode case %s", filepath.Base(path))
		}
	default:
		return nil, model.FormatError("unsupported case file %s (expected .json, .yaml or .yml)", filepath.Base(path))
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Pipeline maps, fuses and classifies cases
type Pipeline struct {
	batch    *worker.BatchProcessor
	engine   *fusion.Engine
	scorer   *score.Scorer
	renderer *Renderer
	config   *model.Config
	logger   *zap.Logger
	clock    func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the clock used for report and fusion timestamps
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewPipeline creates a pipeline resolving mappers from source
func NewPipeline(cfg *model.Config, source worker.MapperSource, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Pipeline{
		config: cfg,
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	engine, err := fusion.NewEngine(
		fusion.WithSensitivity(cfg.Fusion.Sensitivity),
		fusion.WithClock(p.clock),
	)
	if err != nil {
		return nil, err
	}

	p.engine = engine
	p.scorer = score.NewScorer(cfg.Decision)
	p.renderer = NewRenderer(cfg.Output.IncludeFooter, os.Stdout)
	p.batch = worker.NewBatchProcessor(source, cfg.Concurrency.Workers, cfg.Concurrency.RatePerMapper, cfg.Concurrency.Burst).
		WithLogger(p.logger)

	return p, nil
}

// Evaluate maps every observation of c, fuses the ones that mapped and
// classifies the result. Observations that fail to map are reported and
// left out of fusion; if none map, the decision is inconclusive.
func (p *Pipeline) Evaluate(ctx context.Context, c *Case) (*model.Report, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	operator := c.Operator
	if operator == "" {
		operator = p.config.Fusion.Operator
	}
	op, err := fusion.ParseOperator(operator)
	if err != nil {
		return nil, err
	}

	// 1. Map observations concurrently
	batch, err := p.batch.Process(ctx, c.Observations)
	if err != nil {
		return nil, fmt.Errorf("map observations: %w", err)
	}

	report := &model.Report{
		Subject:      c.Subject,
		RunID:        batch.RunID,
		EvaluatedAt:  p.clock().UTC(),
		Observations: make([]model.ObservationResult, len(batch.Results)),
	}

	// 2. Collect what mapped, in input order
	var judgments []model.Judgment
	var weights []float64
	for i, r := range batch.Results {
		res := model.ObservationResult{
			Mapper: r.Observation.Mapper,
			Value:  r.Observation.Value,
			Weight: r.Observation.EffectiveWeight(),
		}
		if r.Error != nil {
			res.Error = r.Error.Error()
			p.logger.Warn("observation not mapped",
				zap.String("subject", c.Subject),
				zap.String("mapper", res.Mapper),
				zap.Error(r.Error))
		} else {
			j := r.Judgment
			res.Judgment = &j
			judgments = append(judgments, j)
			weights = append(weights, res.Weight)
		}
		report.Observations[i] = res
	}

	// 3. Fuse
	if len(judgments) > 0 {
		fused, diag, err := p.engine.Combine(op, judgments, weights)
		if err != nil {
			return nil, fmt.Errorf("fuse observations: %w", err)
		}
		report.Fused = &fused
		report.Diagnostics = &diag
	}

	// 4. Classify and explain
	assessment := p.scorer.Assess(report.Observations, report.Fused, report.Diagnostics)
	report.Decision = assessment.Decision
	report.Signals = assessment.Signals
	if report.Signals == nil {
		report.Signals = []model.Signal{}
	}

	p.logger.Info("case evaluated",
		zap.String("subject", c.Subject),
		zap.String("run_id", report.RunID),
		zap.String("decision", string(report.Decision)),
		zap.Int("fused_inputs", len(judgments)))

	return report, nil
}

// EvaluateFile loads a case file and evaluates it
func (p *Pipeline) EvaluateFile(ctx context.Context, path string) (*model.Report, error) {
	c, err := LoadCase(path)
	if err != nil {
		return nil, err
	}
	return p.Evaluate(ctx, c)
}

// RenderReport writes the JSON and Markdown renderings (either path may be
// empty) and prints the summary
func (p *Pipeline) RenderReport(report *model.Report, jsonPath string, mdPath string) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		p.logger.Debug("wrote JSON report", zap.String("path", jsonPath))
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		p.logger.Debug("wrote Markdown report", zap.String("path", mdPath))
	}

	p.renderer.RenderSummary(report)

	return nil
}

// Renderer returns the pipeline's renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}
