package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/trustmap/internal/mapper"
	"github.com/ppiankov/trustmap/internal/model"
)

// Metadata keys stamped into the source entry of every batch judgment
const (
	KeyRunID       = "run_id"
	KeyObservation = "observation"
)

// MapperSource resolves mapper ids; *registry.Registry satisfies it
type MapperSource interface {
	Get(id string) (mapper.Mapper, error)
}

// Observation is one raw input bound for a named mapper
type Observation struct {
	Mapper string  `json:"mapper" yaml:"mapper"`
	Value  string  `json:"value" yaml:"value"`
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"` // 0 means 1
}

// UnmarshalJSON accepts the value as a JSON string, number or boolean
func (o *Observation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Mapper string          `json:"mapper"`
		Value  json.RawMessage `json:"value"`
		Weight float64         `json:"weight"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	value := bytes.TrimSpace(raw.Value)
	switch {
	case len(value) == 0 || bytes.Equal(value, []byte("null")):
		o.Value = ""
	case value[0] == '"':
		if err := json.Unmarshal(value, &o.Value); err != nil {
			return err
		}
	case value[0] == '{' || value[0] == '[':
		return model.FormatError("observation value for %q must be a scalar", raw.Mapper)
	default:
		o.Value = string(value)
	}
	o.Mapper, o.Weight = raw.Mapper, raw.Weight
	return nil
}

// EffectiveWeight returns the fusion weight, defaulting to 1
func (o Observation) EffectiveWeight() float64 {
	if o.Weight == 0 {
		return 1
	}
	return o.Weight
}

// ApplyJob maps one observation
type ApplyJob struct {
	Index       int
	Observation Observation
	RunID       string
	Source      MapperSource
	Limiter     *Limiter
}

// ApplyResult is the outcome of an ApplyJob
type ApplyResult struct {
	Index       int
	Observation Observation
	Judgment    model.Judgment
	Error       error
}

// GetError implements Result
func (r *ApplyResult) GetError() error {
	return r.Error
}

// Execute implements Job
func (j *ApplyJob) Execute(ctx context.Context) Result {
	result := &ApplyResult{Index: j.Index, Observation: j.Observation}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Observation.Mapper); err != nil {
			result.Error = fmt.Errorf("rate limit: %w", err)
			return result
		}
	}

	m, err := j.Source.Get(j.Observation.Mapper)
	if err != nil {
		result.Error = err
		return result
	}

	v, err := mapper.ParseValue(m.Type(), j.Observation.Value)
	if err != nil {
		result.Error = err
		return result
	}

	result.Judgment, result.Error = mapper.ApplyWithMetadata(m, v, map[string]any{
		KeyRunID:       j.RunID,
		KeyObservation: j.Index,
	})
	return result
}

// Batch is the ordered outcome of one Process call
type Batch struct {
	RunID   string
	Results []*ApplyResult // Same order as the input observations
}

// Failed counts results that carry an error
func (b *Batch) Failed() int {
	n := 0
	for _, r := range b.Results {
		if r.Error != nil {
			n++
		}
	}
	return n
}

// BatchProcessor maps many observations concurrently
type BatchProcessor struct {
	source      MapperSource
	concurrency int
	limiter     *Limiter
	logger      *zap.Logger
	newRunID    func() string
}

// NewBatchProcessor creates a processor with concurrency workers. A
// positive perSecond throttles each mapper id to that rate.
func NewBatchProcessor(source MapperSource, concurrency int, perSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		source:      source,
		concurrency: concurrency,
		logger:      zap.NewNop(),
		newRunID:    uuid.NewString,
	}
	if perSecond > 0 {
		b.limiter = NewLimiter(perSecond, burst)
	}
	return b
}

// WithLogger sets the logger and returns b
func (b *BatchProcessor) WithLogger(logger *zap.Logger) *BatchProcessor {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Limiter returns the per-mapper limiter, nil when unthrottled
func (b *BatchProcessor) Limiter() *Limiter {
	return b.limiter
}

// Process maps every observation. Per-observation failures are reported in
// the results; the returned error is only set when ctx ends the run early.
func (b *BatchProcessor) Process(ctx context.Context, observations []Observation) (*Batch, error) {
	batch := &Batch{
		RunID:   b.newRunID(),
		Results: make([]*ApplyResult, len(observations)),
	}
	if len(observations) == 0 {
		return batch, nil
	}

	jobs := make([]Job, len(observations))
	for i, obs := range observations {
		jobs[i] = &ApplyJob{
			Index:       i,
			Observation: obs,
			RunID:       batch.RunID,
			Source:      b.source,
			Limiter:     b.limiter,
		}
	}

	pool := NewPool(ctx, b.concurrency)
	defer pool.Shutdown()

	for _, res := range pool.Run(jobs) {
		if r, ok := res.(*ApplyResult); ok {
			batch.Results[r.Index] = r
		}
	}

	var missing int
	for i, r := range batch.Results {
		if r == nil {
			missing++
			batch.Results[i] = &ApplyResult{Index: i, Observation: observations[i], Error: context.Cause(ctx)}
		}
	}

	b.logger.Info("batch processed",
		zap.String("run_id", batch.RunID),
		zap.Int("observations", len(observations)),
		zap.Int("failed", batch.Failed()))

	if err := ctx.Err(); err != nil {
		return batch, fmt.Errorf("batch %s interrupted with %d of %d observations unprocessed: %w",
			batch.RunID, missing, len(observations), err)
	}
	return batch, nil
}

// ProcessFile reads observations from path and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) (*Batch, error) {
	observations, err := ReadObservations(path)
	if err != nil {
		return nil, err
	}
	return b.Process(ctx, observations)
}

// ReadObservations reads one observation per line: "mapper_id value [weight]".
// Blank lines and lines starting with # are skipped.
func ReadObservations(path string) ([]Observation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open observations: %w", err)
	}
	defer func() { _ = file.Close() }()

	var observations []Observation
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		obs, err := parseObservation(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		observations = append(observations, obs)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read observations: %w", err)
	}

	return observations, nil
}

func parseObservation(line string) (Observation, error) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 2:
		return Observation{Mapper: fields[0], Value: fields[1]}, nil
	case 3:
		w, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || w <= 0 {
			return Observation{}, model.FormatError("weight %q is not a positive number", fields[2])
		}
		return Observation{Mapper: fields[0], Value: fields[1], Weight: w}, nil
	default:
		return Observation{}, model.FormatError("expected \"mapper_id value [weight]\", got %d fields", len(fields))
	}
}
