package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"stealthcompany.com/labmerge/internal/config"
	"stealthcompany.com/labmerge/internal/dataset"
	"stealthcompany.com/labmerge/internal/exam"
	"stealthcompany.com/labmerge/internal/metrics"
	"stealthcompany.com/labmerge/internal/orchestrator"
	"stealthcompany.com/labmerge/internal/planner"
	"stealthcompany.com/labmerge/internal/scratch"
)

// Source is one laboratory input file
type Source struct {
	Name   string
	Path   string
	Format dataset.Format
}

// Options drives a single run. Nothing is read from globals.
type Options struct {
	SourceA          Source
	SourceB          Source
	OutputPath       string
	OutputMode       string
	AgePolicy        exam.AgePolicy
	PreviewCount     int
	LookupSequential string
	LookupBinary     string
	PlannerCosts     []int
	PlannerCapacity  int
	MetricsTextfile  string
	SystemMetrics    bool
}

// OptionsFromConfig converts validated configuration into run options
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	formatA, err := dataset.ParseFormat(cfg.SourceAFormat)
	if err != nil {
		return Options{}, err
	}
	formatB, err := dataset.ParseFormat(cfg.SourceBFormat)
	if err != nil {
		return Options{}, err
	}
	mode, err := config.ParseOutputMode(cfg.OutputMode)
	if err != nil {
		return Options{}, err
	}
	policy, err := exam.ParseAgePolicy(cfg.AgePolicy)
	if err != nil {
		return Options{}, err
	}
	costs, err := config.ParseCosts(cfg.PlannerCosts)
	if err != nil {
		return Options{}, err
	}

	return Options{
		SourceA:          Source{Name: "lab_a", Path: cfg.SourceAPath, Format: formatA},
		SourceB:          Source{Name: "lab_b", Path: cfg.SourceBPath, Format: formatB},
		OutputPath:       cfg.OutputPath,
		OutputMode:       mode,
		AgePolicy:        policy,
		PreviewCount:     cfg.PreviewCount,
		LookupSequential: cfg.LookupSequential,
		LookupBinary:     cfg.LookupBinary,
		PlannerCosts:     costs,
		PlannerCapacity:  cfg.PlannerCapacity,
		MetricsTextfile:  cfg.MetricsTextfile,
		SystemMetrics:    cfg.EnableSystemMetrics,
	}, nil
}

// Exporter receives the merged records after the output file is written
type Exporter interface {
	Export(ctx context.Context, records []exam.Record) (int, error)
}

// Report summarizes a finished run
type Report struct {
	SourceASize     int
	SourceBSize     int
	MergedSize      int
	SequentialHits  []exam.Record
	BinaryHits      []exam.Record
	QueueOrder      []exam.Record
	StackOrder      []exam.Record
	Plan            planner.Result
	OutputPath      string
	Exported        int
	CompletedStages []string
}

// Pipeline runs extract, transform and load over two laboratory sources
type Pipeline struct {
	opts     Options
	logger   zerolog.Logger
	exporter Exporter

	sourceA *dataset.Dataset
	sourceB *dataset.Dataset
	merged  *dataset.Dataset
	sorted  *dataset.Dataset
	report  *Report
}

// New creates a pipeline. exporter may be nil.
func New(opts Options, logger zerolog.Logger, exporter Exporter) *Pipeline {
	return &Pipeline{
		opts:     opts,
		logger:   logger,
		exporter: exporter,
	}
}

// Run executes every stage in order and stops at the first failure
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if p.opts.MetricsTextfile != "" || p.opts.SystemMetrics {
		metrics.GetInstance().InitializeMetrics()
	}

	p.report = &Report{OutputPath: p.opts.OutputPath}
	normalizer := exam.NewNormalizer(p.opts.AgePolicy)
	runner := orchestrator.NewStageRunner(p.logger)
	start := time.Now()

	stages := []orchestrator.Stage{
		{Name: "extract_" + p.opts.SourceA.Name, Run: func(ctx context.Context) error {
			ds, err := p.extract(p.opts.SourceA, normalizer)
			p.sourceA = ds
			return err
		}},
		{Name: "extract_" + p.opts.SourceB.Name, Run: func(ctx context.Context) error {
			ds, err := p.extract(p.opts.SourceB, normalizer)
			p.sourceB = ds
			return err
		}},
		{Name: "merge", Run: p.merge},
		{Name: "sort", Run: p.sortMerged},
		{Name: "lookup", Run: p.lookup},
		{Name: "scratch", Run: p.drainScratch},
		{Name: "plan", Run: p.plan},
		{Name: "save", Run: p.save},
	}
	if p.exporter != nil {
		stages = append(stages, orchestrator.Stage{Name: "export", Run: p.export})
	}

	err := runner.Run(ctx, stages...)
	p.report.CompletedStages = runner.Completed()
	if err != nil {
		_ = p.flushMetrics()
		return p.report, err
	}

	metrics.RecordRunSuccess()
	if err := p.flushMetrics(); err != nil {
		return p.report, err
	}

	p.logger.Info().
		Int("merged", p.report.MergedSize).
		Str("output", p.opts.OutputPath).
		Dur("elapsed", time.Since(start)).
		Msg("Run completed")
	return p.report, nil
}

func (p *Pipeline) extract(src Source, normalizer *exam.Normalizer) (*dataset.Dataset, error) {
	ds, err := dataset.Load(src.Path, src.Format, normalizer)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src.Name, err)
	}

	metrics.RecordSourceLoad(src.Name, string(src.Format), ds.Size())
	p.logger.Info().
		Str("source", src.Name).
		Str("format", string(src.Format)).
		Strs("columns", ds.ColumnNames()).
		Int("size", ds.Size()).
		Msg("Loaded source")
	return ds, nil
}

func (p *Pipeline) merge(ctx context.Context) error {
	p.merged = dataset.Merge(p.sourceA, p.sourceB)

	p.report.SourceASize = p.sourceA.Size()
	p.report.SourceBSize = p.sourceB.Size()
	p.report.MergedSize = p.merged.Size()
	metrics.RecordDatasetSize("merged", p.merged.Size())

	p.logger.Info().Int("size", p.merged.Size()).Msg("Merged datasets")
	return nil
}

func (p *Pipeline) sortMerged(ctx context.Context) error {
	p.logger.Info().Strs("names", patientNames(p.merged.Head(p.opts.PreviewCount))).Msg("Before sort")
	p.sorted = p.merged.Sort()
	p.logger.Info().Strs("names", patientNames(p.sorted.Head(p.opts.PreviewCount))).Msg("After sort")
	return nil
}

func (p *Pipeline) lookup(ctx context.Context) error {
	if p.opts.LookupSequential != "" {
		hits, err := Lookup(p.sorted, p.opts.LookupSequential, MethodSequential)
		if err != nil {
			return err
		}
		p.report.SequentialHits = hits
		p.logHits(MethodSequential, p.opts.LookupSequential, hits)
	}

	if p.opts.LookupBinary != "" {
		hits, err := Lookup(p.sorted, p.opts.LookupBinary, MethodBinary)
		if err != nil {
			return err
		}
		p.report.BinaryHits = hits
		p.logHits(MethodBinary, p.opts.LookupBinary, hits)
	}
	return nil
}

func (p *Pipeline) logHits(method, name string, hits []exam.Record) {
	p.logger.Info().
		Str("method", method).
		Str("patient", name).
		Int("matches", len(hits)).
		Msg("Exams found")
	for _, r := range hits {
		p.logger.Info().
			Str("method", method).
			Str("exam_type", r.Exam.Type).
			Str("date", r.Exam.Date).
			Msg("Exam")
	}
}

func (p *Pipeline) drainScratch(ctx context.Context) error {
	records := p.sorted.Records()

	queue := scratch.NewQueue(records)
	p.logger.Info().Strs("head", examLabels(queue.Head(p.opts.PreviewCount))).Msg("Exam queue")
	for {
		r, ok := queue.Dequeue()
		if !ok {
			break
		}
		p.report.QueueOrder = append(p.report.QueueOrder, r)
		p.logger.Debug().Str("exam", examLabel(r)).Msg("Dequeued")
	}

	stack := scratch.NewStack(records)
	p.logger.Info().Strs("head", examLabels(stack.Head(p.opts.PreviewCount))).Msg("Exam stack")
	for {
		r, ok := stack.Pop()
		if !ok {
			break
		}
		p.report.StackOrder = append(p.report.StackOrder, r)
		p.logger.Debug().Str("exam", examLabel(r)).Msg("Popped")
	}

	p.logger.Info().
		Int("dequeued", len(p.report.QueueOrder)).
		Int("popped", len(p.report.StackOrder)).
		Msg("Drained scratch structures")
	return nil
}

func (p *Pipeline) plan(ctx context.Context) error {
	res, err := planner.Solve(p.opts.PlannerCosts, p.opts.PlannerCapacity)
	if err != nil {
		return err
	}
	p.report.Plan = res

	if !res.RecursiveSkipped {
		metrics.RecordPlanner("recursive", res.Recursive)
	}
	metrics.RecordPlanner("memoized", res.Memoized)
	metrics.RecordPlanner("tabulated", res.Tabulated)

	p.logger.Info().
		Ints("costs", res.Costs).
		Int("capacity", res.Capacity).
		Int("recursive", res.Recursive).
		Bool("recursive_skipped", res.RecursiveSkipped).
		Int("memoized", res.Memoized).
		Int("tabulated", res.Tabulated).
		Ints("selection", res.Selection).
		Msg("Capacity plan")
	return nil
}

func (p *Pipeline) save(ctx context.Context) error {
	var err error
	if p.opts.OutputMode == config.OutputGrouped {
		err = p.sorted.GroupByPatient().Save(p.opts.OutputPath)
	} else {
		err = p.sorted.Save(p.opts.OutputPath)
	}
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("path", p.opts.OutputPath).
		Str("mode", p.opts.OutputMode).
		Msg("Saved merged dataset")
	return nil
}

func (p *Pipeline) export(ctx context.Context) error {
	n, err := p.exporter.Export(ctx, p.sorted.Records())
	p.report.Exported = n
	if err != nil {
		return fmt.Errorf("failed to export records: %w", err)
	}

	p.logger.Info().Int("exported", n).Msg("Exported merged records")
	return nil
}

func (p *Pipeline) flushMetrics() error {
	if p.opts.SystemMetrics {
		metrics.CollectSystemMetrics()
	}
	if p.opts.MetricsTextfile == "" {
		return nil
	}

	if err := metrics.WriteTextfile(p.opts.MetricsTextfile); err != nil {
		p.logger.Error().Err(err).Msg("Failed to write metrics")
		return err
	}
	return nil
}

func patientNames(records []exam.Record) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Patient.Name
	}
	return names
}

func examLabel(r exam.Record) string {
	return r.Patient.Name + " - " + r.Exam.Type
}

func examLabels(records []exam.Record) []string {
	labels := make([]string, len(records))
	for i, r := range records {
		labels[i] = examLabel(r)
	}
	return labels
}
