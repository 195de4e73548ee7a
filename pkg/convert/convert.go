// Package convert runs the full conversion pipeline over a registry:
// validation, ARB orientation, length safety, region splitting, extent
// resolution, lattice containment and evaluation of every region.
package convert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chazu/zonecsg/pkg/body"
	"github.com/chazu/zonecsg/pkg/config"
	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/extent"
	"github.com/chazu/zonecsg/pkg/fanout"
	"github.com/chazu/zonecsg/pkg/kernel"
	"github.com/chazu/zonecsg/pkg/lattice"
	"github.com/chazu/zonecsg/pkg/registry"
	"github.com/chazu/zonecsg/pkg/safety"
	"github.com/chazu/zonecsg/pkg/split"
)

// TracerName is the instrumentation name of the default tracer.
const TracerName = "github.com/chazu/zonecsg/pkg/convert"

// Span attribute keys.
const (
	AttrRunID   = "zonecsg.run_id"
	AttrKernel  = "zonecsg.kernel"
	AttrStage   = "zonecsg.stage"
	AttrRegions = "zonecsg.regions"
	AttrBodies  = "zonecsg.bodies"
)

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// WithTracer sets the tracer stage spans are started on.
func WithTracer(t trace.Tracer) Option {
	return func(c *Converter) { c.tracer = t }
}

// WithRegisterer registers conversion metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Converter) { c.metrics = NewMetrics(reg) }
}

// WithKernel replaces the kernel named by the configuration.
func WithKernel(k kernel.Kernel) Option {
	return func(c *Converter) { c.k = k }
}

// Converter turns registries into evaluated geometries. A Converter may run
// several conversions concurrently when its kernel is safe for concurrent
// use.
type Converter struct {
	cfg     config.Config
	k       kernel.Kernel
	log     *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// New validates cfg and returns a converter.
func New(cfg config.Config, opts ...Option) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Converter{
		cfg:    cfg,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(TracerName),
	}
	for _, o := range opts {
		o(c)
	}
	if c.k == nil {
		k, err := NewKernel(cfg)
		if err != nil {
			return nil, err
		}
		c.k = k
	}
	return c, nil
}

// Kernel returns the kernel conversions run on.
func (c *Converter) Kernel() kernel.Kernel { return c.k }

// run carries the state of one conversion.
type run struct {
	*Converter
	id  string
	log *slog.Logger
	ev  *csg.Evaluator
}

// Convert runs every stage over reg. Failures are *StageError naming the
// stage and, when known, the offending entity. reg is not modified.
func (c *Converter) Convert(ctx context.Context, reg *registry.Registry) (*Output, error) {
	id := uuid.NewString()
	r := &run{Converter: c, id: id, log: c.log.With("run", id)}
	r.ev = csg.NewEvaluator(c.k, csg.WithLogger(r.log), csg.WithNullHook(c.metrics.IncrementNull))

	ctx, span := c.tracer.Start(ctx, "convert",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrRunID, id),
			attribute.String(AttrKernel, c.k.Name()),
			attribute.Int(AttrRegions, len(reg.Regions())),
			attribute.Int(AttrBodies, reg.BodyCount()),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := r.convert(ctx, reg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	r.log.Info("conversion complete",
		"regions", len(out.Regions),
		"lattices", len(out.Lattices),
		"duration", time.Since(start))
	return out, nil
}

func (r *run) convert(ctx context.Context, reg *registry.Registry) (*Output, error) {
	var (
		ext      *extent.Result
		contains []lattice.Containment
		regions  []RegionOutput
		err      error
	)
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageValidate, func(context.Context) error { return r.validate(reg) }},
		{StageOrient, func(ctx context.Context) (err error) { reg, err = r.orient(ctx, reg); return }},
		{StageSafety, func(context.Context) (err error) { reg, err = safety.Expand(reg, r.cfg.LengthSafety); return }},
		{StageSplit, func(ctx context.Context) (err error) { reg, err = r.split(ctx, reg); return }},
		{StageExtent, func(ctx context.Context) (err error) { ext, err = r.extents(ctx, reg); return }},
		{StageLattice, func(ctx context.Context) (err error) { contains, err = r.lattices(ctx, reg, ext); return }},
		{StageEmit, func(ctx context.Context) (err error) { regions, err = r.emit(ctx, reg, ext); return }},
	}
	for _, s := range steps {
		if err = r.stage(ctx, s.name, s.fn); err != nil {
			return nil, err
		}
	}
	return &Output{
		RunID:    r.id,
		Registry: reg,
		Regions:  regions,
		Lattices: groupLattices(reg, contains),
	}, nil
}

// stage runs fn in its own span and records its duration.
func (r *run) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return stageError(name, err)
	}
	ctx, span := r.tracer.Start(ctx, "convert."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String(AttrStage, name)),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)
	r.metrics.ObserveStage(name, d)
	if err != nil {
		err = stageError(name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Error("stage failed", "stage", name, "duration", d, "error", err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	r.log.Debug("stage complete", "stage", name, "duration", d)
	return nil
}

func (r *run) policy() fanout.Policy { return r.cfg.Policy() }

// validate fails on blocking findings and logs the rest.
func (r *run) validate(reg *registry.Registry) error {
	res := registry.ValidateAll(reg)
	for _, w := range res.Warnings {
		r.log.Warn("validation", "entity", w.Entity, "message", w.Message)
	}
	if res.OK() {
		return nil
	}
	errs := make([]error, len(res.Errors))
	for i, e := range res.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// orient fixes the face winding of ARB bodies. The registry is returned
// as is when no body had to be reversed.
func (r *run) orient(ctx context.Context, reg *registry.Registry) (*registry.Registry, error) {
	b := reg.Derive()
	var (
		errs     []error
		reversed int
	)
	for i, bd := range reg.Bodies() {
		if bd.Kind != body.KindARB {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o, err := body.OrientARB(bd, r.k)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if o.Data == bd.Data {
			continue
		}
		if err := b.ReplaceBody(registry.BodyID(i), o); err != nil {
			return nil, err
		}
		reversed++
		r.log.Debug("reversed ARB winding", "body", bd.Name)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if reversed == 0 {
		return reg, nil
	}
	for _, rg := range reg.Regions() {
		b.AddRegion(rg)
	}
	return b.Build()
}

func (r *run) split(ctx context.Context, reg *registry.Registry) (*registry.Registry, error) {
	opts := csg.Options{Bound: r.cfg.Bound(), PruneDNF: r.cfg.PruneDNF}
	return split.Split(ctx, reg, r.ev,
		split.WithOptions(func(string) csg.Options { return opts }),
		split.WithPolicy(r.policy()),
		split.WithLogger(r.log),
		split.WithSplitHook(func(region string, parts []string) {
			r.metrics.IncrementSplit()
			r.log.Info("region split", "region", region, "parts", parts)
		}),
	)
}

func (r *run) extents(ctx context.Context, reg *registry.Registry) (*extent.Result, error) {
	return extent.Resolve(ctx, reg, r.ev,
		extent.WithBound(r.cfg.Bound()),
		extent.WithPruneDNF(r.cfg.PruneDNF),
		extent.WithPolicy(r.policy()),
		extent.WithLogger(r.log),
	)
}

func (r *run) lattices(ctx context.Context, reg *registry.Registry, ext *extent.Result) ([]lattice.Containment, error) {
	if len(reg.Lattices()) == 0 {
		return nil, nil
	}
	return lattice.Resolve(ctx, reg, r.ev, ext,
		lattice.WithPolicy(r.policy()),
		lattice.WithLogger(r.log),
	)
}

// emit evaluates every region with its resolved extents and omissions.
func (r *run) emit(ctx context.Context, reg *registry.Registry, ext *extent.Result) ([]RegionOutput, error) {
	rs := reg.Regions()
	out := make([]RegionOutput, len(rs))
	err := fanout.Run(ctx, len(rs), r.policy(), func(ctx context.Context, i int) error {
		ps, err := r.ev.Region(ctx, reg, rs[i].Name, ext.Options(rs[i].Name))
		if err != nil {
			return err
		}
		out[i] = RegionOutput{Name: rs[i].Name, Material: rs[i].Material, Placements: ps}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
