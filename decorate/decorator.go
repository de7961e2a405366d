// Package decorate splices RDF labels into viewer pages.
//
// Pages mark elements with two classes:
//
//	<span class="rdfLabel" lookup="ark:/12148/br2d2wf">TIFF</span>
//	<span class="rdfTooltip">sparprovenance:digitization</span>
//
// rdfLabel elements get their text replaced by "{label} ({text})"; rdfTooltip
// elements get a title attribute and data-toggle="tooltip". Lookups run on a
// worker pool; the tree is only modified once they are done.
package decorate

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/tledoux/spar-mets-viewer/errors"
	"github.com/tledoux/spar-mets-viewer/metric"
	"github.com/tledoux/spar-mets-viewer/pkg/worker"
)

// Marker classes and attributes.
const (
	LabelClass   = "rdfLabel"
	TooltipClass = "rdfTooltip"
	LookupAttr   = "lookup"
)

// Element outcomes, used as metric label values.
const (
	OutcomeLabelled  = "labelled"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
)

// DefaultLanguage is used when neither the context nor the config sets one.
const DefaultLanguage = "en"

// Config configures a Decorator.
type Config struct {
	Workers   int
	QueueSize int

	// Language is used when the context carries none (see WithLanguage).
	Language string

	Registry *metric.MetricsRegistry
	Logger   *slog.Logger
}

// Stats summarizes one decoration pass.
type Stats struct {
	Elements  int
	Lookups   int
	Labelled  int
	Unchanged int
	Skipped   int
}

// Decorator looks up labels for marked elements.
type Decorator struct {
	source  LabelSource
	pool    *worker.Pool[*lookupTask]
	lang    string
	metrics *metric.Metrics
	logger  *slog.Logger
}

type target struct {
	node       *html.Node
	marker     string
	identifier string
}

type lookupTask struct {
	ctx        context.Context
	identifier string
	lang       string

	// written before done is closed
	label string
	ok    bool
	done  chan struct{}
}

// New creates a decorator. Start must be called before decorating.
func New(source LabelSource, cfg Config) *Decorator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	d := &Decorator{
		source:  source,
		lang:    lang,
		metrics: cfg.Registry.CoreMetrics(),
		logger:  logger.With("component", "decorate"),
	}

	// lookups dropped by a stopping pool resolve as not found
	opts := []worker.Option[*lookupTask]{
		worker.WithDiscard(func(t *lookupTask) { close(t.done) }),
	}
	if cfg.Registry != nil {
		opts = append(opts, worker.WithMetricsRegistry[*lookupTask](cfg.Registry, "decorate_lookups"))
	}
	d.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, d.lookup, opts...)
	return d
}

// Start launches the lookup workers. They run until ctx ends or Stop is
// called; afterwards decoration leaves every element unchanged.
func (d *Decorator) Start(ctx context.Context) error {
	if err := d.pool.Start(ctx); err != nil {
		return errors.Wrap(err, "Decorator", "Start", "start lookup pool")
	}
	return nil
}

// Stop waits up to timeout for queued lookups.
func (d *Decorator) Stop(timeout time.Duration) error {
	return d.pool.Stop(timeout)
}

// PoolStats exposes the lookup pool statistics.
func (d *Decorator) PoolStats() worker.PoolStats {
	return d.pool.Stats()
}

func (d *Decorator) lookup(_ context.Context, t *lookupTask) error {
	defer close(t.done)
	t.label, t.ok = d.source.Label(t.ctx, t.identifier, t.lang)
	return nil
}

// SubstituteRdfLabel replaces the text of every rdfLabel element having a
// lookup attribute with "{label} ({text})".
func (d *Decorator) SubstituteRdfLabel(ctx context.Context, doc *html.Node) Stats {
	return d.run(ctx, collectLabels(doc))
}

// ProvideRdfTooltip sets the title of every rdfTooltip element to the label
// of its text and enables its tooltip.
func (d *Decorator) ProvideRdfTooltip(ctx context.Context, doc *html.Node) Stats {
	return d.run(ctx, collectTooltips(doc))
}

// Decorate runs both passes, sharing lookups between them.
func (d *Decorator) Decorate(ctx context.Context, doc *html.Node) Stats {
	return d.run(ctx, append(collectLabels(doc), collectTooltips(doc)...))
}

// DecorateHTML parses a whole document from r, decorates it and renders it to w.
func (d *Decorator) DecorateHTML(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Stats{}, errors.WrapInvalid(err, "Decorator", "DecorateHTML", "parse document")
	}
	stats := d.Decorate(ctx, doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return stats, errors.Wrap(err, "Decorator", "DecorateHTML", "render document")
	}
	if _, err := buf.WriteTo(w); err != nil {
		return stats, errors.WrapTransient(err, "Decorator", "DecorateHTML", "write document")
	}
	return stats, nil
}

func collectLabels(doc *html.Node) []target {
	var targets []target
	for _, n := range findAll(doc, func(n *html.Node) bool { return hasClass(n, LabelClass) }) {
		id, _ := attr(n, LookupAttr)
		targets = append(targets, target{node: n, marker: LabelClass, identifier: id})
	}
	return targets
}

func collectTooltips(doc *html.Node) []target {
	var targets []target
	for _, n := range findAll(doc, func(n *html.Node) bool { return hasClass(n, TooltipClass) }) {
		targets = append(targets, target{node: n, marker: TooltipClass, identifier: strings.TrimSpace(textContent(n))})
	}
	return targets
}

func (d *Decorator) run(ctx context.Context, targets []target) Stats {
	stats := Stats{Elements: len(targets)}
	if len(targets) == 0 {
		return stats
	}

	lang := LanguageFrom(ctx)
	if lang == "" {
		lang = d.lang
	}

	// one task per distinct identifier
	tasks := make(map[string]*lookupTask)
	for _, t := range targets {
		if t.identifier == "" {
			continue
		}
		if _, seen := tasks[t.identifier]; seen {
			continue
		}
		task := &lookupTask{ctx: ctx, identifier: t.identifier, lang: lang, done: make(chan struct{})}
		if err := d.pool.Submit(task); err != nil {
			d.logger.Debug("label lookup not submitted", "identifier", t.identifier, "error", err)
			close(task.done)
		}
		tasks[t.identifier] = task
	}
	stats.Lookups = len(tasks)

wait:
	for _, task := range tasks {
		select {
		case <-task.done:
		case <-ctx.Done():
			d.logger.Debug("decoration cancelled", "error", ctx.Err())
			break wait
		}
	}

	for _, t := range targets {
		task, ok := tasks[t.identifier]
		if !ok {
			stats.Skipped++
			d.metrics.RecordElement(t.marker, OutcomeSkipped)
			continue
		}
		label, found := finished(task)
		if !found {
			stats.Unchanged++
			d.metrics.RecordElement(t.marker, OutcomeUnchanged)
			continue
		}
		apply(t, label)
		stats.Labelled++
		d.metrics.RecordElement(t.marker, OutcomeLabelled)
	}
	return stats
}

// finished returns the result of task if it has completed.
func finished(task *lookupTask) (string, bool) {
	select {
	case <-task.done:
		return task.label, task.ok
	default:
		return "", false
	}
}

func apply(t target, label string) {
	switch t.marker {
	case LabelClass:
		setText(t.node, label+" ("+textContent(t.node)+")")
	case TooltipClass:
		setAttr(t.node, "title", label)
		setAttr(t.node, "data-toggle", "tooltip")
	}
}
