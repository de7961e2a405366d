package decorate

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/tledoux/spar-mets-viewer/labels"
	"github.com/tledoux/spar-mets-viewer/metric"
	"github.com/tledoux/spar-mets-viewer/pkg/cache"
)

// mapSource answers from a map and counts calls per identifier.
type mapSource struct {
	mu     sync.Mutex
	labels map[string]string
	calls  map[string]int
	langs  []string
}

func newMapSource(labels map[string]string) *mapSource {
	return &mapSource{labels: labels, calls: make(map[string]int)}
}

func (s *mapSource) Label(_ context.Context, identifier, lang string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[identifier]++
	s.langs = append(s.langs, lang)
	v, ok := s.labels[identifier]
	return v, ok
}

func (s *mapSource) count(identifier string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[identifier]
}

func startDecorator(t *testing.T, source LabelSource, cfg Config) *Decorator {
	t.Helper()
	d := New(source, cfg)
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { _ = d.Stop(time.Second) })
	return d
}

func parse(t *testing.T, page string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func render(t *testing.T, doc *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, html.Render(&buf, doc))
	return buf.String()
}

func fixtureSource(t *testing.T) LabelSource {
	t.Helper()
	svc, err := labels.NewService(labels.FixtureQuerier{}, labels.ServiceConfig{Cache: cache.DefaultConfig()})
	require.NoError(t, err)
	return ServiceSource{Service: svc}
}

func TestSubstituteRdfLabel(t *testing.T) {
	d := startDecorator(t, fixtureSource(t), Config{})

	doc := parse(t, `<table>
		<tr><td><span id="a" class="rdfLabel" lookup="ark:/12148/br2d2wf">ark:/12148/br2d2wf</span></td></tr>
		<tr><td><span id="b" class="small rdfLabel" lookup="ark:/12148/br2d27h/v2.release3">ING</span></td></tr>
		<tr><td><span id="c" class="rdfLabel">no lookup</span></td></tr>
		<tr><td><span id="d" class="rdfLabel" lookup="ark:/12148/bpt6k123">unknown</span></td></tr>
		<tr><td><span id="e" class="rdfLabelled" lookup="ark:/12148/br2d2wf">other class</span></td></tr>
	</table>`)

	stats := d.SubstituteRdfLabel(context.Background(), doc)
	assert.Equal(t, Stats{Elements: 4, Lookups: 3, Labelled: 2, Unchanged: 1, Skipped: 1}, stats)

	assert.Equal(t, "Format TIFF NB G4 (ark:/12148/br2d2wf)", textContent(findByID(doc, "a")))
	assert.Equal(t, "Processus ING_1 (ING)", textContent(findByID(doc, "b")))
	assert.Equal(t, "no lookup", textContent(findByID(doc, "c")))
	assert.Equal(t, "unknown", textContent(findByID(doc, "d")))
	assert.Equal(t, "other class", textContent(findByID(doc, "e")))
}

func TestSubstituteRdfLabel_NestedText(t *testing.T) {
	d := startDecorator(t, newMapSource(map[string]string{"x": "Label"}), Config{})

	doc := parse(t, `<p id="p" class="rdfLabel" lookup="x">a <b>bold</b> text</p>`)
	d.SubstituteRdfLabel(context.Background(), doc)

	p := findByID(doc, "p")
	assert.Equal(t, "Label (a bold text)", textContent(p))
	assert.Equal(t, html.TextNode, p.FirstChild.Type)
	assert.Nil(t, p.FirstChild.NextSibling)
}

func TestProvideRdfTooltip(t *testing.T) {
	d := startDecorator(t, fixtureSource(t), Config{})

	doc := parse(t, `<ul>
		<li><span id="a" class="rdfTooltip">sparprovenance:digitization</span></li>
		<li><span id="b" class="rdfTooltip">
			sparprovenance:hasPerformer
		</span></li>
		<li><span id="c" class="rdfTooltip">dc:title</span></li>
		<li><span id="d" class="rdfTooltip"></span></li>
	</ul>`)

	stats := d.ProvideRdfTooltip(context.Background(), doc)
	assert.Equal(t, 2, stats.Labelled)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, 1, stats.Skipped)

	a := findByID(doc, "a")
	title, _ := attr(a, "title")
	toggle, _ := attr(a, "data-toggle")
	assert.Equal(t, "Numérisation", title)
	assert.Equal(t, "tooltip", toggle)
	assert.Equal(t, "sparprovenance:digitization", textContent(a))

	title, _ = attr(findByID(doc, "b"), "title")
	assert.Equal(t, "exécutant", title)

	_, ok := attr(findByID(doc, "c"), "title")
	assert.False(t, ok)
	_, ok = attr(findByID(doc, "c"), "data-toggle")
	assert.False(t, ok)
}

func TestDecorate_SharesLookups(t *testing.T) {
	source := newMapSource(map[string]string{"sparprovenance:digitization": "Numérisation"})
	d := startDecorator(t, source, Config{Workers: 2})

	doc := parse(t, `<div>
		<span class="rdfTooltip">sparprovenance:digitization</span>
		<span class="rdfTooltip">sparprovenance:digitization</span>
		<span id="l" class="rdfLabel" lookup="sparprovenance:digitization">digitization</span>
	</div>`)

	stats := d.Decorate(context.Background(), doc)
	assert.Equal(t, 3, stats.Elements)
	assert.Equal(t, 1, stats.Lookups)
	assert.Equal(t, 3, stats.Labelled)
	assert.Equal(t, 1, source.count("sparprovenance:digitization"))

	out := render(t, doc)
	assert.Equal(t, 2, strings.Count(out, `title="Numérisation"`))
	assert.Contains(t, out, "Numérisation (digitization)")
}

func TestDecorate_Language(t *testing.T) {
	source := newMapSource(nil)
	d := startDecorator(t, source, Config{Language: "fr"})

	doc := parse(t, `<span class="rdfTooltip">a</span>`)
	d.Decorate(context.Background(), doc)
	d.Decorate(WithLanguage(context.Background(), "en"), doc)

	assert.Equal(t, []string{"fr", "en"}, source.langs)
}

func TestDecorate_NotStartedLeavesPageUnchanged(t *testing.T) {
	source := newMapSource(map[string]string{"x": "Label"})
	d := New(source, Config{})

	doc := parse(t, `<span id="s" class="rdfLabel" lookup="x">text</span>`)
	stats := d.Decorate(context.Background(), doc)

	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, "text", textContent(findByID(doc, "s")))
	assert.Equal(t, 0, source.count("x"))
}

func TestDecorate_StoppedPoolLeavesPageUnchanged(t *testing.T) {
	source := newMapSource(map[string]string{"x": "Label"})
	d := New(source, Config{Workers: 1})

	poolCtx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(poolCtx))
	cancel()

	doc := parse(t, `<span id="s" class="rdfLabel" lookup="x">text</span>`)
	done := make(chan Stats, 1)
	go func() { done <- d.Decorate(context.Background(), doc) }()

	select {
	case stats := <-done:
		assert.Equal(t, 1, stats.Unchanged)
	case <-time.After(5 * time.Second):
		t.Fatalf("decoration blocked on a stopped pool; stats %+v", d.PoolStats())
	}
	assert.Equal(t, "text", textContent(findByID(doc, "s")))
}

func TestDecorate_PoolStoppedWhileQueued(t *testing.T) {
	release := make(chan struct{})
	source := SourceFunc(func(_ context.Context, identifier, _ string) (string, bool) {
		if identifier == "slow" {
			<-release
		}
		return "L-" + identifier, true
	})
	d := New(source, Config{Workers: 1})
	poolCtx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(poolCtx))

	doc := parse(t, `<div>
		<span id="slow" class="rdfLabel" lookup="slow">slow</span>
		<span id="other" class="rdfLabel" lookup="other">other</span>
	</div>`)

	done := make(chan Stats, 1)
	go func() { done <- d.Decorate(context.Background(), doc) }()

	require.Eventually(t, func() bool { return d.PoolStats().Submitted == 2 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	close(release)

	select {
	case stats := <-done:
		assert.Equal(t, 2, stats.Elements)
		assert.Equal(t, 2, stats.Labelled+stats.Unchanged)
	case <-time.After(5 * time.Second):
		t.Fatal("decoration blocked after the pool context ended")
	}
}

func TestDecorate_CancelledContext(t *testing.T) {
	release := make(chan struct{})
	source := SourceFunc(func(_ context.Context, identifier, _ string) (string, bool) {
		if identifier == "slow" {
			<-release
		}
		return "L-" + identifier, true
	})
	d := startDecorator(t, source, Config{Workers: 2})
	defer close(release)

	doc := parse(t, `<div>
		<span id="fast" class="rdfLabel" lookup="fast">fast</span>
		<span id="slow" class="rdfLabel" lookup="slow">slow</span>
	</div>`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan Stats, 1)
	go func() { done <- d.Decorate(ctx, doc) }()

	select {
	case stats := <-done:
		assert.Equal(t, 1, stats.Labelled)
		assert.Equal(t, 1, stats.Unchanged)
	case <-time.After(5 * time.Second):
		t.Fatal("decoration did not return after cancellation")
	}

	assert.Equal(t, "L-fast (fast)", textContent(findByID(doc, "fast")))
	assert.Equal(t, "slow", textContent(findByID(doc, "slow")))
}

func TestDecorate_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	d := startDecorator(t, newMapSource(map[string]string{"x": "X"}), Config{Registry: registry})

	doc := parse(t, `<div>
		<span class="rdfLabel" lookup="x">1</span>
		<span class="rdfLabel">2</span>
		<span class="rdfTooltip">y</span>
	</div>`)
	d.Decorate(context.Background(), doc)

	elements := registry.CoreMetrics().DecoratedElements
	assert.Equal(t, 1.0, testutil.ToFloat64(elements.WithLabelValues(LabelClass, OutcomeLabelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(elements.WithLabelValues(LabelClass, OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(elements.WithLabelValues(TooltipClass, OutcomeUnchanged)))
	assert.Equal(t, int64(2), d.PoolStats().Submitted)
}

func TestDecorateHTML(t *testing.T) {
	d := startDecorator(t, fixtureSource(t), Config{})

	page := `<!DOCTYPE html><html><head><title>METS</title></head><body>
<span class="rdfLabel" lookup="ark:/12148/br2d2wf">G4</span>
<code class="rdfTooltip">sparprovenance:packageCreation</code>
</body></html>`

	var out bytes.Buffer
	stats, err := d.DecorateHTML(context.Background(), strings.NewReader(page), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Labelled)

	assert.True(t, strings.HasPrefix(out.String(), "<!DOCTYPE html>"))
	assert.Contains(t, out.String(), `>Format TIFF NB G4 (G4)</span>`)
	assert.Contains(t, out.String(), `title="Création de paquet"`)
	assert.Contains(t, out.String(), `data-toggle="tooltip"`)
}
