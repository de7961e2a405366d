package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tledoux/spar-mets-viewer/config"
	"github.com/tledoux/spar-mets-viewer/labels"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewQuerier(t *testing.T) {
	cfg := config.Default()
	q, source, err := newQuerier(cfg, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "fixture", source)
	assert.IsType(t, labels.FixtureQuerier{}, q)

	cfg.Platform = "PFO"
	cfg.SPARQLEndpoint = "http://localhost:8890/sparql"
	q, source, err = newQuerier(cfg, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "sparql", source)
	assert.IsType(t, &labels.SPARQLQuerier{}, q)

	cfg.Labels.RateLimit = -1
	_, _, err = newQuerier(cfg, testLogger())
	assert.Error(t, err)

	cfg.Labels.RateLimit = 0
	cfg.SPARQLEndpoint = ""
	_, _, err = newQuerier(cfg, testLogger())
	assert.Error(t, err)
}

func TestLoadConfig_AddrOverride(t *testing.T) {
	cfg, err := loadConfig(&CLIConfig{Addr: ":9090"})
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

// AppSuite runs each test against a freshly built TEST platform app.
type AppSuite struct {
	suite.Suite
	cfg *config.Config
	app *app
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupTest() {
	s.cfg = config.Default()
	s.cfg.HTTP.Addr = "127.0.0.1:0"

	a, err := buildApp(s.cfg, testLogger())
	s.Require().NoError(err)
	s.app = a
}

func (s *AppSuite) TearDownTest() {
	s.NoError(s.app.shutdown(time.Second))
}

func (s *AppSuite) TestServesFixtureLabels() {
	s.Require().NoError(s.app.decorator.Start(context.Background()))

	ts := httptest.NewServer(s.app.server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/labels/ark:/12148/br2d27h?lang=fr")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var results labels.Results
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&results))
	label, ok := results.FirstLabel()
	s.Require().True(ok)
	s.Equal("Processus ING_1", label)

	page := `<p><span class="rdfLabel">ark:/12148/br2d27h</span></p>`
	resp2, err := http.Post(ts.URL+"/decorate?lang=fr", "text/html", strings.NewReader(page))
	s.Require().NoError(err)
	defer resp2.Body.Close()
	body, err := io.ReadAll(resp2.Body)
	s.Require().NoError(err)
	s.Contains(string(body), "Processus ING_1 (ark:/12148/br2d27h)")
}

func (s *AppSuite) TestHealth() {
	s.Require().NoError(s.app.decorator.Start(context.Background()))

	status := s.app.monitor.Check(context.Background())
	s.True(status.IsHealthy(), status.Message)
	s.ElementsMatch([]string{"decorator", "labels"}, s.app.monitor.Names())

	var labelsStatus map[string]any
	for _, sub := range status.SubStatuses {
		if sub.Component == "labels" {
			labelsStatus = sub.Details
		}
	}
	s.Require().NotNil(labelsStatus)
	s.Equal(true, labelsStatus["ark_download"])
	s.Equal("fixture", labelsStatus["source"])
}

func (s *AppSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.app.run(ctx, time.Second) }()

	time.AfterFunc(50*time.Millisecond, cancel)

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("run did not return after cancel")
	}
}

func (s *AppSuite) TestRunReportsListenError() {
	s.app.server.Addr = "127.0.0.1:-1"

	err := s.app.run(context.Background(), time.Second)
	s.Require().Error(err)
	s.Contains(err.Error(), "http server")
}
