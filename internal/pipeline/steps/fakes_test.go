package steps

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jonathan/job-assistant/internal/llm"
	"github.com/jonathan/job-assistant/internal/types"
)

const (
	jobAnalysisJSON = `{
		"title": "Senior Backend Engineer",
		"company": "Acme",
		"location": "Remote",
		"seniority": "Senior",
		"required_skills": ["Go", "SQL"],
		"preferred_skills": ["Rust"],
		"responsibilities": ["Design APIs"],
		"industry": "Fintech",
		"summary": "Build payment services"
	}`
	matchAnalysisJSON = `{
		"overall_score": 82,
		"strong_matches": [{"skill": "Go", "evidence": "Five years of Go services", "strength": "strong"}],
		"partial_matches": [{"skill": "SQL", "evidence": "Some Postgres", "strength": "partial"}],
		"gaps": ["Rust"],
		"unique_selling_points": ["Payments domain"],
		"match_summary": "Strong backend fit"
	}`
	writerOutputJSON = `{
		"cover_letter": "Dear Acme team,",
		"application_email": "Subject: Senior Backend Engineer",
		"key_themes": ["reliability"]
	}`
	advisorOutputJSON = `{
		"overall_recommendation": "Apply",
		"strategy": "Lead with payments work",
		"cv_tailoring": ["Move Go projects up"],
		"interview_prep": ["System design"],
		"potential_questions": ["Tell us about an outage"],
		"confidence_level": "high"
	}`
)

// fakeClient answers each structured request with the canned JSON for the
// schema embedded in the prompt.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]string
	fail      map[string]error
	prompts   []string
	tiers     []llm.ModelTier
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		responses: map[string]string{
			"JobAnalysis":   jobAnalysisJSON,
			"MatchAnalysis": matchAnalysisJSON,
			"WriterOutput":  writerOutputJSON,
			"AdvisorOutput": advisorOutputJSON,
		},
		fail: map[string]error{},
	}
}

func (c *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return c.GenerateJSON(ctx, prompt, tier)
}

func (c *fakeClient) GenerateJSON(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	c.tiers = append(c.tiers, tier)
	for title, resp := range c.responses {
		if strings.Contains(prompt, `"title": "`+title+`"`) {
			if err := c.fail[title]; err != nil {
				return "", err
			}
			return resp, nil
		}
	}
	return "", errors.New("unexpected prompt")
}

func (c *fakeClient) GetModel(llm.ModelTier) string { return "fake" }
func (c *fakeClient) Close() error                  { return nil }

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

// fakeRetriever records queries and returns fixed hits.
type fakeRetriever struct {
	hits         []types.RetrievalHit
	err          error
	queries      []string
	multiQueries [][]string
	topKs        []int
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string, topK int) ([]types.RetrievalHit, error) {
	r.queries = append(r.queries, query)
	r.topKs = append(r.topKs, topK)
	return r.hits, r.err
}

func (r *fakeRetriever) MultiQueryRetrieve(_ context.Context, queries []string, topK int) ([]types.RetrievalHit, error) {
	r.multiQueries = append(r.multiQueries, queries)
	r.topKs = append(r.topKs, topK)
	return r.hits, r.err
}

type fakeScraper struct {
	text string
	err  error
	urls []string
}

func (s *fakeScraper) Fetch(_ context.Context, url string) (string, error) {
	s.urls = append(s.urls, url)
	return s.text, s.err
}

type fakeExporter struct {
	path  string
	err   error
	calls []types.ApplicationState
}

func (e *fakeExporter) Export(state types.ApplicationState) (string, error) {
	e.calls = append(e.calls, state)
	return e.path, e.err
}

type fakeSaver struct {
	id      int64
	err     error
	records []*types.ApplicationRecord
}

func (s *fakeSaver) Save(_ context.Context, rec *types.ApplicationRecord) (int64, error) {
	s.records = append(s.records, rec)
	return s.id, s.err
}

func profileHits() []types.RetrievalHit {
	return []types.RetrievalHit{
		{Text: "Built Go payment services", Distance: 0.1},
		{Text: "Ran Postgres at scale", Distance: 0.3},
	}
}
