// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package insight

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/roi-brief/internal/logging"
	"github.com/pdiddy/roi-brief/internal/notify"
	"github.com/pdiddy/roi-brief/internal/objectstore"
	"github.com/pdiddy/roi-brief/pkg/types"
)

const testDate = "2026-03-04"

func ptr[T any](v T) *T { return &v }

func starbucksRecord() types.FeatureRecord {
	return types.FeatureRecord{
		CIK:                        "0000829224",
		Name:                       "Starbucks",
		Period:                     "FY2023",
		PeriodEnd:                  ptr("2023-10-01"),
		FiscalYearEnd:              ptr("0929"),
		RevenueTag:                 ptr("RevenueFromContractWithCustomerExcludingAssessedTax"),
		LatestAnnualRevenue:        ptr(35976100000.0),
		PriorAnnualRevenue:         ptr(32250300000.0),
		YoYRevenueGrowthPct:        ptr(11.55),
		SalesMarketingExpense:      nil,
		SalesMarketingPctOfRevenue: nil,
		Industry:                   ptr("Retail-Eating Places"),
		DataSource:                 "https://www.sec.gov/edgar/browse/?CIK=0000829224",
	}
}

func testOptions() types.RunOptions {
	return types.RunOptions{
		Date:      testDate,
		Sender:    "briefs@example.com",
		Recipient: "sales@example.com",
	}
}

// scriptedModel replies from a fixed list and records prompts.
type scriptedModel struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []Prompt
}

func (m *scriptedModel) Complete(_ context.Context, p Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.prompts)
	m.prompts = append(m.prompts, p)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// staticSource always returns the same model and counts requests.
type staticSource struct {
	model Model
	calls int
	err   error
}

func (s *staticSource) Model(context.Context, ModelSpec) (Model, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.model, nil
}

// recordingNotifier captures sent emails.
type recordingNotifier struct {
	sent []notify.Email
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, e notify.Email) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	n.sent = append(n.sent, e)
	return "msg-1", nil
}

func newTestGenerator(t *testing.T, src ModelSource, n notify.Notifier) (*Generator, objectstore.Store) {
	t.Helper()
	store, err := objectstore.NewFS(t.TempDir())
	require.NoError(t, err)
	return NewGenerator(store, src, n, logging.Silent()), store
}

func TestBuildPrompt(t *testing.T) {
	p, err := BuildPrompt(starbucksRecord())
	require.NoError(t, err)
	assert.Equal(t, SystemPrompt, p.System)

	order := []string{
		"Company: Starbucks",
		"CIK: 0000829224",
		"Industry: Retail-Eating Places",
		"Fiscal period: FY2023",
		"Latest annual revenue (USD): 35976100000",
		"Prior annual revenue (USD): 32250300000",
		"Year-over-year revenue growth (%): 11.55",
		"Sales and marketing expense (USD): not reported",
		"Sales and marketing as % of revenue: not reported",
	}
	last := -1
	for _, want := range order {
		idx := strings.Index(p.User, want)
		require.GreaterOrEqual(t, idx, 0, "prompt missing %q", want)
		assert.Greater(t, idx, last, "%q out of order", want)
		last = idx
	}

	again, err := BuildPrompt(starbucksRecord())
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestPromptStrict(t *testing.T) {
	p := Prompt{System: "sys", User: "user"}
	strict := p.Strict()
	assert.Equal(t, "user", strict.User)
	assert.True(t, strings.HasPrefix(strict.System, "sys"))
	assert.Contains(t, strict.System, "ONLY the JSON object")
	assert.Equal(t, "sys", p.System, "original unchanged")
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced plain", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here is the brief:\n{\"a\":1}\nLet me know!", `{"a":1}`},
		{"no object", "I cannot help with that.", "I cannot help with that."},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSONResponse(tt.input); got != tt.want {
				t.Errorf("cleanJSONResponse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseInsight(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{"canned", simulatedReply, false},
		{"fenced", "```json\n" + simulatedReply + "\n```", false},
		{"blank pain point dropped", `{"pain_points":["a","  "],"value_hypothesis":"v","next_best_action":"n"}`, false},
		{"missing value hypothesis", `{"pain_points":["a"],"next_best_action":"n"}`, true},
		{"blank next action", `{"pain_points":["a"],"value_hypothesis":"v","next_best_action":"  "}`, true},
		{"empty pain points", `{"pain_points":[],"value_hypothesis":"v","next_best_action":"n"}`, true},
		{"only blank pain points", `{"pain_points":[""],"value_hypothesis":"v","next_best_action":"n"}`, true},
		{"pain points wrong type", `{"pain_points":"a","value_hypothesis":"v","next_best_action":"n"}`, true},
		{"not json", "Sure! Here are some thoughts.", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseInsight(tt.reply)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseInsight() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRenderBrief(t *testing.T) {
	ins, err := parseInsight(simulatedReply)
	require.NoError(t, err)

	first, err := RenderBrief(starbucksRecord(), ins, testDate)
	require.NoError(t, err)
	second, err := RenderBrief(starbucksRecord(), ins, testDate)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "rendering is deterministic")

	html := string(first)
	for _, want := range []string{
		"Account ROI Brief: Starbucks",
		"$35,976,100,000",
		"36 billion",
		"11.55%",
		"Retail-Eating Places",
		"FY2023 (ended 2023-10-01)",
		"<li>Long rep ramp time</li>",
		"Run a 30-day pilot with 3 sales teams.",
		"2026-03-04",
	} {
		assert.Contains(t, html, want)
	}
	assert.Contains(t, html, "<td>Sales and marketing spend</td><td>n/a</td>")
}

func TestRenderBriefEscapes(t *testing.T) {
	rec := starbucksRecord()
	rec.Name = `<script>alert("x")</script>`
	ins := types.Insight{PainPoints: []string{"<b>bold</b>"}, ValueHypothesis: "v", NextBestAction: "n"}

	out, err := RenderBrief(rec, ins, testDate)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
	assert.NotContains(t, string(out), "<b>bold</b>")
	assert.Contains(t, string(out), "&lt;script&gt;")
}

func TestGenerateSimulateNeverCallsModel(t *testing.T) {
	src := &staticSource{err: errors.New("must not be called")}
	n := &recordingNotifier{}
	g, store := newTestGenerator(t, src, n)

	opts := testOptions()
	opts.Simulate = true
	art, err := g.Generate(context.Background(), starbucksRecord(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, src.calls)

	assert.Equal(t, "insights/2026-03-04/0000829224.json", art.InsightKey)
	assert.Equal(t, "briefs/2026-03-04/0000829224.html", art.BriefKey)
	assert.Equal(t, "msg-1", art.MessageID)
	assert.Equal(t, []string{"Unclear sales enablement content", "Long rep ramp time"}, art.Insight.PainPoints)

	data, err := store.Get(context.Background(), art.InsightKey)
	require.NoError(t, err)
	var stored types.Insight
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, art.Insight, stored)

	brief, err := store.Get(context.Background(), art.BriefKey)
	require.NoError(t, err)
	assert.Contains(t, string(brief), "Starbucks")

	require.Len(t, n.sent, 1)
	assert.Equal(t, "Account ROI Brief: Starbucks", n.sent[0].Subject)
	assert.Equal(t, "briefs@example.com", n.sent[0].From)
	assert.Equal(t, "sales@example.com", n.sent[0].To)
	assert.Equal(t, string(brief), n.sent[0].HTML)
}

func TestGenerateSimulateDeterministic(t *testing.T) {
	g, store := newTestGenerator(t, &staticSource{}, &recordingNotifier{})
	opts := testOptions()
	opts.Simulate = true
	ctx := context.Background()

	art, err := g.Generate(ctx, starbucksRecord(), opts)
	require.NoError(t, err)
	first, err := store.Get(ctx, art.BriefKey)
	require.NoError(t, err)

	_, err = g.Generate(ctx, starbucksRecord(), opts)
	require.NoError(t, err)
	second, err := store.Get(ctx, art.BriefKey)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestGenerateRetriesOnceWithStrictPrompt(t *testing.T) {
	model := &scriptedModel{replies: []string{"Here you go: pain points are ramp time.", simulatedReply}}
	g, _ := newTestGenerator(t, &staticSource{model: model}, &recordingNotifier{})

	_, err := g.Generate(context.Background(), starbucksRecord(), testOptions())
	require.NoError(t, err)
	require.Equal(t, 2, model.calls())
	assert.Equal(t, SystemPrompt, model.prompts[0].System)
	assert.Contains(t, model.prompts[1].System, "ONLY the JSON object")
	assert.Equal(t, model.prompts[0].User, model.prompts[1].User)
}

func TestGenerateFailsAfterSecondInvalidReply(t *testing.T) {
	missing := `{"pain_points":["Long rep ramp time"],"next_best_action":"Run a pilot."}`
	model := &scriptedModel{replies: []string{missing, missing, simulatedReply}}
	n := &recordingNotifier{}
	g, store := newTestGenerator(t, &staticSource{model: model}, n)

	art, err := g.Generate(context.Background(), starbucksRecord(), testOptions())
	require.Error(t, err)
	assert.Equal(t, types.KindInsightGeneration, types.KindOf(err))
	assert.Equal(t, 2, model.calls(), "exactly one retry")
	assert.Empty(t, art.InsightKey)
	assert.Empty(t, n.sent)

	_, getErr := store.Get(context.Background(), objectstore.InsightKey(testDate, "0000829224"))
	assert.ErrorIs(t, getErr, objectstore.ErrObjectNotFound)
}

func TestGenerateTransportErrorNotRetried(t *testing.T) {
	model := &scriptedModel{errs: []error{errors.New("connection reset by peer")}}
	g, _ := newTestGenerator(t, &staticSource{model: model}, &recordingNotifier{})

	_, err := g.Generate(context.Background(), starbucksRecord(), testOptions())
	require.Error(t, err)
	assert.Equal(t, types.KindInsightGeneration, types.KindOf(err))
	assert.Equal(t, 1, model.calls())
}

func TestGenerateModelSourceError(t *testing.T) {
	g, _ := newTestGenerator(t, &staticSource{err: errors.New("no credentials")}, &recordingNotifier{})

	_, err := g.Generate(context.Background(), starbucksRecord(), testOptions())
	require.Error(t, err)
	assert.Equal(t, types.KindInsightGeneration, types.KindOf(err))
}

func TestGenerateNotificationFailureKeepsArtifacts(t *testing.T) {
	n := &recordingNotifier{err: errors.New("MessageRejected")}
	g, store := newTestGenerator(t, &staticSource{}, n)
	opts := testOptions()
	opts.Simulate = true

	art, err := g.Generate(context.Background(), starbucksRecord(), opts)
	require.Error(t, err)
	assert.Equal(t, types.KindNotification, types.KindOf(err))
	assert.Empty(t, art.MessageID)

	for _, key := range []string{art.InsightKey, art.BriefKey} {
		require.NotEmpty(t, key)
		_, getErr := store.Get(context.Background(), key)
		assert.NoError(t, getErr, "artifact %s must remain", key)
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Account ROI Brief: Starbucks", Subject("", "Starbucks"))
	assert.Equal(t, "Weekly brief: Starbucks", Subject("Weekly brief", "Starbucks"))
}

func TestSimulatedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Simulated{}.Complete(ctx, Prompt{})
	assert.ErrorIs(t, err, context.Canceled)
}

// messagesServer fakes the Anthropic Messages endpoint.
func messagesServer(t *testing.T, reply string, status int, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if got != nil {
			json.Unmarshal(body, got)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad request"}}`))
			return
		}
		resp := map[string]any{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-sonnet-4-5",
			"content":       []map[string]any{{"type": "text", "text": reply}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClaudeModelComplete(t *testing.T) {
	var got map[string]any
	srv := messagesServer(t, simulatedReply, http.StatusOK, &got)

	factory := NewModelFactory(types.ModelConfig{
		Provider:    types.ProviderAnthropic,
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		Temperature: 0.3,
	}, logging.Silent())
	model, err := factory.Model(context.Background(), ModelSpec{MaxTokens: 900})
	require.NoError(t, err)

	prompt, err := BuildPrompt(starbucksRecord())
	require.NoError(t, err)
	reply, err := model.Complete(context.Background(), prompt)
	require.NoError(t, err)
	assert.JSONEq(t, simulatedReply, reply)

	assert.Equal(t, DefaultAnthropicModel, got["model"])
	assert.Equal(t, float64(900), got["max_tokens"])
	assert.Equal(t, 0.3, got["temperature"])
	assert.Contains(t, got, "system")
}

func TestClaudeModelErrorStatus(t *testing.T) {
	srv := messagesServer(t, "", http.StatusBadRequest, nil)
	factory := NewModelFactory(types.ModelConfig{
		Provider: types.ProviderAnthropic,
		APIKey:   "test-key",
		BaseURL:  srv.URL,
	}, logging.Silent())
	model, err := factory.Model(context.Background(), ModelSpec{})
	require.NoError(t, err)

	_, err = model.Complete(context.Background(), Prompt{System: "s", User: "u"})
	assert.Error(t, err)
}

func TestModelFactoryCachesClient(t *testing.T) {
	factory := NewModelFactory(types.ModelConfig{Provider: types.ProviderAnthropic, APIKey: "k"}, logging.Silent())
	ctx := context.Background()

	a, err := factory.Model(ctx, ModelSpec{Region: "us-west-2"})
	require.NoError(t, err)
	b, err := factory.Model(ctx, ModelSpec{Region: "us-west-2", ModelID: "claude-haiku-4-5"})
	require.NoError(t, err)

	assert.Same(t, a.(*ClaudeModel).client, b.(*ClaudeModel).client)
	assert.Equal(t, "claude-haiku-4-5", b.(*ClaudeModel).model)
	assert.Len(t, factory.clients, 1)
}

func TestModelFactoryResolve(t *testing.T) {
	f := NewModelFactory(types.ModelConfig{Region: "eu-central-1", MaxTokens: 2000, Temperature: 0.2}, logging.Silent())

	spec := f.resolve(ModelSpec{})
	assert.Equal(t, "eu-central-1", spec.Region)
	assert.Equal(t, DefaultBedrockModel, spec.ModelID)
	assert.Equal(t, 2000, spec.MaxTokens)
	require.NotNil(t, spec.Temperature)
	assert.Equal(t, 0.2, *spec.Temperature)

	spec = f.resolve(ModelSpec{Region: "us-east-1", Temperature: ptr(0.0)})
	assert.Equal(t, "us-east-1", spec.Region)
	assert.Equal(t, 0.0, *spec.Temperature, "explicit zero kept")

	spec = NewModelFactory(types.ModelConfig{}, logging.Silent()).resolve(ModelSpec{})
	assert.Equal(t, DefaultRegion, spec.Region)
	assert.Equal(t, DefaultMaxTokens, spec.MaxTokens)
}

func TestModelFactoryRequiresAPIKey(t *testing.T) {
	f := NewModelFactory(types.ModelConfig{Provider: types.ProviderAnthropic}, logging.Silent())
	_, err := f.Model(context.Background(), ModelSpec{})
	assert.Error(t, err)
}
