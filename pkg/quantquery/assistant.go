package quantquery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

const (
	assistantRequestTimeout = 45 * time.Second

	providerOpenAI    = "openai"
	providerGemini    = "gemini"
	providerAnthropic = "anthropic"

	defaultOpenAIModel    = "gpt-4o-mini"
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
)

const (
	envAIProvider = "QUANTQUERY_AI_PROVIDER"
	envAIModel    = "QUANTQUERY_AI_MODEL"
)

const planSystemPromptFormat = `You interpret investment analysis requests.
The available analytics tools are: %s.
Respond with strict JSON only, no Markdown, no extra text. Schema:
{"tools": [string], "tickers": [string], "start_date": "YYYY-MM-DD" or null, "end_date": "YYYY-MM-DD" or null, "lookback": {"quantity": int, "unit": "day"|"week"|"month"|"year"} or null}
Unspecified fields must be null. Only list tools from the given set. Tickers are exchange symbols in upper case.`

const summarySystemPrompt = `You are an investment research assistant. Merge the given per-tool findings
into one short narrative answering the user's question. Plain prose, no Markdown, no invented numbers.
This is advisory commentary, not trading advice.`

// Assistant is the optional model-backed capability behind query
// interpretation and summary composition. Implementations absorb every
// failure and report it as absence; callers branch only on the ok result.
type Assistant interface {
	PlanQuery(ctx context.Context, query string) (*QueryPlan, bool)
	ComposeSummary(ctx context.Context, query string, notes map[string]string) (string, bool)
}

// unavailableAssistant is the null object used when no provider credential
// is configured.
type unavailableAssistant struct{}

func (unavailableAssistant) PlanQuery(context.Context, string) (*QueryPlan, bool) {
	return nil, false
}

func (unavailableAssistant) ComposeSummary(context.Context, string, map[string]string) (string, bool) {
	return "", false
}

// completionRequest is one text-completion exchange with whichever provider
// is configured.
type completionRequest struct {
	Provider     string
	APIKey       string
	Model        string
	SystemPrompt string
	UserPrompt   string
	WantJSON     bool
}

// assistantCompletion is swappable in tests.
var assistantCompletion = requestCompletion

type modelAssistant struct {
	provider string
	apiKey   string
	model    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewAssistantFromEnv constructs the model assistant when a provider
// credential is present. Absence of a credential is not an error; the
// returned assistant simply never produces a result.
func NewAssistantFromEnv(logger *slog.Logger, now func() time.Time) Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}

	provider := strings.ToLower(strings.TrimSpace(os.Getenv(envAIProvider)))
	var apiKey, defaultModel string
	switch provider {
	case providerOpenAI:
		apiKey, defaultModel = os.Getenv("OPENAI_API_KEY"), defaultOpenAIModel
	case providerGemini:
		apiKey, defaultModel = os.Getenv("GEMINI_API_KEY"), defaultGeminiModel
	case providerAnthropic:
		apiKey, defaultModel = os.Getenv("ANTHROPIC_API_KEY"), defaultAnthropicModel
	case "":
		// No explicit provider; take the first credential found.
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			provider, apiKey, defaultModel = providerOpenAI, key, defaultOpenAIModel
		} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			provider, apiKey, defaultModel = providerGemini, key, defaultGeminiModel
		} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			provider, apiKey, defaultModel = providerAnthropic, key, defaultAnthropicModel
		}
	}
	if apiKey == "" {
		logger.Info("assistant unavailable: no provider credential configured")
		return unavailableAssistant{}
	}

	model := strings.TrimSpace(os.Getenv(envAIModel))
	if model == "" {
		model = defaultModel
	}
	logger.Info("assistant configured", "provider", provider, "model", model)
	return &modelAssistant{provider: provider, apiKey: apiKey, model: model, logger: logger, now: now}
}

func (a *modelAssistant) complete(ctx context.Context, system, user string, wantJSON bool) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, assistantRequestTimeout)
	defer cancel()

	content, err := assistantCompletion(ctx, completionRequest{
		Provider:     a.provider,
		APIKey:       a.apiKey,
		Model:        a.model,
		SystemPrompt: system,
		UserPrompt:   user,
		WantJSON:     wantJSON,
	})
	if err != nil {
		a.logger.Warn("assistant completion failed", "provider", a.provider, "err", err)
		return "", false
	}
	content = strings.TrimSpace(content)
	if content == "" {
		a.logger.Warn("assistant returned empty content", "provider", a.provider)
		return "", false
	}
	return content, true
}

// PlanQuery asks the model for a structured plan. Any malformed or missing
// reply yields no plan, never an error.
func (a *modelAssistant) PlanQuery(ctx context.Context, query string) (*QueryPlan, bool) {
	system := fmt.Sprintf(planSystemPromptFormat, strings.Join(toolNames, ", "))
	content, ok := a.complete(ctx, system, query, true)
	if !ok {
		return nil, false
	}
	plan, ok := parseAssistedPlan(content, dateOnly(a.now()))
	if !ok {
		a.logger.Warn("assistant plan reply unparseable")
		return nil, false
	}
	return plan, true
}

// ComposeSummary asks the model to merge tool findings into one narrative.
func (a *modelAssistant) ComposeSummary(ctx context.Context, query string, notes map[string]string) (string, bool) {
	if len(notes) == 0 {
		return "", false
	}
	names := make([]string, 0, len(notes))
	for name := range notes {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nFindings:\n", query)
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", strings.ToUpper(name), notes[name])
	}
	return a.complete(ctx, summarySystemPrompt, b.String(), false)
}

// assistedLookback is the nullable relative-duration object of the plan
// schema. Quantity tolerates both an integer and a numeral word.
type assistedLookback struct {
	Quantity json.RawMessage `json:"quantity"`
	Unit     string          `json:"unit"`
}

type assistedPlanReply struct {
	Tools     []string          `json:"tools"`
	Tickers   []string          `json:"tickers"`
	StartDate *string           `json:"start_date"`
	EndDate   *string           `json:"end_date"`
	Lookback  *assistedLookback `json:"lookback"`
}

// parseAssistedPlan decodes a model reply into a QueryPlan. Replies are run
// through json-repair first, which strips Markdown fences and fixes the
// usual model JSON mistakes.
func parseAssistedPlan(content string, today time.Time) (*QueryPlan, bool) {
	repaired, err := jsonrepair.RepairJSON(content)
	if err != nil {
		return nil, false
	}
	var reply assistedPlanReply
	if err := json.Unmarshal([]byte(repaired), &reply); err != nil {
		return nil, false
	}

	plan := &QueryPlan{}
	for _, tool := range reply.Tools {
		tool = strings.ToLower(strings.TrimSpace(tool))
		if isToolName(tool) && !containsString(plan.Tools, tool) {
			plan.Tools = append(plan.Tools, tool)
		}
	}
	for _, ticker := range reply.Tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker != "" && !containsString(plan.Tickers, ticker) {
			plan.Tickers = append(plan.Tickers, ticker)
		}
	}
	plan.StartDate = parseISODatePtr(reply.StartDate)
	plan.EndDate = parseISODatePtr(reply.EndDate)

	if plan.StartDate == nil && reply.Lookback != nil {
		quantity, ok := parseLookbackQuantity(reply.Lookback.Quantity)
		if ok {
			end := today
			if plan.EndDate != nil {
				end = *plan.EndDate
			}
			if start, ok := ResolveLookback(end, quantity, reply.Lookback.Unit); ok {
				startDate := dateOnly(start)
				plan.StartDate = &startDate
				if plan.EndDate == nil {
					endDate := dateOnly(end)
					plan.EndDate = &endDate
				}
			}
		}
	}
	return plan, true
}

// parseLookbackQuantity accepts an integer or a quantity token (numeral
// word, digit string, logographic numeral).
func parseLookbackQuantity(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, n > 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, ok := ParseQuantity(s); ok && n > 0 {
			return n, true
		}
	}
	return 0, false
}

func parseISODatePtr(value *string) *time.Time {
	if value == nil {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*value))
	if err != nil {
		return nil
	}
	date := dateOnly(parsed)
	return &date
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// requestCompletion dispatches one completion exchange to the configured
// provider SDK.
func requestCompletion(ctx context.Context, req completionRequest) (string, error) {
	switch req.Provider {
	case providerOpenAI:
		return requestOpenAICompletion(ctx, req)
	case providerGemini:
		return requestGeminiCompletion(ctx, req)
	case providerAnthropic:
		return requestAnthropicCompletion(ctx, req)
	default:
		return "", fmt.Errorf("unknown assistant provider: %s", req.Provider)
	}
}

func requestOpenAICompletion(ctx context.Context, req completionRequest) (string, error) {
	client := openai.NewClient(openaioption.WithAPIKey(req.APIKey))
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func requestGeminiCompletion(ctx context.Context, req completionRequest) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  req.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create gemini client failed: %w", err)
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		Temperature: genai.Ptr(float32(0.2)),
	}
	if req.WantJSON {
		config.ResponseMIMEType = "application/json"
	}
	response, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserPrompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}
	return response.Text(), nil
}

func requestAnthropicCompletion(ctx context.Context, req completionRequest) (string, error) {
	client := anthropic.NewClient(anthropicoption.WithAPIKey(req.APIKey))
	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", err)
	}
	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic response has no text content")
	}
	return b.String(), nil
}
