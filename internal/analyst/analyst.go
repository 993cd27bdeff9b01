// Package analyst runs an optional LLM second opinion over approved
// recommendations. The model can veto a trade or nudge its confidence, but
// never changes strikes, prices or dates; the rule-based output stands on
// its own when the analyst is disabled or fails.
package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/vinnzy/stockreco/internal/config"
	apperrors "github.com/vinnzy/stockreco/internal/errors"
	"github.com/vinnzy/stockreco/internal/models"
	"github.com/vinnzy/stockreco/pkg/utils"
)

// maxConfAdjust bounds how far the analyst can move a confidence score.
const maxConfAdjust = 0.10

const systemPrompt = `You are a cautious Indian derivatives risk analyst reviewing long option recommendations produced by a rule-based engine.
For each candidate, respond with JSON only: {"verdict": "APPROVE" or "VETO", "confidence_adjust": float in [-0.10, 0.10], "thesis": "one sentence"}.
Veto only for concrete risks the rules cannot see (events, circuit limits, known corporate actions). Do not restate the numbers.`

// Analyst wraps an OpenAI chat client.
type Analyst struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// New creates an analyst. Returns nil (disabled) when no API key is set.
func New(cfg config.LLMConfig, logger zerolog.Logger) *Analyst {
	if cfg.APIKey == "" {
		return nil
	}
	return &Analyst{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
		log:    logger.With().Str("component", "analyst").Logger(),
	}
}

// verdict is the model's structured answer for one candidate.
type verdict struct {
	Verdict          string  `json:"verdict"`
	ConfidenceAdjust float64 `json:"confidence_adjust"`
	Thesis           string  `json:"thesis"`
}

// Review passes each approved BUY through the model. Vetoes move to the
// rejected list with an "[LLM]" prefixed reason; approvals may carry a
// bounded confidence adjustment and a thesis line in the rationale. HOLDs
// and any candidate the model errors on pass through unchanged.
func (a *Analyst) Review(ctx context.Context, result models.ReviewResult) models.ReviewResult {
	out := models.ReviewResult{
		Approved:      make([]models.OptionReco, 0, len(result.Approved)),
		Rejected:      result.Rejected,
		EffectiveMode: result.EffectiveMode,
		RegimeNote:    result.RegimeNote,
	}

	for _, reco := range result.Approved {
		if reco.Action != models.ActionBuy {
			out.Approved = append(out.Approved, reco)
			continue
		}

		v, err := a.assess(ctx, reco)
		if err != nil {
			a.log.Warn().Err(err).Str("symbol", reco.Symbol).Msg("Analyst unavailable; keeping rule-based outcome")
			out.Approved = append(out.Approved, reco)
			continue
		}

		if strings.EqualFold(v.Verdict, "VETO") {
			out.Rejected = append(out.Rejected, models.Rejection{
				Symbol: reco.Symbol,
				Side:   reco.Side,
				Strike: reco.Strike,
				Expiry: reco.ExpiryDate,
				Reason: "[LLM] " + v.Thesis,
			})
			continue
		}

		if adj := utils.Clamp(v.ConfidenceAdjust, -maxConfAdjust, maxConfAdjust); adj != 0 {
			reco.Confidence = utils.Round2(utils.Clamp(reco.Confidence+adj, 0, 0.95))
			reco.Diag.LLMConfAdjust = models.FloatPtr(adj)
		}
		if v.Thesis != "" {
			reco.Rationale = append(reco.Rationale, "[LLM] "+v.Thesis)
		}
		out.Approved = append(out.Approved, reco)
	}

	return out
}

func (a *Analyst) assess(ctx context.Context, reco models.OptionReco) (verdict, error) {
	payload, err := json.Marshal(reco)
	if err != nil {
		return verdict{}, apperrors.NewAgentError("analyst", "marshal candidate", err)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return verdict{}, apperrors.NewAgentError("analyst", "chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return verdict{}, apperrors.NewAgentError("analyst", "chat completion", fmt.Errorf("no choices returned"))
	}

	var v verdict
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &v); err != nil {
		return verdict{}, apperrors.NewAgentError("analyst", "parse verdict", err)
	}
	return v, nil
}
