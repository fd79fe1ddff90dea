package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"google.golang.org/genai"

	"github.com/gradeflow/gradeflow-api/internal/artifact"
	"github.com/gradeflow/gradeflow-api/internal/config"
	"github.com/gradeflow/gradeflow-api/internal/grading"
)

// evaluationPrompt instructs the model to grade the attached answer sheet
// and reply with a single JSON object matching ResponseSchema.
const evaluationPrompt = `You are grading a scanned student answer sheet.
Read every answer on the attached document, evaluate it, and respond with a
single JSON object and nothing else:
{"score": <points awarded, integer>, "total_score": <maximum points, positive integer>,
 "feedback": "<short assessment of the work>", "extracted_text": "<the text you read>"}`

// GeminiGrader implements the grading.Engine interface using Google's
// Gemini API to evaluate scanned answer sheets.
type GeminiGrader struct {
	logger    *slog.Logger
	config    config.GradingConfig
	artifacts artifact.Store
	client    *genai.Client
	model     string
}

// NewGeminiGrader creates a new GeminiGrader.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - cfg: Grading configuration containing API key, model name and retry bounds
//   - artifacts: Store used to fetch the sheet bytes to grade
//   - logger: A structured logger for operation logging
//
// Returns a properly initialized GeminiGrader or an error if initialization fails.
func NewGeminiGrader(
	ctx context.Context,
	cfg config.GradingConfig,
	artifacts artifact.Store,
	logger *slog.Logger,
) (*GeminiGrader, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if artifacts == nil {
		return nil, errors.New("artifact store cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", grading.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", grading.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			grading.ErrInvalidConfig, err)
	}

	return &GeminiGrader{
		logger:    logger.With(slog.String("component", "gemini_grader")),
		config:    cfg,
		artifacts: artifacts,
		client:    client,
		model:     cfg.ModelName,
	}, nil
}

// Ensure GeminiGrader implements grading.Engine
var _ grading.Engine = (*GeminiGrader)(nil)

// Evaluate implements grading.Engine.Evaluate
// It fetches the artifact bytes, sends them to the Gemini API together with
// the grading prompt, and maps the structured response to a grading.Result.
// Failures wrap the grading sentinel errors so callers can distinguish an
// unusable response from a transient engine fault.
func (g *GeminiGrader) Evaluate(ctx context.Context, artifactRef string) (*grading.Result, error) {
	data, contentType, err := g.artifacts.Get(ctx, artifactRef)
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to fetch artifact for grading",
			"error", err,
			"artifact_ref", artifactRef)
		return nil, fmt.Errorf("%w: fetching artifact: %v", grading.ErrEngine, err)
	}

	schema, err := g.callGeminiWithRetry(ctx, data, contentType)
	if err != nil {
		return nil, err
	}

	if schema.TotalScore <= 0 || schema.Score < 0 || schema.Score > schema.TotalScore {
		return nil, fmt.Errorf("%w: implausible score %d/%d",
			grading.ErrInvalidResponse, schema.Score, schema.TotalScore)
	}

	return &grading.Result{
		Score:         schema.Score,
		TotalScore:    schema.TotalScore,
		Feedback:      schema.Feedback,
		ExtractedText: schema.ExtractedText,
	}, nil
}

// callGeminiWithRetry makes a call to the Gemini API with exponential
// backoff and jitter for transient errors. Permanent errors (malformed
// responses, safety blocks) are returned immediately without retrying.
func (g *GeminiGrader) callGeminiWithRetry(
	ctx context.Context,
	data []byte,
	contentType string,
) (*ResponseSchema, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromBytes(data, contentType),
			genai.NewPartFromText(evaluationPrompt),
		},
	}}
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	for attempt := 0; ; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		schema, err := g.callOnce(ctx, contents, genConfig)
		if err == nil {
			return schema, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attempt+1,
			"error", err)

		// Permanent failures are not worth retrying.
		if errors.Is(err, grading.ErrInvalidResponse) {
			return nil, err
		}

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				grading.ErrTransientFailure, maxRetries, err)
		}

		// delay = 2^attempt seconds * (0.5 + rand(0, 0.5))
		backoffSeconds := math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", grading.ErrTransientFailure, ctx.Err())
		}
	}
}

// callOnce performs a single generation request and parses the response.
func (g *GeminiGrader) callOnce(
	ctx context.Context,
	contents []*genai.Content,
	genConfig *genai.GenerateContentConfig,
) (*ResponseSchema, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", grading.ErrTransientFailure, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", grading.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: content blocked by safety filters", grading.ErrInvalidResponse)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response text", grading.ErrInvalidResponse)
	}

	var schema ResponseSchema
	if err := json.Unmarshal([]byte(text), &schema); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			grading.ErrInvalidResponse, err)
	}

	return &schema, nil
}
