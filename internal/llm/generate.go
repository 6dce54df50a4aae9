package llm

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

var tracer = otel.Tracer("github.com/entrepeneur4lyf/repairforge/internal/llm")

// generate issues one model request, retried per retry, inside a span
// named op.
func generate(ctx context.Context, gen ContentGenerator, retry RetryOptions, op, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("gen_ai.system", "gemini"),
		attribute.String("gen_ai.request.model", model),
	))
	defer span.End()

	attempts := 0
	resp, err := WithRetry(ctx, retry, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		attempts++
		resp, err := gen.GenerateContent(ctx, model, contents, config)
		return resp, classifyError(err)
	})
	span.SetAttributes(attribute.Int("repairforge.llm.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

// classifyError exposes the HTTP status of a Gemini API error to the retry
// policy. Other errors pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return NewRetryableError(err, apiErr.Code, nil)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return NewRetryableError(err, apiErrPtr.Code, nil)
	}
	return err
}
