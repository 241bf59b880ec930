package services

import "context"

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	intentKey      contextKey = "intent"
	translationKey contextKey = "translation"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithIntent annotates context with the completion request type.
func WithIntent(ctx context.Context, intent string) context.Context {
	if intent == "" {
		return ctx
	}
	return context.WithValue(ctx, intentKey, intent)
}

// IntentFromContext returns the completion request type if present.
func IntentFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(intentKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTranslation annotates context with the translation being resolved.
func WithTranslation(ctx context.Context, translation string) context.Context {
	if translation == "" {
		return ctx
	}
	return context.WithValue(ctx, translationKey, translation)
}

// TranslationFromContext returns the translation if present.
func TranslationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(translationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
