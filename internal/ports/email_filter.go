package ports

import (
	"context"

	"github.com/yiyanglaw/spam-email-backend/internal/core"
)

// Frontend is a long running entry point that feeds text to the classifier
type Frontend interface {
	// Name identifies the frontend in logs
	Name() string

	// Start begins serving; it returns once the frontend is listening
	Start() error

	// Stop stops the frontend, waiting for in-flight work where possible
	Stop() error
}

// EmailFilter defines the interface for frontends that classify whole emails
type EmailFilter interface {
	Frontend

	// ProcessEmail classifies an email and returns the prediction
	ProcessEmail(ctx context.Context, email *core.Email) (*core.Prediction, error)
}
