package recommend

import (
	"context"
	"errors"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/cluster"
	"github.com/plantrec/plantrec/internal/metrics"
	"github.com/plantrec/plantrec/internal/normalize"
)

// UserMessage turns a pipeline error into text suitable for an end user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCluster):
		return "No matches found. Try relaxing some preferences."
	case errors.Is(err, catalog.ErrInvalidFieldValue):
		return "Invalid preference: " + err.Error()
	case errors.Is(err, cluster.ErrInsufficientData):
		return "Not enough plants in the dataset to make recommendations."
	case errors.Is(err, catalog.ErrSchemaMismatch), errors.Is(err, normalize.ErrNoRows):
		return "The plant dataset does not match the expected fields."
	case errors.Is(err, context.DeadlineExceeded):
		return "The recommendation took too long. Please try again."
	case errors.Is(err, context.Canceled):
		return "The recommendation was canceled."
	default:
		return "Something went wrong while computing recommendations."
	}
}

// Outcome classifies err into a metrics outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrEmptyCluster):
		return metrics.OutcomeNoMatches
	case errors.Is(err, catalog.ErrInvalidFieldValue):
		return metrics.OutcomeInvalidInput
	case errors.Is(err, cluster.ErrInsufficientData):
		return metrics.OutcomeInsufficientData
	default:
		return metrics.OutcomeError
	}
}
