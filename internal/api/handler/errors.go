package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/mcoot/geoduel/internal/api/apierr"
	"github.com/mcoot/geoduel/internal/engine"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrLoopStopped):
		err = apierr.NewUnavailableError()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		err = apierr.NewUnavailableError()
	}
	apierr.WriteError(w, err)
}
