package waitlist

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/akeren/cv99x-waitlist/config/router"
	"github.com/akeren/cv99x-waitlist/internal/log"
	apperrors "github.com/akeren/cv99x-waitlist/pkg/errors"
)

func NewWaitlistController(
	repository WaitlistRepository,
	logger *log.Logger,
	cfg *ServiceConfig,
) *router.RESTController {

	return router.NewRESTController(
		"WaitlistController",
		"/api/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			service := NewWaitlistService(logger, repository, cfg)
			metrics := newSubmissionMetrics(rs.MetricsRegisterer())

			rs.AddPostHandler(c, "", submitWaitlistEntryHandler(service, metrics))
		},
	)
}

func submitWaitlistEntryHandler(service WaitlistService, metrics *submissionMetrics) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		body, err := decodeBody(ctx)
		if err != nil {
			metrics.record(outcomeInvalidBody)

			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				logger.Warn("Submission body exceeds limit", "limit", tooLarge.Limit)
				return router.ErrorResult(http.StatusRequestEntityTooLarge, router.MessagePayloadTooLarge)
			}

			logger.Error("Failed to parse submission body", "error", err)
			return router.InternalServerErrorResult()
		}

		result, err := service.SubmitEntry(ctx.Request.Context(), ParseSubmission(body))
		if err != nil {
			if apperrors.IsInvalidRequestError(err) {
				metrics.record(outcomeRejected)
			} else {
				metrics.record(outcomeFailed)
			}
			return router.ErrorResultFromError(err)
		}

		if result.Suppressed {
			metrics.record(outcomeSuppressed)
			return router.OKResult(nil)
		}

		metrics.record(outcomeStored)
		return router.OKResult(result.Entry)
	}
}

// decodeBody parses the whole body as one JSON value. Empty bodies and trailing data are errors.
func decodeBody(ctx *router.RequestContext) (any, error) {
	raw, err := ctx.GetRawData()
	if err != nil {
		return nil, err
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	return body, nil
}
