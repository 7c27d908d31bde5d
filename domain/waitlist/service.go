package waitlist

import (
	"context"
	"time"

	"github.com/akeren/cv99x-waitlist/internal/log"
	"github.com/akeren/cv99x-waitlist/pkg/constants"
	apperrors "github.com/akeren/cv99x-waitlist/pkg/errors"
	"github.com/go-playground/validator/v10"
)

type WaitlistService interface {
	// SubmitEntry validates a projected submission and upserts it keyed on email.
	// Honeypot submissions return a suppressed result without touching the store.
	SubmitEntry(ctx context.Context, req *SubmitWaitlistRequest) (*SubmissionResult, error)
}

type ServiceConfig struct {
	DefaultSource string
	StoreTimeout  time.Duration
	Clock         Clock
}

func (cfg *ServiceConfig) withDefaults() ServiceConfig {
	out := ServiceConfig{}
	if cfg != nil {
		out = *cfg
	}
	if out.DefaultSource == "" {
		out.DefaultSource = constants.DefaultWaitlistSource
	}
	if out.StoreTimeout <= 0 {
		out.StoreTimeout = constants.DefaultStoreTimeout
	}
	if out.Clock == nil {
		out.Clock = NewMonotonicClock()
	}
	return out
}

type waitlistService struct {
	logger     *log.Logger
	repository WaitlistRepository
	validate   *validator.Validate
	config     ServiceConfig
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, cfg *ServiceConfig) WaitlistService {
	return &waitlistService{
		logger:     logger,
		repository: repository,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		config:     cfg.withDefaults(),
	}
}

func (s *waitlistService) SubmitEntry(ctx context.Context, req *SubmitWaitlistRequest) (*SubmissionResult, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("SubmitEntry received empty request")
		return nil, apperrors.NewInvalidRequestError(MessageNameAndEmailRequired, nil)
	}

	// Required fields are checked before the honeypot, so a bot that omits them gets a 400.
	if err := s.validate.Struct(req); err != nil {
		logger.Warn("Rejected waitlist submission", "violations", apperrors.FormatValidationErrors(err, req))
		return nil, apperrors.NewInvalidRequestError(MessageNameAndEmailRequired, err)
	}

	if req.BotTriggered {
		logger.Info("Honeypot triggered; submission dropped")
		return &SubmissionResult{Suppressed: true}, nil
	}

	entry := ToWaitlistEntryModel(req, s.config.DefaultSource, s.config.Clock.Now())

	storeCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	stored, err := s.repository.UpsertEntry(storeCtx, entry)
	if err != nil {
		logger.Error("Failed to upsert waitlist entry", "source", entry.Source, "error", err)
		if !apperrors.IsDatabaseError(err) {
			err = apperrors.NewDatabaseError("unable to upsert waitlist entry", err)
		}
		return nil, err
	}

	logger.Info("Waitlist entry stored", "id", stored.ID, "source", stored.Source)

	response := ToWaitlistEntryResponse(stored)
	return &SubmissionResult{Entry: &response}, nil
}
