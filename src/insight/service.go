package insight

import (
	"context"
	"encoding/json"
	"strings"

	"neotrade/src/model"

	logger "github.com/sirupsen/logrus"
)

const (
	DefaultPrompt = "Briefly analyze the Nifty 50 and Gold MCX sentiment for today. " +
		"Should I be looking for re-entry or trend continuation? Max 150 words."
	// NoData is shown when the service answers without any text.
	NoData = "No data available."
)

type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

type ExceptionReporter interface {
	Create(ctx context.Context, e *model.Exception) error
}

type Service struct {
	analyzer Analyzer
	reporter ExceptionReporter
	log      *logger.Entry
}

// NewService wraps an analyzer. reporter may be nil.
func NewService(analyzer Analyzer, reporter ExceptionReporter) *Service {
	return &Service{
		analyzer: analyzer,
		reporter: reporter,
		log:      logger.WithField("component", "insight"),
	}
}

// Insight asks for commentary; an empty prompt uses DefaultPrompt. Failures
// are logged and reported, then returned to the caller unchanged.
func (s *Service) Insight(ctx context.Context, id model.Identity, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}

	text, err := s.analyzer.Analyze(ctx, prompt)
	if err != nil {
		s.log.WithError(err).WithField("user", id.UserID).Error("insight request failed")
		s.report(ctx, id, prompt, err)
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return NoData, nil
	}
	return text, nil
}

func (s *Service) report(ctx context.Context, id model.Identity, prompt string, cause error) {
	if s.reporter == nil {
		return
	}

	extra, _ := json.Marshal(map[string]string{"prompt": prompt})
	exc := &model.Exception{
		Service: "neotrade",
		Module:  "insight",
		Method:  "Insight",
		Message: cause.Error(),
		Level:   "error",
		UserID:  id.UserID,
		Context: string(extra),
	}

	// the caller's context may already be cancelled
	if err := s.reporter.Create(context.WithoutCancel(ctx), exc); err != nil {
		s.log.WithError(err).Warn("failed to persist insight exception")
	}
}
