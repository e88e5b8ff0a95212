// Package assessment wires the feature, inference, analyzer and summary stages
// into the operations the transports expose.
package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthcatchers/iris/internal/analyzers"
	"github.com/healthcatchers/iris/internal/domain"
	"github.com/healthcatchers/iris/internal/features"
	"github.com/healthcatchers/iris/internal/inference"
	"github.com/healthcatchers/iris/internal/metrics"
	"github.com/healthcatchers/iris/internal/summary"
)

// Operation names used for spans and metrics.
const (
	OpAssessment = "assessment"
	OpPrediction = "prediction"
)

// Options configures a Service.
type Options struct {
	// Derivations are extra engineered features.
	Derivations []domain.DerivationConfig

	// TopK is the number of ranked risk factors; zero selects the default.
	TopK int

	// Info describes the classifier artifact for GET /v1/model.
	Info domain.ArtifactInfo

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Service runs assessments. It holds only read-only state and is safe for
// concurrent use.
type Service struct {
	engineer   *features.Engineer
	predictor  *inference.Predictor
	explainer  *inference.Explainer
	basic      []analyzers.Analyzer
	advanced   []analyzers.Analyzer
	aggregator *summary.Aggregator

	info     domain.ArtifactInfo
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	validate *validator.Validate
}

// NewService builds the pipeline around classifier. Any mismatch between the
// classifier and the engineered features is a configuration error.
func NewService(classifier domain.Classifier, opts Options) (*Service, error) {
	engineer, err := features.NewEngineer(opts.Derivations)
	if err != nil {
		return nil, err
	}
	predictor, err := inference.NewPredictor(classifier, engineer.Features())
	if err != nil {
		return nil, err
	}
	explainer, err := inference.NewExplainer(classifier, engineer.Features(), opts.TopK)
	if err != nil {
		return nil, err
	}

	opts.Metrics.SetModel(opts.Info)

	return &Service{
		engineer:   engineer,
		predictor:  predictor,
		explainer:  explainer,
		basic:      analyzers.Basic(),
		advanced:   analyzers.Advanced(),
		aggregator: summary.NewAggregator(),
		info:       opts.Info,
		metrics:    opts.Metrics,
		tracer:     otel.Tracer("github.com/healthcatchers/iris/internal/assessment"),
		validate:   validator.New(),
	}, nil
}

// Model describes the loaded classifier.
func (s *Service) Model() domain.ArtifactInfo {
	return s.info
}

// ProcessAssessment runs the whole pipeline over raw.
func (s *Service) ProcessAssessment(ctx context.Context, raw domain.RawAssessmentInput) (resp *domain.AssessmentResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "assessment.process")
	start := time.Now()
	defer func() { s.finish(span, OpAssessment, start, err) }()

	v, prediction, explanation, err := s.predict(ctx, raw)
	if err != nil {
		return nil, err
	}

	_, aspan := s.tracer.Start(ctx, "analyzers.run")
	in := analyzers.Input{Features: v, Prediction: prediction}
	basic := analyzers.Run(s.basic, in)
	advanced := analyzers.Run(s.advanced, in)
	aspan.SetAttributes(attribute.Int("reports.advanced", len(advanced)))
	aspan.End()

	all := make([]domain.DomainReport, 0, len(basic)+len(advanced))
	all = append(all, basic...)
	all = append(all, advanced...)
	sum := s.aggregator.Summarize(prediction, all)
	span.SetAttributes(attribute.String("summary.status", string(sum.OverallStatus)))

	return &domain.AssessmentResponse{
		Prediction:      prediction,
		RiskFactors:     explanation.Factors,
		Baseline:        explanation.Baseline,
		BasicReports:    basic,
		AdvancedReports: advanced,
		Summary:         sum,
	}, nil
}

// PredictDryEye runs only the feature, prediction and explanation stages.
func (s *Service) PredictDryEye(ctx context.Context, raw domain.RawAssessmentInput) (resp *domain.PredictionResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "assessment.predict")
	start := time.Now()
	defer func() { s.finish(span, OpPrediction, start, err) }()

	_, prediction, explanation, err := s.predict(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &domain.PredictionResponse{
		Prediction:  prediction,
		RiskFactors: explanation.Factors,
		Baseline:    explanation.Baseline,
	}, nil
}

func (s *Service) predict(ctx context.Context, raw domain.RawAssessmentInput) (*domain.FeatureVector, domain.PredictionResult, domain.Explanation, error) {
	_, fspan := s.tracer.Start(ctx, "features.build")
	v, err := s.engineer.Build(raw)
	endSpan(fspan, err)
	if err != nil {
		return nil, domain.PredictionResult{}, domain.Explanation{}, err
	}

	_, pspan := s.tracer.Start(ctx, "inference.predict")
	prediction, err := s.predictor.Predict(v)
	endSpan(pspan, err)
	if err != nil {
		return nil, domain.PredictionResult{}, domain.Explanation{}, err
	}
	s.metrics.ObserveRisk(prediction.RiskLevel)

	_, espan := s.tracer.Start(ctx, "inference.explain")
	explanation, err := s.explainer.Explain(v, prediction)
	endSpan(espan, err)
	if err != nil {
		return nil, domain.PredictionResult{}, domain.Explanation{}, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Float64("prediction.probability", prediction.Probability),
		attribute.String("prediction.risk_level", string(prediction.RiskLevel)),
	)
	return v, prediction, explanation, nil
}

func (s *Service) finish(span trace.Span, op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, time.Since(start), err)
	endSpan(span, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Dispatch answers one transport envelope. Every request yields exactly one
// reply carrying the request ID: the verb's result action, or ActionError.
func (s *Service) Dispatch(ctx context.Context, req domain.Envelope) domain.Envelope {
	if err := s.validate.Struct(req); err != nil {
		return ErrorEnvelope(req.ID, "action is required")
	}

	raw, err := decodeInput(req.Data)
	if err != nil {
		return ErrorEnvelope(req.ID, err.Error())
	}

	var result any
	var action string
	switch req.Action {
	case domain.ActionPredictDryEye:
		action = domain.ActionPredictionResult
		result, err = s.PredictDryEye(ctx, raw)
	case domain.ActionHealthCheck:
		action = domain.ActionHealthResult
		result, err = s.ProcessAssessment(ctx, raw)
	default:
		return ErrorEnvelope(req.ID, fmt.Sprintf("unknown action: %s", req.Action))
	}
	if err != nil {
		return ErrorEnvelope(req.ID, err.Error())
	}

	data, err := json.Marshal(result)
	if err != nil {
		return ErrorEnvelope(req.ID, fmt.Sprintf("encode result: %v", err))
	}
	return domain.Envelope{ID: req.ID, Action: action, Data: data}
}

// ErrorEnvelope builds an ActionError reply.
func ErrorEnvelope(id, message string) domain.Envelope {
	data, _ := json.Marshal(domain.ErrorData{Message: message})
	return domain.Envelope{ID: id, Action: domain.ActionError, Data: data}
}

// decodeInput accepts an absent or null payload as an empty questionnaire.
func decodeInput(data json.RawMessage) (domain.RawAssessmentInput, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.RawAssessmentInput{}, nil
	}
	var raw domain.RawAssessmentInput
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("data must be a JSON object")
	}
	return raw, nil
}
