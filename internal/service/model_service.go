package service

import (
	"context"
	"time"

	"thrx-be/internal/dto"
	"thrx-be/internal/mapper"
	"thrx-be/internal/metrics"
	"thrx-be/internal/pkg/logger"
	"thrx-be/pkg/events"
	"thrx-be/pkg/llm/factory"
	"thrx-be/pkg/llm/ollama"
)

// ModelLoader is the local side of the model router.
type ModelLoader interface {
	LoadLocal(ctx context.Context, model string) error
	LocalBusy() bool
	LoadedLocalModel() string
}

type IModelService interface {
	List(ctx context.Context) []dto.ModelResponse
	Load(ctx context.Context, req *dto.LoadModelRequest) (*dto.LoadModelResponse, error)
}

type modelService struct {
	loader ModelLoader
	mapper *mapper.ChatMapper
	logger logger.ILogger
}

func NewModelService(loader ModelLoader, log logger.ILogger) IModelService {
	return &modelService{
		loader: loader,
		mapper: mapper.NewChatMapper(),
		logger: log,
	}
}

func (s *modelService) List(ctx context.Context) []dto.ModelResponse {
	loaded := s.loader.LoadedLocalModel()
	res := make([]dto.ModelResponse, 0, len(factory.Catalog))
	for _, info := range factory.Catalog {
		res = append(res, s.mapper.ToModelResponse(info, loaded))
	}
	return res
}

// Load preloads a local model. It refuses while the engine is generating.
func (s *modelService) Load(ctx context.Context, req *dto.LoadModelRequest) (*dto.LoadModelResponse, error) {
	if s.loader.LocalBusy() {
		return nil, ollama.ErrEngineBusy
	}
	start := time.Now()
	if err := s.loader.LoadLocal(ctx, req.Model); err != nil {
		return nil, err
	}
	return &dto.LoadModelResponse{
		Model:      req.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// NewModelLoadObserver publishes engine load progress and records load
// time. It is installed as the engine's OnLoad hook.
func NewModelLoadObserver(publisher IPublisherService, log logger.ILogger) func(ollama.LoadEvent) {
	return func(ev ollama.LoadEvent) {
		data := map[string]interface{}{"model": ev.Model}
		var eventType string

		switch ev.Phase {
		case ollama.LoadPhaseStarted:
			eventType = events.TypeModelLoadStarted
		case ollama.LoadPhaseFinished:
			eventType = events.TypeModelLoadFinished
			data["duration_ms"] = ev.Duration.Milliseconds()
			metrics.ModelLoadDuration.WithLabelValues(ev.Model, "ok").Observe(ev.Duration.Seconds())
		default:
			eventType = events.TypeModelLoadFailed
			if ev.Err != nil {
				data["error"] = ev.Err.Error()
			}
			metrics.ModelLoadDuration.WithLabelValues(ev.Model, "error").Observe(ev.Duration.Seconds())
			log.Warn("ModelService", "Model load failed", data)
		}

		if publisher != nil {
			publisher.Emit(context.Background(), events.BaseEvent{
				Type:       eventType,
				Data:       data,
				OccurredAt: time.Now().UTC(),
			})
		}
	}
}
