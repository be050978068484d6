package service

import (
	"context"

	"thrx-be/internal/dto"
	"thrx-be/internal/mapper"
	"thrx-be/internal/pkg/logger"
)

type ISystemService interface {
	GetLogs(ctx context.Context, level string, page, limit int) ([]dto.LogListResponse, error)
	GetLog(ctx context.Context, id string) (*dto.LogDetailResponse, error)
	Health(ctx context.Context) dto.HealthResponse
}

type HealthInfo struct {
	StoreDriver    string
	SearchProvider string
}

type systemService struct {
	logger   logger.ILogger
	sessions SessionRegistry
	models   ModelLoader
	info     HealthInfo
	mapper   *mapper.ChatMapper
}

func NewSystemService(log logger.ILogger, sessions SessionRegistry, models ModelLoader, info HealthInfo) ISystemService {
	return &systemService{
		logger:   log,
		sessions: sessions,
		models:   models,
		info:     info,
		mapper:   mapper.NewChatMapper(),
	}
}

func (s *systemService) GetLogs(ctx context.Context, level string, page, limit int) ([]dto.LogListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	entries, err := s.logger.GetLogs(level, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	res := make([]dto.LogListResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, s.mapper.ToLogListResponse(e))
	}
	return res, nil
}

func (s *systemService) GetLog(ctx context.Context, id string) (*dto.LogDetailResponse, error) {
	entry, err := s.logger.GetLogById(id)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToLogDetailResponse(*entry), nil
}

func (s *systemService) Health(ctx context.Context) dto.HealthResponse {
	return dto.HealthResponse{
		Status:         "ok",
		StoreDriver:    s.info.StoreDriver,
		OpenSessions:   s.sessions.Count(),
		LocalModel:     s.models.LoadedLocalModel(),
		LocalBusy:      s.models.LocalBusy(),
		SearchProvider: s.info.SearchProvider,
	}
}
