package service

import (
	"context"

	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/google/uuid"
)

// AccessLogReader is the read side of the access log repository.
type AccessLogReader interface {
	List(ctx context.Context, q model.AccessLogQuery) ([]model.LogRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.LogRecord, error)
}

type AccessLogService struct {
	reader AccessLogReader
}

func NewAccessLogService(reader AccessLogReader) *AccessLogService {
	return &AccessLogService{reader: reader}
}

func (s *AccessLogService) List(ctx context.Context, q model.AccessLogQuery) (*model.AccessLogList, error) {
	records, err := s.reader.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.LogRecord{}
	}
	return &model.AccessLogList{Items: records, Count: len(records)}, nil
}

func (s *AccessLogService) Get(ctx context.Context, id uuid.UUID) (*model.LogRecord, error) {
	return s.reader.GetByID(ctx, id)
}
