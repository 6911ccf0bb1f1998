package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	mqcontracts "sitetrack/contracts/mq"
	"sitetrack/internal/progress"
	"sitetrack/internal/service/project"
	"sitetrack/pkg/logger"
	"sitetrack/pkg/mq"
	"sitetrack/pkg/util"
)

const handlerRecompute = "recompute"

// Recomputer is implemented by *project.Service.
type Recomputer interface {
	Recompute(ctx context.Context, id int64, trigger string) (project.Outcome, error)
}

// Deduper is implemented by *util.Deduper.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

// RetryCounter is implemented by *util.RetryCounter.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// RecomputeHandler consumes project.recompute.requested.
type RecomputeHandler struct {
	projects     Recomputer
	deduper      Deduper
	retryCounter RetryCounter
	maxRetries   int64
	logger       *zap.Logger
}

func NewRecomputeHandler(projects Recomputer, deduper Deduper, retryCounter RetryCounter, maxRetries int, logger *zap.Logger) *RecomputeHandler {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RecomputeHandler{
		projects:     projects,
		deduper:      deduper,
		retryCounter: retryCounter,
		maxRetries:   int64(maxRetries),
		logger:       logger,
	}
}

// Handle 返回 nil 表示 ack；mq.DeadLetter 表示进 DLQ；其他错误重新入队
func (h *RecomputeHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.ProjectRecomputeRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal recompute request (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		return mq.DeadLetter(fmt.Errorf("json_unmarshal_error: %w", err))
	}
	if p.ProjectID <= 0 {
		return mq.DeadLetter(fmt.Errorf("invalid project_id: %d", p.ProjectID))
	}

	requestID := p.RequestID
	if requestID == "" {
		requestID = "project-" + strconv.FormatInt(p.ProjectID, 10)
	}
	if p.RequestID != "" && !h.deduper.AcquireOnce(ctx, handlerRecompute, requestID) {
		return nil
	}

	outcome, err := h.projects.Recompute(ctx, p.ProjectID, project.TriggerRequest)
	if err == nil {
		if resetErr := h.retryCounter.Reset(ctx, util.FormatRetryKey(handlerRecompute, requestID)); resetErr != nil {
			log.Warn("Failed to reset retry counter", zap.Error(resetErr))
		}
		log.Info("Project recomputed on request",
			zap.Int64("project_id", p.ProjectID),
			zap.String("request_id", p.RequestID),
			zap.String("outcome", string(outcome)),
		)
		return nil
	}

	if errors.Is(err, progress.ErrNotFound) {
		log.Warn("Recompute requested for unknown project, dropping",
			zap.Int64("project_id", p.ProjectID),
		)
		return nil
	}

	retryable, errType := util.IsRetryableError(err)
	log.Error("Failed to recompute project",
		zap.Int64("project_id", p.ProjectID),
		zap.String("error_type", errType),
		zap.Bool("retryable", retryable),
		zap.Error(err),
	)
	if !retryable {
		return mq.DeadLetter(err)
	}

	count, countErr := h.retryCounter.IncrementAndGet(ctx, util.FormatRetryKey(handlerRecompute, requestID))
	if countErr != nil {
		log.Warn("Failed to increment retry counter", zap.Error(countErr))
	}
	if !util.ShouldRetry(count, h.maxRetries, retryable) {
		return mq.DeadLetter(fmt.Errorf("giving up after %d attempts: %w", count, err))
	}

	// 允许重投递的消息再次通过去重
	if p.RequestID != "" {
		h.deduper.Release(ctx, handlerRecompute, requestID)
	}
	return err
}
