package notifier

import (
	"context"
	"errors"
	"strconv"
	"time"

	gateway "github.com/studyon/course-market/internal/gateways"
	"github.com/studyon/course-market/internal/queue"
	"github.com/studyon/course-market/pkg/logger"
	"github.com/studyon/course-market/pkg/prom"
)

// RentNoticeProcessor delivers one rent-expiry warning per ledger entry,
// exactly once per 24h window, through the notification provider.
type RentNoticeProcessor struct {
	client      *gateway.Client
	idempotency *IdempotencyService
}

func NewRentNoticeProcessor(client *gateway.Client, idempotency *IdempotencyService) *RentNoticeProcessor {
	return &RentNoticeProcessor{
		client:      client,
		idempotency: idempotency,
	}
}

func (p *RentNoticeProcessor) GetType() string {
	return "rent-expiry-notice"
}

// Process decodes the queue message and sends the notice, with idempotency
// guarantees keyed on the ledger entry id.
func (p *RentNoticeProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	notice, err := queue.DecodeNotice(queueMessage)
	if err != nil {
		logger.Error("Failed to decode notice", "error", err)
		return err // malformed payload ends up in the DLQ
	}

	noticeID := strconv.FormatInt(notice.TransactionID, 10)

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, noticeID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			logger.Info("Notice already delivered, skipping", "notice_id", noticeID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Max retries exceeded", "notice_id", noticeID)
			prom.IncNoticeDelivered("abandoned")
			return nil // ACK to move to DLQ
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			logger.Info("Lock held by another consumer, will retry", "notice_id", noticeID)
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire lock", "notice_id", noticeID, "error", err)
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Info("Delivering rent-expiry notice",
		"notice_id", noticeID,
		"email", notice.Email,
		"retry_count", procCtx.RetryCount,
		"is_retry", procCtx.IsRetry)

	req := &gateway.NotifyRequest{
		NoticeID:    noticeID,
		Email:       notice.Email,
		CourseTitle: notice.CourseTitle,
		Expires:     notice.Expires,
	}

	start := time.Now()
	res, err := p.client.SendNotice(ctx, req)
	if err != nil {
		logger.Error("Failed to send notice", "notice_id", noticeID, "error", err)
		prom.IncNoticeDelivered("failed")
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "notice_id", noticeID, "error", markErr)
		}
		return err // NACK to retry from queue
	}

	if res.Status == gateway.StatusSent {
		prom.AddNoticeDeliveryDuration(time.Since(start).Seconds(), res.Provider)
		prom.IncNoticeDelivered("sent")

		if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
			logger.Error("Failed to mark success", "notice_id", noticeID, "error", markErr)
			// Continue - the notice went out
		}

		logger.Info("Notice delivered",
			"notice_id", noticeID,
			"email", notice.Email,
			"provider", res.Provider)
		return nil // ACK message
	}

	// Provider accepted the request but refused the notice
	logger.Warn("Notice not delivered", "notice_id", noticeID, "status", string(res.Status), "error", res.ErrorMsg)
	prom.IncNoticeDelivered("failed")
	if markErr := p.idempotency.MarkFailure(ctx, procCtx, errors.New("provider returned non-sent status")); markErr != nil {
		logger.Error("Failed to mark failure", "notice_id", noticeID, "error", markErr)
	}
	return errors.New("failed to deliver notice")
}
