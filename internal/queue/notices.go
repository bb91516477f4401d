package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studyon/course-market/internal/model"
)

const noticeKind = "rent-expiry"

// PublishNotice enqueues one rent-expiry notice. The transaction id travels
// in the metadata too, so consumers can key idempotency checks without
// decoding the payload.
func (q *Queue) PublishNotice(ctx context.Context, notice model.RentExpiryNotice) (string, error) {
	return q.PublishJSON(ctx, notice, map[string]string{
		"kind":           noticeKind,
		"transaction_id": fmt.Sprintf("%d", notice.TransactionID),
	})
}

// DecodeNotice unpacks a consumed message back into a notice.
func DecodeNotice(msg *Message) (model.RentExpiryNotice, error) {
	var notice model.RentExpiryNotice
	if kind := msg.Metadata["kind"]; kind != "" && kind != noticeKind {
		return notice, fmt.Errorf("unexpected message kind %q", kind)
	}
	if err := json.Unmarshal(msg.Data, &notice); err != nil {
		return notice, fmt.Errorf("failed to decode notice: %w", err)
	}
	return notice, nil
}
