// Package notification fans verification outcomes out to subscribers and the
// notification log. Delivery is best effort; a slow or absent consumer never
// blocks a verification call.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"loanserve/internal/kyc"
	"loanserve/pkg/logger"
)

// Event is the wire shape pushed to live subscribers.
type Event struct {
	Type         string    `json:"type"`
	UserID       uuid.UUID `json:"user_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	RecordID     uuid.UUID `json:"record_id"`
	DocumentKind string    `json:"document_kind"`
	Status       string    `json:"status"`
	Overall      string    `json:"overall"`
	At           time.Time `json:"at"`
}

const subscriberBuffer = 16

// Service implements kyc.Notifier and owns the subscriber registry.
type Service struct {
	logger logger.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewService creates the notification service.
func NewService(log logger.Logger) *Service {
	return &Service{
		logger: log,
		subs:   make(map[chan Event]struct{}),
	}
}

// KycStatusChanged logs the outcome and broadcasts it to live subscribers.
// Subscribers that cannot keep up drop events rather than stall the caller.
func (s *Service) KycStatusChanged(_ context.Context, ev kyc.StatusEvent) {
	s.logger.Info("KYC status changed", map[string]interface{}{
		"user_id":       ev.UserID.String(),
		"customer_id":   ev.CustomerID.String(),
		"record_id":     ev.RecordID.String(),
		"document_kind": string(ev.DocumentKind),
		"status":        string(ev.Status),
		"overall":       string(ev.Overall),
	})

	out := Event{
		Type:         "kyc_status_changed",
		UserID:       ev.UserID,
		CustomerID:   ev.CustomerID,
		RecordID:     ev.RecordID,
		DocumentKind: string(ev.DocumentKind),
		Status:       string(ev.Status),
		Overall:      string(ev.Overall),
		At:           ev.At,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- out:
		default:
			s.logger.Warn("Dropping event for slow subscriber", map[string]interface{}{
				"record_id": ev.RecordID.String(),
			})
		}
	}
}

// Subscribe registers a live event channel. The returned cancel func must be
// called when the consumer goes away.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}
