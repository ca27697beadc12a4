package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/pkg/jobs"
	"github.com/noah-isme/tutoring-api/pkg/mailer"
)

const jobKindBookingEmail = "booking_confirmation_email"

// BookingNotification describes a confirmed booking from both parties' points of view.
type BookingNotification struct {
	BookingID         string
	QualificationName string
	StudentName       string
	StudentEmail      string
	StudentZone       string
	StudentLocalStart string
	TutorName         string
	TutorEmail        string
	TutorZone         string
	TutorLocalStart   string
}

// NotificationService sends booking confirmations through a background queue so that mail delivery
// never delays or fails a booking.
type NotificationService struct {
	queue   *jobs.Queue
	sender  mailer.Sender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService builds the service and its queue. The queue is idle until Start.
func NewNotificationService(sender mailer.Sender, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = mailer.NoopSender{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s := &NotificationService{sender: sender, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// BookingConfirmed queues one email for the student and one for the tutor.
func (s *NotificationService) BookingConfirmed(n BookingNotification) error {
	messages := []mailer.Message{
		{
			To:      n.StudentEmail,
			Subject: fmt.Sprintf("Booking confirmed: %s", n.QualificationName),
			Body: fmt.Sprintf("Hi %s,\n\nYour session with %s starts at %s (%s).\nBooking reference: %s\n",
				n.StudentName, n.TutorName, n.StudentLocalStart, n.StudentZone, n.BookingID),
		},
		{
			To:      n.TutorEmail,
			Subject: fmt.Sprintf("New booking: %s", n.QualificationName),
			Body: fmt.Sprintf("Hi %s,\n\n%s booked a session starting at %s (%s).\nBooking reference: %s\n",
				n.TutorName, n.StudentName, n.TutorLocalStart, n.TutorZone, n.BookingID),
		},
	}

	var failed []string
	for _, msg := range messages {
		if strings.TrimSpace(msg.To) == "" {
			continue
		}
		if _, err := s.queue.Enqueue(jobKindBookingEmail, msg); err != nil {
			s.metrics.RecordNotification("dropped")
			failed = append(failed, fmt.Sprintf("%s: %v", msg.To, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("enqueue booking notifications: %s", strings.Join(failed, "; "))
	}
	return nil
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("kind", job.Kind))
		return nil
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.RecordNotification("failed")
		return err
	}
	s.metrics.RecordNotification("sent")
	s.logger.Debug("notification sent", zap.String("job_id", job.ID), zap.String("to", msg.To))
	return nil
}
