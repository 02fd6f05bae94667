package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/preenroll-api/internal/models"
	appErrors "github.com/campushq/preenroll-api/pkg/errors"
	"github.com/campushq/preenroll-api/pkg/jobs"
	"github.com/campushq/preenroll-api/pkg/mailer"
)

type notificationRepo interface {
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	Create(ctx context.Context, notification *models.Notification) error
	Update(ctx context.Context, notification *models.Notification) error
	Delete(ctx context.Context, id string) error
}

type recipientSelector interface {
	SelectRecipients(ctx context.Context, filter models.BroadcastFilter) ([]models.Recipient, error)
}

type broadcastQueue interface {
	Enqueue(job jobs.Job) error
}

// CreateNotificationRequest is the payload for authoring a notification.
type CreateNotificationRequest struct {
	Title   string                  `json:"title" validate:"required,max=255"`
	Message string                  `json:"message" validate:"required"`
	Type    models.NotificationType `json:"type" validate:"required,oneof=INFO WARNING URGENT"`
	Active  *bool                   `json:"active"`
}

// UpdateNotificationRequest patches a notification.
type UpdateNotificationRequest struct {
	Title   *string                  `json:"title" validate:"omitempty,max=255"`
	Message *string                  `json:"message"`
	Type    *models.NotificationType `json:"type" validate:"omitempty,oneof=INFO WARNING URGENT"`
	Active  *bool                    `json:"active"`
}

// BroadcastRequest narrows the audience of an email blast.
type BroadcastRequest struct {
	Role      *models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN TUTOR STUDENT"`
	YearLevel *int             `json:"year_level" validate:"omitempty,min=1,max=8"`
	Program   string           `json:"program" validate:"omitempty,max=128"`
}

// BroadcastResult reports how many deliveries were queued.
type BroadcastResult struct {
	NotificationID string `json:"notification_id"`
	Recipients     int    `json:"recipients"`
	Queued         int    `json:"queued"`
}

// BroadcastPayload is the unit of work handed to the email queue.
type BroadcastPayload struct {
	NotificationID string
	Title          string
	Message        string
	Type           models.NotificationType
	Recipient      models.Recipient
}

// NotificationService manages announcements and their email fan-out.
// Delivery is best effort: a failed send never fails the API call.
type NotificationService struct {
	repo       notificationRepo
	recipients recipientSelector
	queue      broadcastQueue
	mailer     mailer.Mailer
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
}

// WithMetrics attaches broadcast instrumentation.
func (s *NotificationService) WithMetrics(m *MetricsService) *NotificationService {
	s.metrics = m
	return s
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(repo notificationRepo, recipients recipientSelector, queue broadcastQueue, m mailer.Mailer, v *validator.Validate, logger *zap.Logger) *NotificationService {
	if v == nil {
		v = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = mailer.NopMailer{}
	}
	return &NotificationService{repo: repo, recipients: recipients, queue: queue, mailer: m, validator: v, logger: logger}
}

// List returns notifications with pagination metadata.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return notifications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a notification by ID.
func (s *NotificationService) Get(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	return notification, nil
}

// Create authors a new notification.
func (s *NotificationService) Create(ctx context.Context, createdBy string, req CreateNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	notification := &models.Notification{
		Title:     req.Title,
		Message:   req.Message,
		Type:      req.Type,
		Active:    active,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	s.logger.Info("notification created", zap.String("notification_id", notification.ID), zap.String("type", string(notification.Type)))
	return notification, nil
}

// Update patches a notification.
func (s *NotificationService) Update(ctx context.Context, id string, req UpdateNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		notification.Title = *req.Title
	}
	if req.Message != nil {
		notification.Message = *req.Message
	}
	if req.Type != nil {
		notification.Type = *req.Type
	}
	if req.Active != nil {
		notification.Active = *req.Active
	}
	if err := s.repo.Update(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	return notification, nil
}

// Delete removes a notification.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	return nil
}

// Broadcast queues an email delivery per matching recipient. Full
// buffers drop the remaining deliveries rather than block the request.
func (s *NotificationService) Broadcast(ctx context.Context, id string, req BroadcastRequest) (*BroadcastResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !notification.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot broadcast an inactive notification")
	}

	recipients, err := s.recipients.SelectRecipients(ctx, models.BroadcastFilter{
		Role:      req.Role,
		YearLevel: req.YearLevel,
		Program:   req.Program,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to select recipients")
	}

	queued := 0
	for _, recipient := range recipients {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: "notification.email",
			Payload: BroadcastPayload{
				NotificationID: notification.ID,
				Title:          notification.Title,
				Message:        notification.Message,
				Type:           notification.Type,
				Recipient:      recipient,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("broadcast queue full, dropping remaining deliveries",
				zap.String("notification_id", notification.ID),
				zap.Int("queued", queued),
				zap.Int("recipients", len(recipients)))
			break
		}
		queued++
	}

	s.metrics.RecordBroadcastQueued(queued)
	s.logger.Info("notification broadcast queued",
		zap.String("notification_id", notification.ID),
		zap.Int("recipients", len(recipients)),
		zap.Int("queued", queued))

	return &BroadcastResult{NotificationID: notification.ID, Recipients: len(recipients), Queued: queued}, nil
}

// DeliverBroadcast is the queue handler sending one broadcast email.
func (s *NotificationService) DeliverBroadcast(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(BroadcastPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	msg := mailer.Message{
		ToName:    payload.Recipient.FullName,
		ToAddress: payload.Recipient.Email,
		Subject:   fmt.Sprintf("[%s] %s", payload.Type, payload.Title),
		TextBody:  payload.Message,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.RecordBroadcastFailure()
		return fmt.Errorf("deliver notification %s to %s: %w", payload.NotificationID, payload.Recipient.Email, err)
	}
	return nil
}
