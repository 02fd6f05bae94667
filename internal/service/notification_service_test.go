package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/preenroll-api/internal/models"
	appErrors "github.com/campushq/preenroll-api/pkg/errors"
	"github.com/campushq/preenroll-api/pkg/jobs"
	"github.com/campushq/preenroll-api/pkg/mailer"
)

type mockNotificationRepo struct {
	notifications map[string]models.Notification
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var list []models.Notification
	for _, n := range m.notifications {
		list = append(list, n)
	}
	return list, len(list), nil
}

func (m *mockNotificationRepo) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return &n, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if m.notifications == nil {
		m.notifications = make(map[string]models.Notification)
	}
	if notification.ID == "" {
		notification.ID = "new-notification"
	}
	m.notifications[notification.ID] = *notification
	return nil
}

func (m *mockNotificationRepo) Update(ctx context.Context, notification *models.Notification) error {
	m.notifications[notification.ID] = *notification
	return nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id string) error {
	delete(m.notifications, id)
	return nil
}

type mockRecipientSelector struct {
	recipients []models.Recipient
	lastFilter models.BroadcastFilter
}

func (m *mockRecipientSelector) SelectRecipients(ctx context.Context, filter models.BroadcastFilter) ([]models.Recipient, error) {
	m.lastFilter = filter
	return m.recipients, nil
}

type mockQueue struct {
	jobs    []jobs.Job
	failAt  int
	enqErr  error
	counter int
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	m.counter++
	if m.enqErr != nil && m.counter > m.failAt {
		return m.enqErr
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type mockMailer struct {
	sent []mailer.Message
	err  error
}

func (m *mockMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func activeNotification() map[string]models.Notification {
	return map[string]models.Notification{
		"notif-1": {ID: "notif-1", Title: "Enrollment closes Friday", Message: "Submit before 5pm.", Type: models.NotificationTypeUrgent, Active: true},
	}
}

func TestBroadcastQueuesPerRecipient(t *testing.T) {
	repo := &mockNotificationRepo{notifications: activeNotification()}
	selector := &mockRecipientSelector{recipients: []models.Recipient{
		{UserID: "u1", Email: "a@uni.edu", FullName: "A"},
		{UserID: "u2", Email: "b@uni.edu", FullName: "B"},
	}}
	queue := &mockQueue{}
	svc := NewNotificationService(repo, selector, queue, nil, nil, nil)

	role := models.RoleStudent
	result, err := svc.Broadcast(context.Background(), "notif-1", BroadcastRequest{Role: &role})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Recipients)
	assert.Equal(t, 2, result.Queued)
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, "notification.email", queue.jobs[0].Type)
	require.NotNil(t, selector.lastFilter.Role)
	assert.Equal(t, models.RoleStudent, *selector.lastFilter.Role)
}

func TestBroadcastFullQueueDropsRemainder(t *testing.T) {
	repo := &mockNotificationRepo{notifications: activeNotification()}
	selector := &mockRecipientSelector{recipients: []models.Recipient{
		{UserID: "u1", Email: "a@uni.edu"},
		{UserID: "u2", Email: "b@uni.edu"},
		{UserID: "u3", Email: "c@uni.edu"},
	}}
	queue := &mockQueue{failAt: 1, enqErr: errors.New("queue full")}
	svc := NewNotificationService(repo, selector, queue, nil, nil, nil)

	result, err := svc.Broadcast(context.Background(), "notif-1", BroadcastRequest{})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Recipients)
	assert.Equal(t, 1, result.Queued)
}

func TestBroadcastInactiveNotification(t *testing.T) {
	repo := &mockNotificationRepo{notifications: map[string]models.Notification{
		"notif-1": {ID: "notif-1", Title: "Old news", Active: false},
	}}
	svc := NewNotificationService(repo, &mockRecipientSelector{}, &mockQueue{}, nil, nil, nil)

	_, err := svc.Broadcast(context.Background(), "notif-1", BroadcastRequest{})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBroadcastUnknownNotification(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{}, &mockRecipientSelector{}, &mockQueue{}, nil, nil, nil)

	_, err := svc.Broadcast(context.Background(), "missing", BroadcastRequest{})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeliverBroadcastSendsEmail(t *testing.T) {
	mail := &mockMailer{}
	svc := NewNotificationService(&mockNotificationRepo{}, &mockRecipientSelector{}, &mockQueue{}, mail, nil, nil)

	err := svc.DeliverBroadcast(context.Background(), jobs.Job{
		Type: "notification.email",
		Payload: BroadcastPayload{
			NotificationID: "notif-1",
			Title:          "Enrollment closes Friday",
			Message:        "Submit before 5pm.",
			Type:           models.NotificationTypeUrgent,
			Recipient:      models.Recipient{Email: "a@uni.edu", FullName: "A"},
		},
	})

	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "a@uni.edu", mail.sent[0].ToAddress)
	assert.Equal(t, "[URGENT] Enrollment closes Friday", mail.sent[0].Subject)
}

func TestDeliverBroadcastPropagatesFailure(t *testing.T) {
	mail := &mockMailer{err: errors.New("smtp down")}
	svc := NewNotificationService(&mockNotificationRepo{}, &mockRecipientSelector{}, &mockQueue{}, mail, nil, nil)

	err := svc.DeliverBroadcast(context.Background(), jobs.Job{
		Payload: BroadcastPayload{NotificationID: "notif-1", Recipient: models.Recipient{Email: "a@uni.edu"}},
	})

	assert.Error(t, err)
}

func TestDeliverBroadcastRejectsBadPayload(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{}, &mockRecipientSelector{}, &mockQueue{}, nil, nil, nil)

	err := svc.DeliverBroadcast(context.Background(), jobs.Job{Payload: "garbage"})

	assert.Error(t, err)
}

func TestNotificationCreateSetsAuthor(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, &mockRecipientSelector{}, &mockQueue{}, nil, nil, nil)

	notification, err := svc.Create(context.Background(), "admin-1", CreateNotificationRequest{
		Title:   "Welcome",
		Message: "Pre-enrollment is open.",
		Type:    models.NotificationTypeInfo,
	})

	require.NoError(t, err)
	assert.Equal(t, "admin-1", notification.CreatedBy)
	assert.True(t, notification.Active)
}
