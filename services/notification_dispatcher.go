package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyquestAPI/internal/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// DeliveryStore is what the dispatcher needs from notification storage.
type DeliveryStore interface {
	DeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error)
	MarkSent(ctx context.Context, notificationID uuid.UUID) error
	MarkFailed(ctx context.Context, notificationID uuid.UUID, reason error) error
}

var _ DeliveryStore = (*NotificationService)(nil)

const (
	dispatchWorkers   = 5
	dispatchQueueSize = 100
)

// NotificationDispatcher delivers stored notifications on a fixed worker
// pool.
type NotificationDispatcher struct {
	store          DeliveryStore
	pushProvider   PushNotificationProvider
	logger         *zap.Logger
	jobQueue       chan *notification.Notification
	stopChan       chan struct{}
	mu             sync.RWMutex // guards stopped; held while enqueueing
	stopped        bool
	wg             sync.WaitGroup
	enqueueTimeout time.Duration
	jobTimeout     time.Duration
}

func NewNotificationDispatcher(store DeliveryStore, logger *zap.Logger) *NotificationDispatcher {
	d := &NotificationDispatcher{
		store:          store,
		logger:         logger.Named("NotificationDispatcher"),
		jobQueue:       make(chan *notification.Notification, dispatchQueueSize),
		stopChan:       make(chan struct{}),
		enqueueTimeout: 5 * time.Second,
		jobTimeout:     10 * time.Second,
	}
	d.startWorkers(dispatchWorkers)
	return d
}

// SetPushProvider injects the push backend from main.go. Call before the
// first dispatch.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers(n int) {
	for i := 0; i < n; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.jobQueue:
			d.processJob(n)
		case <-d.stopChan:
			// drain what is already queued
			for {
				select {
				case n := <-d.jobQueue:
					d.processJob(n)
				default:
					return
				}
			}
		}
	}
}

func (d *NotificationDispatcher) processJob(n *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
	defer cancel()

	log := d.logger.With(zap.String("notificationID", n.ID.String()), zap.String("userID", n.UserID.String()))

	if d.pushProvider != nil {
		tokens, err := d.store.DeviceTokens(ctx, n.UserID)
		if err != nil {
			log.Error("Failed to load device tokens", zap.Error(err))
			d.markFailed(ctx, n.ID, err)
			return
		}
		if len(tokens) > 0 {
			if err := d.pushProvider.SendPush(ctx, tokens, n.Title, n.Body, n.Data); err != nil {
				log.Warn("Push failed", zap.Error(err))
				d.markFailed(ctx, n.ID, err)
				return
			}
		}
	}

	if err := d.store.MarkSent(ctx, n.ID); err != nil {
		log.Error("Failed to mark notification as sent", zap.Error(err))
	}
}

func (d *NotificationDispatcher) markFailed(ctx context.Context, id uuid.UUID, reason error) {
	if err := d.store.MarkFailed(ctx, id, reason); err != nil {
		d.logger.Error("Failed to mark notification as failed", zap.String("notificationID", id.String()), zap.Error(err))
	}
}

// DispatchNotification queues n. It gives up after enqueueTimeout when the
// queue is full, and drops n once the dispatcher is stopped.
func (d *NotificationDispatcher) DispatchNotification(n *notification.Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.logger.Warn("Dispatcher stopped, dropping notification", zap.String("notificationID", n.ID.String()))
		return false
	}

	timer := time.NewTimer(d.enqueueTimeout)
	defer timer.Stop()

	select {
	case d.jobQueue <- n:
		return true
	case <-timer.C:
		d.logger.Warn("Notification queue full", zap.String("notificationID", n.ID.String()))
		return false
	}
}

// Stop waits for the workers to finish the queued jobs.
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.logger.Info("Stopping notification dispatcher")
		d.stopped = true
		close(d.stopChan)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
