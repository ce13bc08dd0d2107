package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fitSquadAPI/internal/logger"
	"fitSquadAPI/internal/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// DeliveryTracker records the outcome of each dispatch.
type DeliveryTracker interface {
	MarkSent(ctx context.Context, notificationID uuid.UUID) error
	MarkFailed(ctx context.Context, notificationID uuid.UUID, reason string) error
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationDispatcher delivers stored notifications on a fixed pool of
// workers: push through the push provider, then publish to the event stream.
type NotificationDispatcher struct {
	tracker      DeliveryTracker
	pushProvider PushNotificationProvider
	publisher    EventPublisher
	workers      int
	jobQueue     chan *DispatchJob
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	mu           sync.RWMutex
}

type DispatchJob struct {
	Notification *notification.Notification
	Preferences  *notification.NotificationPreferences
}

// readRetention is how long read notifications are kept.
const readRetention = 90 * 24 * time.Hour

func NewNotificationDispatcher(tracker DeliveryTracker, workers int) *NotificationDispatcher {
	if workers <= 0 {
		workers = 5
	}
	d := &NotificationDispatcher{
		tracker:  tracker,
		workers:  workers,
		jobQueue: make(chan *DispatchJob, 100),
		stopChan: make(chan struct{}),
	}

	d.startWorkers()

	d.wg.Add(1)
	go d.cleanupReadNotifications()

	return d
}

func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushProvider = provider
}

func (d *NotificationDispatcher) SetEventPublisher(publisher EventPublisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.publisher = publisher
}

func (d *NotificationDispatcher) channels() (PushNotificationProvider, EventPublisher) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pushProvider, d.publisher
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notif := job.Notification
	prefs := job.Preferences
	push, publisher := d.channels()

	if push != nil && prefs != nil && prefs.PushEnabled && len(prefs.DeviceTokens) > 0 {
		if err := push.SendPush(ctx, prefs.DeviceTokens, notif.Title, notif.Body, notif.Data); err != nil {
			logger.S().Warnf("Dispatcher: push failed for user %s: %v", notif.UserID, err)
			if err := d.tracker.MarkFailed(ctx, notif.ID, err.Error()); err != nil {
				logger.S().Errorf("Dispatcher: %v", err)
			}
			return
		}
	}

	if publisher != nil {
		event := &notification.Event{
			NotificationID: notif.ID,
			UserID:         notif.UserID,
			Type:           notif.Type,
			Title:          notif.Title,
			Message:        notif.Body,
			Data:           notif.Data,
		}
		if err := publisher.Publish(ctx, event); err != nil {
			logger.S().Warnf("Dispatcher: failed to publish event for notification %s: %v", notif.ID, err)
		}
	}

	if err := d.tracker.MarkSent(ctx, notif.ID); err != nil {
		logger.S().Errorf("Dispatcher: %v", err)
	}
}

// DispatchNotification queues notif for delivery. It gives up after five
// seconds when the queue stays full or the dispatcher is stopping.
func (d *NotificationDispatcher) DispatchNotification(notif *notification.Notification, prefs *notification.NotificationPreferences) {
	job := &DispatchJob{
		Notification: notif,
		Preferences:  prefs,
	}

	select {
	case d.jobQueue <- job:
		logger.S().Debugf("Dispatcher: notification %s queued", notif.ID)
	case <-d.stopChan:
		logger.S().Warnf("Dispatcher: stopped, dropping notification %s", notif.ID)
	case <-time.After(5 * time.Second):
		logger.S().Warnf("Dispatcher: failed to queue notification %s: queue full", notif.ID)
	}
}

func (d *NotificationDispatcher) cleanupReadNotifications() {
	defer d.wg.Done()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.performCleanup()
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) performCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := d.tracker.DeleteReadBefore(ctx, time.Now().Add(-readRetention))
	if err != nil {
		logger.S().Errorf("Dispatcher: cleanup failed: %v", err)
		return
	}
	if n > 0 {
		logger.S().Infof("Dispatcher: cleaned up %d old read notifications", n)
	}
}

// Stop signals every worker and waits for them to exit. Jobs still queued
// are dropped. It is safe to call more than once.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		logger.S().Info("Stopping notification dispatcher...")
		close(d.stopChan)
		d.wg.Wait()
		logger.S().Info("Notification dispatcher stopped")
	})
}
