package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"caravan_server/models"
)

func newTestNotificationService() (*NotificationService, *fakeDynamo, *SubscriptionHub) {
	fake := newFakeDynamo()
	hub := NewSubscriptionHub()
	return &NotificationService{Dynamo: fake, Publisher: &ChangePublisher{Hub: hub}}, fake, hub
}

func sampleNotification(recipientID, notificationID, createdAt string) models.Notification {
	return models.Notification{
		RecipientID:    recipientID,
		NotificationID: notificationID,
		GroupID:        "g1",
		Title:          "Lena: gather",
		Message:        "Gather up! Let's meet",
		Type:           models.NotificationTypeCommand,
		CreatedAt:      createdAt,
	}
}

func TestScheduleStoresAndPushes(t *testing.T) {
	svc, _, hub := newTestNotificationService()
	ctx := context.Background()

	sub := hub.Subscribe(UserTopic("finn"))
	defer sub.Close()

	if err := svc.Schedule(ctx, sampleNotification("finn", "n1", "")); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	select {
	case update := <-sub.Updates():
		if update.Event != "notification" {
			t.Errorf("expected notification event, got %q", update.Event)
		}
		n, ok := update.Payload.(models.Notification)
		if !ok {
			t.Fatalf("payload should be a Notification, got %T", update.Payload)
		}
		if n.CreatedAt == "" {
			t.Error("Schedule should stamp createdAt when empty")
		}
	case <-time.After(time.Second):
		t.Fatal("no push delivered")
	}

	feed, err := svc.GetForRecipient(ctx, "finn")
	if err != nil {
		t.Fatalf("GetForRecipient failed: %v", err)
	}
	if len(feed) != 1 || feed[0].NotificationID != "n1" {
		t.Fatalf("unexpected feed %+v", feed)
	}
}

func TestScheduleRequiresIdentity(t *testing.T) {
	svc, _, _ := newTestNotificationService()

	err := svc.Schedule(context.Background(), sampleNotification("", "n1", ""))
	var validation *models.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if err := svc.Schedule(context.Background(), sampleNotification("finn", "", "")); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestScheduleIsIdempotent(t *testing.T) {
	svc, fake, _ := newTestNotificationService()
	ctx := context.Background()

	if err := svc.Schedule(ctx, sampleNotification("finn", "n1", "")); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if err := svc.MarkRead(ctx, "finn", "n1"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	// Rescheduling the same id must neither duplicate nor reset it.
	if err := svc.Schedule(ctx, sampleNotification("finn", "n1", "")); err != nil {
		t.Fatalf("repeat Schedule failed: %v", err)
	}
	if got := fake.countItems(models.NotificationsTable); got != 1 {
		t.Fatalf("expected 1 stored notification, got %d", got)
	}
	feed, _ := svc.GetForRecipient(ctx, "finn")
	if !feed[0].IsRead {
		t.Error("repeat Schedule reset the read flag")
	}
}

func TestFeedIsNewestFirst(t *testing.T) {
	svc, _, _ := newTestNotificationService()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		n := sampleNotification("finn", fmt.Sprintf("n%d", i), base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339Nano))
		if err := svc.Schedule(ctx, n); err != nil {
			t.Fatalf("Schedule failed: %v", err)
		}
	}

	feed, err := svc.GetForRecipient(ctx, "finn")
	if err != nil {
		t.Fatalf("GetForRecipient failed: %v", err)
	}
	if len(feed) != 3 || feed[0].NotificationID != "n2" || feed[2].NotificationID != "n0" {
		t.Fatalf("feed should be newest first, got %+v", feed)
	}
}

func TestCancelRemovesNotification(t *testing.T) {
	svc, _, _ := newTestNotificationService()
	ctx := context.Background()

	if err := svc.Schedule(ctx, sampleNotification("finn", "n1", "")); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if err := svc.Cancel(ctx, "finn", "n1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	feed, _ := svc.GetForRecipient(ctx, "finn")
	if len(feed) != 0 {
		t.Fatalf("cancelled notification still in feed: %+v", feed)
	}
}

func TestMarkReadMissingNotification(t *testing.T) {
	svc, _, _ := newTestNotificationService()

	err := svc.MarkRead(context.Background(), "finn", "nope")
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeterministicNotificationIDs(t *testing.T) {
	a := CommandNotificationID("cmd-1", "finn")
	b := CommandNotificationID("cmd-1", "finn")
	if a != b {
		t.Error("same command and recipient must derive the same id")
	}
	if a == CommandNotificationID("cmd-1", "mia") {
		t.Error("different recipients must derive different ids")
	}
	if a == CommandNotificationID("cmd-2", "finn") {
		t.Error("different commands must derive different ids")
	}
	if FindRequestNotificationID("req-1", "findRequest") == FindRequestNotificationID("req-1", "findResult") {
		t.Error("different transitions must derive different ids")
	}
}
