package notify

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/sirupsen/logrus"
)

// Notification kinds. A closed set: consumers switch over these values, so
// new kinds are added here, never invented at call sites.
const (
	KindReportShared     = "report:shared"
	KindReportUnshared   = "report:unshared"
	KindBookmarkShared   = "bookmark:shared"
	KindBookmarkUnshared = "bookmark:unshared"
	KindCommentCreated   = "comment:created"
	KindCommentReply     = "comment:reply"
	KindReactionAdded    = "reaction:added"
)

// Notification is the fan-out payload handed to the frontend notification
// service: one kind, the recipient list and the tenancy scope it applies to.
type Notification struct {
	Type          string                 `json:"type"`
	AppUserIds    []string               `json:"appUserIds"`
	CustomerId    string                 `json:"customerId"`
	TenantId      string                 `json:"tenantId"`
	AppId         string                 `json:"appId"`
	Data          map[string]interface{} `json:"data,omitempty"`
	CorrelationId string                 `json:"correlationId,omitempty"`
}

// Dispatcher delivers one notification. Implementations are best-effort;
// callers treat delivery as fire-and-forget.
type Dispatcher interface {
	Dispatch(ctx context.Context, notification *Notification) error
}

// PubSubDispatcher publishes notifications to a Google Pub/Sub topic named by
// NOTIFY_TOPIC_ID.
type PubSubDispatcher struct {
	Logger *logrus.Logger
}

func NewPubSubDispatcher(logger *logrus.Logger) *PubSubDispatcher {
	return &PubSubDispatcher{Logger: logger}
}

func (d *PubSubDispatcher) Dispatch(ctx context.Context, notification *Notification) error {
	topicName := os.Getenv("NOTIFY_TOPIC_ID")
	if topicName == "" {
		return errors.New("NOTIFY_TOPIC_ID is required")
	}

	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	result := client.Topic(topicName).Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":          notification.Type,
			"correlationId": notification.CorrelationId,
		},
	})
	_, err = result.Get(ctx)
	return err
}

// FireAndForget dispatches with a bounded timeout and logs failures instead
// of returning them. Notification delivery never fails the triggering
// mutation; recipients with no live session simply miss the event.
func FireAndForget(dispatcher Dispatcher, logger *logrus.Logger, notification *Notification) {
	if dispatcher == nil || notification == nil || len(notification.AppUserIds) == 0 {
		return
	}
	if config.NotificationsDisabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := dispatcher.Dispatch(ctx, notification); err != nil {
		config.LogError(logger, "notify", "FireAndForget", notification.Type, notification, err)
	}
}
