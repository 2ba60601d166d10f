package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Uses Application Default Credentials (Cloud Run service account or GOOGLE_APPLICATION_CREDENTIALS).
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}
	pubsubClient = c
	return pubsubClient, nil
}

// PublishChangeFeed mirrors a committed row change onto the external
// integration topic. Disabled unless CHANGE_FEED_TOPIC is set; failures are
// returned for logging only and never abort the originating write.
func PublishChangeFeed(ctx context.Context, payload []byte) error {
	topicID := strings.TrimSpace(os.Getenv("CHANGE_FEED_TOPIC"))
	if topicID == "" {
		return nil
	}
	client, err := getPubSubClient(ctx)
	if err != nil {
		return err
	}
	topic := client.Topic(topicID)
	result := topic.Publish(ctx, &pubsub.Message{Data: payload})
	_, err = result.Get(ctx)
	return err
}
