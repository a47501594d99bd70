package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/mesflow-backend/pkg/config"
)

func TestSubscriptionNamesSkipsBlank(t *testing.T) {
	assert.Empty(t, subscriptionNames(config.PubSubConfig{TasksSubscription: "  "}))
	assert.Equal(t, []string{"tasks-sub"}, subscriptionNames(config.PubSubConfig{TasksSubscription: " tasks-sub "}))
}

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "proj"}
	tests := []struct {
		kind, name, want string
	}{
		{kindSubscription, "tasks-sub", "projects/proj/subscriptions/tasks-sub"},
		{kindSubscription, "projects/other/subscriptions/x", "projects/other/subscriptions/x"},
		{kindTopic, "mesflow-tasks", "projects/proj/topics/mesflow-tasks"},
		{kindTopic, " projects/other/topics/y ", "projects/other/topics/y"},
		{kindTopic, "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.resourceName(tt.kind, tt.name), "%s %q", tt.kind, tt.name)
	}
	assert.Empty(t, (&Client{}).resourceName(kindTopic, "t"), "no project means no name")
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "  "}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("t"))
	assert.Nil(t, c.Subscription("s"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(t.Context()))
}
