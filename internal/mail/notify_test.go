package mail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/smartfarm-api/internal/queue"
)

type outbox struct {
	to, subject, body []string
	err               error
}

func (o *outbox) Send(_ context.Context, to, subject, body string) error {
	o.to = append(o.to, to)
	o.subject = append(o.subject, subject)
	o.body = append(o.body, body)
	return o.err
}

func TestNotifierWelcome(t *testing.T) {
	box := &outbox{}
	n := &Notifier{Sender: box}
	b, _ := json.Marshal(queue.UserRegistered{PublicID: "SM-00001", Email: "alice@example.com", Username: "alice"})

	require.NoError(t, n.Handle(context.Background(), queue.KeyUserRegistered, b))
	require.Len(t, box.to, 1)
	assert.Equal(t, "alice@example.com", box.to[0])
	assert.Contains(t, box.body[0], "SM-00001")
}

func TestNotifierLinked(t *testing.T) {
	box := &outbox{}
	n := &Notifier{Sender: box}
	b, _ := json.Marshal(queue.UserLinked{PublicID: "SM-00002", Email: "bob@example.com", Username: "bob", Provider: "github"})

	require.NoError(t, n.Handle(context.Background(), queue.KeyUserLinked, b))
	require.Len(t, box.body, 1)
	assert.Contains(t, box.body[0], "github")
}

func TestNotifierIgnoresOtherKeysAndGarbage(t *testing.T) {
	box := &outbox{}
	n := &Notifier{Sender: box}
	assert.NoError(t, n.Handle(context.Background(), queue.KeyUserLoggedIn, []byte(`{}`)))
	assert.NoError(t, n.Handle(context.Background(), queue.KeyUserRegistered, []byte(`not json`)))
	assert.Empty(t, box.to)
}

func TestNotifierSendErrorRequeues(t *testing.T) {
	n := &Notifier{Sender: &outbox{err: errors.New("smtp down")}}
	b, _ := json.Marshal(queue.UserRegistered{Email: "alice@example.com"})
	assert.Error(t, n.Handle(context.Background(), queue.KeyUserRegistered, b))
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, LogSender{}.Send(context.Background(), "a@b.c", "s", "b"))
}
