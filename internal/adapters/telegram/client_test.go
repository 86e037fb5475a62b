package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/HamedShams/agile-delay/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	chats []int64
	texts []string
}

func (r *recorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ChatID int64  `json:"chat_id"`
			Text   string `json:"text"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		r.mu.Lock()
		r.paths = append(r.paths, req.URL.Path)
		r.chats = append(r.chats, body.ChatID)
		r.texts = append(r.texts, body.Text)
		r.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
}

func TestNotify_SendsToEveryChat(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(rec.handler(http.StatusOK))
	defer server.Close()

	c := NewClient(config.Config{TelegramToken: "tok", TelegramChatIDs: []int64{11, 22}}, zerolog.Nop()).WithAPI(server.URL)
	require.True(t, c.Enabled())
	require.NoError(t, c.Notify(context.Background(), "delay model: accuracy=1.000"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"/bottok/sendMessage", "/bottok/sendMessage"}, rec.paths)
	assert.Equal(t, []int64{11, 22}, rec.chats)
	assert.Equal(t, "delay model: accuracy=1.000", rec.texts[0])
}

func TestNotify_ReportsFailure(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(rec.handler(http.StatusBadRequest))
	defer server.Close()

	c := NewClient(config.Config{TelegramToken: "tok", TelegramChatIDs: []int64{11}}, zerolog.Nop()).WithAPI(server.URL)
	err := c.Notify(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewClient(config.Config{}, zerolog.Nop()).Enabled())
	assert.False(t, NewClient(config.Config{TelegramToken: "tok"}, zerolog.Nop()).Enabled())
	assert.True(t, NewClient(config.Config{TelegramToken: "tok", TelegramChatIDs: []int64{1}}, zerolog.Nop()).Enabled())
}

func TestSendMessagePlain_MissingChat(t *testing.T) {
	c := NewClient(config.Config{TelegramToken: "tok"}, zerolog.Nop())
	assert.Error(t, c.SendMessagePlain(context.Background(), 0, "x"))
}
