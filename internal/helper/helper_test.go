package helper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cv.pdf":
			w.Write([]byte("%PDF-1.7"))
		case "/big.pdf":
			w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	data, err := DownloadFile(context.Background(), srv.Client(), srv.URL+"/cv.pdf", 1024)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	_, err = DownloadFile(context.Background(), nil, srv.URL+"/big.pdf", 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = DownloadFile(context.Background(), srv.Client(), srv.URL+"/missing", 1024)
	assert.ErrorContains(t, err, "404")
}

type recorder struct {
	added    []string
	removed  []string
	messages []string
}

func (r *recorder) MessageReactionAdd(_, _, emoji string, _ ...discordgo.RequestOption) error {
	r.added = append(r.added, emoji)
	return nil
}

func (r *recorder) MessageReactionRemove(_, _, emoji, _ string, _ ...discordgo.RequestOption) error {
	r.removed = append(r.removed, emoji)
	return nil
}

func (r *recorder) ChannelMessageSend(_, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.messages = append(r.messages, content)
	return &discordgo.Message{Content: content}, nil
}

func TestHandleError(t *testing.T) {
	rec := &recorder{}
	m := &discordgo.MessageCreate{Message: &discordgo.Message{ID: "m1", ChannelID: "c1"}}

	HandleError(rec, m, "bot", errors.New("parser down"))

	assert.Equal(t, []string{"⏳"}, rec.removed)
	assert.Equal(t, []string{"❌"}, rec.added)
	assert.Equal(t, []string{"Error: parser down"}, rec.messages)
}
