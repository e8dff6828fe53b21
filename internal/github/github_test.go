package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"relay/internal/config"
	"relay/internal/transport"
	"relay/internal/webhook"
)

func TestSearchRequest(t *testing.T) {
	var gotAuth, gotQuery, gotPerPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/issues" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("q")
		gotPerPage = r.URL.Query().Get("per_page")
		w.Write([]byte(`{"total_count":2,"items":[
			{"number":7,"title":"Crash on start","state":"open","html_url":"https://github.com/o/r/issues/7"},
			{"number":8,"title":"Fix crash","state":"closed","html_url":"https://github.com/o/r/pull/8","pull_request":{}}
		]}`))
	}))
	defer srv.Close()

	s := Search{Query: "crash repo:o/r"}
	_, err := s.Request(config.NewMap(nil))
	require.Error(t, err)

	req, err := s.Request(config.NewMap(map[string]string{KeyToken: "ghp_x", KeyAPIHost: srv.URL}))
	require.NoError(t, err)

	res, err := DecodeSearch(s, transport.New().Send(context.Background(), req))
	require.NoError(t, err)

	require.Equal(t, "Bearer ghp_x", gotAuth)
	require.Equal(t, "crash repo:o/r", gotQuery)
	require.Equal(t, "10", gotPerPage)
	require.Equal(t, 2, res.TotalCount)
	require.Len(t, res.Items, 2)
	require.False(t, res.Items[0].IsPullRequest())
	require.True(t, res.Items[1].IsPullRequest())
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)
	secret := []byte("hush")

	require.NoError(t, VerifySignature(secret, body, Sign(secret, body)))
	require.Error(t, VerifySignature([]byte("other"), body, Sign(secret, body)))
	require.Error(t, VerifySignature(secret, body, ""))
	require.Error(t, VerifySignature(secret, body, "sha256=zz"))
}

func TestPushDeliveryVerify(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)
	d := PushDelivery{Delivery: webhook.Delivery{
		Body:   body,
		Header: http.Header{SignatureHeader: {Sign([]byte("hush"), body)}},
	}}

	require.NoError(t, d.Verify(config.NewMap(map[string]string{KeyWebhookSecret: "hush"})))
	require.Error(t, d.Verify(config.NewMap(nil)))

	_, ok := d.CallbackURL()
	require.False(t, ok)
}

func TestDecodePush(t *testing.T) {
	ev, err := DecodePush([]byte(`{
		"ref": "refs/heads/feature/x",
		"compare": "https://github.com/o/r/compare/a...b",
		"repository": {"full_name": "o/r"},
		"pusher": {"name": "ada"},
		"commits": [{"id": "b1", "message": "Add thing\n\nLonger text", "author": {"name": "Ada"}}]
	}`))
	require.NoError(t, err)
	require.Equal(t, "feature/x", ev.Branch())
	require.Equal(t, "o/r", ev.Repository.FullName)
	require.Equal(t, "Add thing", ev.Commits[0].Short())

	tag := PushEvent{Ref: "refs/tags/v1.0.0"}
	require.Empty(t, tag.Branch())

	_, err = DecodePush([]byte(`{}`))
	require.Error(t, err)
	_, err = DecodePush([]byte(`nope`))
	require.Error(t, err)
}
