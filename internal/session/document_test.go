package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const themePage = `<html><body>
<div class="theme_box">
	<h3 class="h3_theme">경산</h3>
	<ul class="reserve_Time">
		<li><a href="/res"><span class="time">12:00</span><span class="possible">가능</span></a></li>
	</ul>
</div>
</body></html>`

func newDocumentSession(t *testing.T, rps float64) Session {
	t.Helper()
	sess, err := NewDocumentDialer(zap.NewNop()).Acquire(context.Background(), Profile{
		Site:          "goldenkey",
		Family:        "document",
		UserAgent:     "test-agent",
		WaitTimeout:   5 * time.Second,
		RatePerSecond: rps,
	})
	require.NoError(t, err)
	return sess
}

func TestDocumentSessionFetchAndQuery(t *testing.T) {
	t.Parallel()

	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(themePage))
	}))
	defer srv.Close()

	sess := newDocumentSession(t, 0)
	ctx := context.Background()

	require.NoError(t, sess.Navigate(ctx, srv.URL))
	require.Equal(t, "test-agent", gotAgent)

	require.NoError(t, sess.WaitVisible(ctx, "div.theme_box", 0))
	require.ErrorIs(t, sess.WaitVisible(ctx, "#not-there", 0), ErrElementNotFound)

	boxes, err := sess.QueryAll(ctx, "div.theme_box")
	require.NoError(t, err)
	require.Len(t, boxes, 1)

	title, ok := boxes[0].First("h3.h3_theme")
	require.True(t, ok)
	require.Equal(t, "경산", title.Text)

	html, err := sess.Snapshot(ctx)
	require.NoError(t, err)
	require.Contains(t, html, "theme_box")

	require.NoError(t, sess.Close(ctx))
}

func TestDocumentSessionErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	sess := newDocumentSession(t, 0)
	err := sess.Navigate(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrUnexpectedPageState)

	// Nothing was loaded, so queries report the missing document.
	_, err = sess.QueryAll(context.Background(), "div")
	require.ErrorIs(t, err, ErrUnexpectedPageState)
}

func TestDocumentSessionScriptsUnsupported(t *testing.T) {
	t.Parallel()

	sess := newDocumentSession(t, 0)
	require.ErrorIs(t, sess.Exec(context.Background(), "fun_search();"), ErrScriptUnsupported)
}

func TestDocumentSessionRespectsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Pacing makes Navigate block on the limiter first, where cancellation
	// is observed before any request goes out.
	sess := newDocumentSession(t, 0.001)
	require.Error(t, sess.Navigate(ctx, "http://127.0.0.1:0/"))
}
