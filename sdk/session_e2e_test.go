package sdk_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkstream/collab/internal/domain"
	"github.com/inkstream/collab/internal/infrastructure/auth"
	"github.com/inkstream/collab/internal/infrastructure/configs"
	"github.com/inkstream/collab/internal/infrastructure/persistence"
	"github.com/inkstream/collab/internal/infrastructure/ratelimiter"
	"github.com/inkstream/collab/internal/infrastructure/ws"
	"github.com/inkstream/collab/internal/presentation/api"
	"github.com/inkstream/collab/internal/presentation/handler/collab"
	"github.com/inkstream/collab/internal/presentation/handler/health"
	"github.com/inkstream/collab/sdk"
)

var testSecret = []byte("e2e-test-secret")

func signTestToken(t *testing.T, userID string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func startTestServer(t *testing.T) (*httptest.Server, domain.ChapterStore) {
	t.Helper()

	logger := zap.NewNop().Sugar()

	db, err := persistence.Open(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	require.NoError(t, persistence.Migrate(db))

	require.NoError(t, db.Create(&persistence.Novel{ID: "novel-1", AuthorID: "user-1"}).Error)
	require.NoError(t, db.Create(&persistence.Chapter{
		ID: "ch-1", NovelID: "novel-1", Title: "Chapter One", Content: "first draft", ChapterNumber: 1,
	}).Error)
	require.NoError(t, db.Create(&persistence.Novel{ID: "novel-2", AuthorID: "user-2"}).Error)
	require.NoError(t, db.Create(&persistence.Chapter{
		ID: "ch-2", NovelID: "novel-2", Title: "Rival Chapter", Content: "keep out", ChapterNumber: 1,
	}).Error)

	store := persistence.NewChapterStore(db)
	verifier := auth.NewTokenVerifier(testSecret, "")

	core := ws.NewCore(store, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go core.Run(ctx)

	cfg := configs.Config{
		Collab: configs.CollabConfig{SendBuffer: 64, MaxMessageSize: 32768},
	}

	app := api.NewApplication(
		cfg,
		collab.NewHandler(verifier, core, logger, cfg.Collab),
		health.NewHandler(),
		logger,
		ratelimiter.NewFixedWindowRateLimiter(1000, time.Minute),
	)

	srv := httptest.NewServer(app.Mount())
	t.Cleanup(srv.Close)

	return srv, store
}

func connect(t *testing.T, srv *httptest.Server, userID string) *sdk.Session {
	t.Helper()

	s := sdk.NewSession(srv.URL, signTestToken(t, userID))
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() { _ = s.Disconnect() })
	return s
}

func capture(s *sdk.Session, event string) chan json.RawMessage {
	ch := make(chan json.RawMessage, 16)
	s.On(event, func(data json.RawMessage) {
		ch <- data
	})
	return ch
}

func waitFor(t *testing.T, ch chan json.RawMessage, what string) json.RawMessage {
	t.Helper()

	select {
	case data := <-ch:
		return data
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return nil
	}
}

func assertSilent(t *testing.T, ch chan json.RawMessage, what string) {
	t.Helper()

	select {
	case data := <-ch:
		t.Fatalf("unexpected %s: %s", what, data)
	default:
	}
}

func TestHandshakeRejectsBadCredentials(t *testing.T) {
	srv, _ := startTestServer(t)

	s := sdk.NewSession(srv.URL, "garbage")
	assert.Error(t, s.Connect(context.Background()))

	missing := sdk.NewSession(srv.URL, "")
	assert.Error(t, missing.Connect(context.Background()))
}

func TestTwoClientScenario(t *testing.T) {
	srv, _ := startTestServer(t)

	s1 := connect(t, srv, "user-1")
	s2 := connect(t, srv, "user-2")

	s1Connected := capture(s1, sdk.EventUserConnected)
	s1Updated := capture(s1, sdk.EventTextUpdated)
	s2Updated := capture(s2, sdk.EventTextUpdated)
	s2Init := capture(s2, sdk.EventInitContent)

	require.NoError(t, s1.JoinRoom("r1"))
	require.NoError(t, s2.JoinRoom("r1"))

	var presence sdk.UserConnectedData
	require.NoError(t, json.Unmarshal(waitFor(t, s1Connected, "user-connected"), &presence))
	assert.Equal(t, 2, presence.UserCount)
	assertSilent(t, s2Init, "init-content for an empty room")

	// s1 edits; only s2 sees it.
	require.NoError(t, s1.SendUpdate("Hello", 5))

	var upd sdk.TextUpdatedData
	require.NoError(t, json.Unmarshal(waitFor(t, s2Updated, "text-updated on s2"), &upd))
	assert.Equal(t, "Hello", upd.Text)
	assert.Equal(t, 5, upd.CursorPosition)
	assert.NotEmpty(t, upd.UserID)
	assertSilent(t, s1Updated, "echo of s1's own update")

	// s2 overwrites; last write wins.
	require.NoError(t, s2.SendUpdate("Hello world", 11))
	require.NoError(t, json.Unmarshal(waitFor(t, s1Updated, "text-updated on s1"), &upd))
	assert.Equal(t, "Hello world", upd.Text)

	// A late joiner gets exactly the latest snapshot.
	s3 := connect(t, srv, "user-3")
	s3Init := capture(s3, sdk.EventInitContent)
	require.NoError(t, s3.JoinRoom("r1"))

	var snapshot string
	require.NoError(t, json.Unmarshal(waitFor(t, s3Init, "init-content on s3"), &snapshot))
	assert.Equal(t, "Hello world", snapshot)
}

func TestAutosaveRoundTrip(t *testing.T) {
	srv, store := startTestServer(t)

	s1 := connect(t, srv, "user-1")
	saveOK := capture(s1, sdk.EventSaveSuccess)
	saveErr := capture(s1, sdk.EventSaveError)

	// Saving someone else's chapter fails and mutates nothing.
	require.NoError(t, s1.SaveChapter("ch-2", "", "hijacked", 0))

	var failure sdk.SaveErrorData
	require.NoError(t, json.Unmarshal(waitFor(t, saveErr, "save-error"), &failure))
	assert.Equal(t, "ch-2", failure.ChapterID)

	rival, err := store.FindByID(context.Background(), "ch-2")
	require.NoError(t, err)
	assert.Equal(t, "keep out", rival.Content)

	// Saving an owned chapter overwrites only the provided fields.
	require.NoError(t, s1.SaveChapter("ch-1", "", "autosaved draft", 0))

	var success sdk.SaveSuccessData
	require.NoError(t, json.Unmarshal(waitFor(t, saveOK, "save-success"), &success))
	assert.Equal(t, "ch-1", success.ChapterID)

	saved, err := store.FindByID(context.Background(), "ch-1")
	require.NoError(t, err)
	assert.Equal(t, "autosaved draft", saved.Content)
	assert.Equal(t, "Chapter One", saved.Title)
	assert.Equal(t, 1, saved.ChapterNumber)
	assertSilent(t, saveErr, "save-error after a successful save")
}

func TestLeaveAndDisconnectCleanup(t *testing.T) {
	srv, _ := startTestServer(t)

	s1 := connect(t, srv, "user-1")
	s2 := connect(t, srv, "user-2")

	s1Disconnected := capture(s1, sdk.EventUserDisconnected)
	s1Connected := capture(s1, sdk.EventUserConnected)

	require.NoError(t, s1.JoinRoom("r1"))
	require.NoError(t, s2.JoinRoom("r1"))
	waitFor(t, s1Connected, "user-connected")

	// Explicit leave notifies the remaining member with the new count.
	require.NoError(t, s2.LeaveRoom())

	var presence sdk.UserConnectedData
	require.NoError(t, json.Unmarshal(waitFor(t, s1Disconnected, "user-disconnected"), &presence))
	assert.Equal(t, 1, presence.UserCount)

	// Dropping the connection triggers the same cleanup server-side.
	require.NoError(t, s2.JoinRoom("r1"))
	waitFor(t, s1Connected, "user-connected after rejoin")

	require.NoError(t, s2.Disconnect())
	require.NoError(t, json.Unmarshal(waitFor(t, s1Disconnected, "user-disconnected after drop"), &presence))
	assert.Equal(t, 1, presence.UserCount)
}
