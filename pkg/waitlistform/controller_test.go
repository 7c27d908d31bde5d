package waitlistform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/akeren/cv99x-waitlist/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingServer struct {
	calls   atomic.Int32
	status  int
	mu      sync.Mutex
	payload map[string]string
}

func (r *recordingServer) lastPayload() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payload
}

func newRecordingServer(t *testing.T, status int) (*recordingServer, *httptest.Server) {
	t.Helper()

	rec := &recordingServer{status: status}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultEndpoint, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		rec.mu.Lock()
		rec.payload = payload
		rec.mu.Unlock()
		w.WriteHeader(rec.status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)

	return rec, server
}

func newTestController(t *testing.T, def Definition, baseURL string, nav Navigator) *Controller {
	t.Helper()

	return NewController(Config{
		Definition: def,
		BaseURL:    baseURL,
		Navigator:  nav,
		Logger:     log.NewDiscardLogger(),
	})
}

func fill(t *testing.T, c *Controller, values map[string]string) {
	t.Helper()
	for k, v := range values {
		require.NoError(t, c.UpdateField(k, v))
	}
}

func TestSubmit_SuccessPostsAllFieldsAndResets(t *testing.T) {
	rec, server := newRecordingServer(t, http.StatusOK)
	c := newTestController(t, DefaultDefinition(), server.URL, nil)

	fill(t, c, map[string]string{"name": "Jane Doe", "email": " jane@example.com ", "priceRange": "gt_2"})
	state := c.Submit(context.Background())

	payload := rec.lastPayload()
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.Equal(t, "Jane Doe", payload["name"])
	assert.Equal(t, " jane@example.com ", payload["email"])
	assert.Equal(t, "gt_2", payload["priceRange"])
	assert.Equal(t, "", payload["botField"])
	assert.Equal(t, "cv99x-waitlist", payload["source"])
	assert.Len(t, payload, len(DefaultDefinition().Keys())+1)

	assert.False(t, state.Submitting)
	assert.Equal(t, DefaultSuccessMessage, state.SuccessMessage)
	assert.Empty(t, state.ErrorMessage)
	assert.Equal(t, "", state.Fields.Get("name"))
}

func TestSubmit_LocalValidation(t *testing.T) {
	rec, server := newRecordingServer(t, http.StatusOK)

	cases := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{"missing name", map[string]string{"email": "a@b.com"}, MessageMissingRequired},
		{"whitespace email", map[string]string{"name": "A", "email": "   "}, MessageMissingRequired},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email"}, MessageInvalidEmail},
		{"missing tld", map[string]string{"name": "A", "email": "a@b"}, MessageInvalidEmail},
		{"vertical tab in local part", map[string]string{"name": "A", "email": "a\vb@c.de"}, MessageInvalidEmail},
		{"no-break space in local part", map[string]string{"name": "A", "email": "a\u00A0b@c.de"}, MessageInvalidEmail},
		{"em space in local part", map[string]string{"name": "A", "email": "a\u2003b@c.de"}, MessageInvalidEmail},
		{"line separator in local part", map[string]string{"name": "A", "email": "jo\u2028e@x.io"}, MessageInvalidEmail},
		{"byte order mark in domain", map[string]string{"name": "A", "email": "a@c\uFEFF.de"}, MessageInvalidEmail},
		{"name of only byte order marks", map[string]string{"name": "\uFEFF\u3000", "email": "a@b.com"}, MessageMissingRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController(t, DefaultDefinition(), server.URL, nil)
			fill(t, c, tc.values)

			state := c.Submit(context.Background())

			assert.Equal(t, tc.want, state.ErrorMessage)
			assert.Empty(t, state.SuccessMessage)
			assert.False(t, state.Submitting)
		})
	}

	assert.Zero(t, rec.calls.Load())
}

func TestSubmit_HoneypotAbortsSilently(t *testing.T) {
	rec, server := newRecordingServer(t, http.StatusOK)
	c := newTestController(t, DefaultDefinition(), server.URL, nil)

	fill(t, c, map[string]string{"name": "Bot", "email": "bot@x.com", "botField": "Acme"})
	state := c.Submit(context.Background())

	assert.Zero(t, rec.calls.Load())
	assert.Empty(t, state.ErrorMessage)
	assert.Empty(t, state.SuccessMessage)
	assert.Equal(t, "Bot", state.Fields.Get("name"))
}

func TestSubmit_ServerErrorKeepsFields(t *testing.T) {
	_, server := newRecordingServer(t, http.StatusInternalServerError)
	c := newTestController(t, DefaultDefinition(), server.URL, nil)

	fill(t, c, map[string]string{"name": "A", "email": "a@b.com"})
	state := c.Submit(context.Background())

	assert.Equal(t, MessageSubmitFailed, state.ErrorMessage)
	assert.Equal(t, "A", state.Fields.Get("name"))
	assert.False(t, state.Submitting)
}

func TestSubmit_TransportError(t *testing.T) {
	c := newTestController(t, DefaultDefinition(), "http://127.0.0.1:1", nil)

	fill(t, c, map[string]string{"name": "A", "email": "a@b.com"})
	state := c.Submit(context.Background())

	assert.Equal(t, MessageSubmitFailed, state.ErrorMessage)
}

func TestSubmit_ClearsPreviousMessages(t *testing.T) {
	_, server := newRecordingServer(t, http.StatusOK)
	c := newTestController(t, DefaultDefinition(), server.URL, nil)

	fill(t, c, map[string]string{"name": "A"})
	require.Equal(t, MessageMissingRequired, c.Submit(context.Background()).ErrorMessage)

	fill(t, c, map[string]string{"email": "a@b.com"})
	state := c.Submit(context.Background())
	assert.Empty(t, state.ErrorMessage)
	assert.Equal(t, DefaultSuccessMessage, state.SuccessMessage)
}

func TestSubmit_NavigatesOnSuccess(t *testing.T) {
	_, server := newRecordingServer(t, http.StatusOK)
	ctrl := gomock.NewController(t)
	nav := NewMockNavigator(ctrl)

	def := DefaultDefinition()
	def.Success = SuccessNavigate
	c := newTestController(t, def, server.URL, nav)

	nav.EXPECT().Navigate(gomock.Any(), "/success").Return(nil)

	fill(t, c, map[string]string{"name": "A", "email": "a@b.com"})
	state := c.Submit(context.Background())

	assert.Empty(t, state.SuccessMessage)
	assert.False(t, state.Submitting)
}

func TestSubmit_NavigationFailureFallsBackInline(t *testing.T) {
	_, server := newRecordingServer(t, http.StatusOK)
	ctrl := gomock.NewController(t)
	nav := NewMockNavigator(ctrl)

	def := DefaultDefinition()
	def.Success = SuccessNavigate
	c := newTestController(t, def, server.URL, nav)

	nav.EXPECT().Navigate(gomock.Any(), "/success").Return(errors.New("router unavailable"))
	nav.EXPECT().Navigate(gomock.Any(), "/success").DoAndReturn(func(context.Context, string) error {
		panic("view crashed")
	})

	for i := 0; i < 2; i++ {
		fill(t, c, map[string]string{"name": "A", "email": "a@b.com"})
		state := c.Submit(context.Background())

		assert.Equal(t, DefaultSuccessMessage, state.SuccessMessage)
		assert.False(t, state.Submitting)
	}
}

func TestUpdateField_UnknownKey(t *testing.T) {
	c := newTestController(t, DefaultDefinition(), "", nil)

	assert.Error(t, c.UpdateField("company", "x"))
	assert.Equal(t, len(DefaultDefinition().Keys()), c.State().Fields.Len())
	assert.NotContains(t, c.State().Fields.Map(), "company")
}
