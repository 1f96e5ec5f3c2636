package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/stwalsh4118/estatedesk/internal/errors"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/realtime"
)

func TestChangesHandler_DisabledFeed(t *testing.T) {
	router := newTestRouter()
	router.GET("/api/v1/changes", NewChangesHandler(nil, 0).Stream)

	w := doRequest(router, http.MethodGet, "/api/v1/changes", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apierrors.ErrServiceUnavailable, decodeError(t, w).Error.Code)
}

func TestChangesHandler_UnknownTable(t *testing.T) {
	hub := realtime.NewHub(4, nil)
	defer hub.Close()

	router := newTestRouter()
	router.GET("/api/v1/changes", NewChangesHandler(hub, 0).Stream)

	w := doRequest(router, http.MethodGet, "/api/v1/changes?table=leads,agents", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, hub.Len())
}

func TestParseTables(t *testing.T) {
	tests := []struct {
		name            string
		values          []string
		expectedTables  []string
		expectedUnknown []string
	}{
		{name: "no filter", values: nil},
		{name: "repeated params", values: []string{"leads", "offers"}, expectedTables: []string{"leads", "offers"}},
		{name: "comma separated with blanks", values: []string{" leads , ,viewings"}, expectedTables: []string{"leads", "viewings"}},
		{name: "unknown tables", values: []string{"leads,users"}, expectedTables: []string{"leads"}, expectedUnknown: []string{"users"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, unknown := parseTables(tt.values)
			assert.Equal(t, tt.expectedTables, tables)
			assert.Equal(t, tt.expectedUnknown, unknown)
		})
	}
}

func TestChangesHandler_StreamsMatchingEvents(t *testing.T) {
	// Arrange
	hub := realtime.NewHub(4, nil)
	defer hub.Close()

	router := newTestRouter()
	router.GET("/api/v1/changes", NewChangesHandler(hub, time.Hour).Stream)
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/changes?table=leads", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Act
	hub.Publish(models.ChangeEvent{Table: models.TableProperties, Op: models.ChangeUpdate, ID: "p-1"})
	hub.Publish(models.ChangeEvent{Table: models.TableLeads, Op: models.ChangeInsert, ID: "l-1"})

	// Assert
	ev := readChangeEvent(t, bufio.NewScanner(resp.Body))
	assert.Equal(t, models.TableLeads, ev.Table)
	assert.Equal(t, models.ChangeInsert, ev.Op)
	assert.Equal(t, "l-1", ev.ID)

	// Disconnecting the client releases the subscription
	cancel()
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestChangesHandler_EndsWhenHubCloses(t *testing.T) {
	hub := realtime.NewHub(4, nil)

	router := newTestRouter()
	router.GET("/api/v1/changes", NewChangesHandler(hub, time.Hour).Stream)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/changes")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()

	// The body reaches EOF once the handler returns
	done := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after hub close")
	}
}

// readChangeEvent returns the first "change" event on the stream.
func readChangeEvent(t *testing.T, scanner *bufio.Scanner) models.ChangeEvent {
	t.Helper()

	isChange := false
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			isChange = strings.TrimSpace(strings.TrimPrefix(line, "event:")) == eventChange
		case strings.HasPrefix(line, "data:") && isChange:
			var ev models.ChangeEvent
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &ev))
			return ev
		}
	}
	require.NoError(t, scanner.Err())
	t.Fatal("stream ended before a change event arrived")
	return models.ChangeEvent{}
}
