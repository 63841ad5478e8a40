package announceservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	"github.com/Black-And-White-Club/award-rotation/app/shared/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNotice() rotationdomain.AwardNotice {
	return rotationdomain.AwardNotice{
		Topic:           rotationdomain.AwardAssignedV1,
		TenantID:        "guild-a",
		Kind:            rotationdomain.KindMVP,
		AssignmentID:    7,
		ParticipantID:   3,
		ParticipantName: "Alice",
		EventID:         11,
		EventName:       "Week 4",
		AwardCount:      2,
		OccurredAt:      time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMessage(t *testing.T) {
	n := sampleNotice()
	assert.Equal(t, "Alice received the MVP for Week 4 (total 2)", Message(n))

	n.Topic = rotationdomain.AwardUnassignedV1
	n.Kind = rotationdomain.KindWinner
	n.AwardCount = 1
	assert.Equal(t, "Alice no longer holds the winner award for Week 4 (total 1)", Message(n))
}

func TestWebhookAnnouncer(t *testing.T) {
	var got webhookPayload
	var correlation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		correlation = r.Header.Get("X-Correlation-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx := tenantctx.WithCorrelationID(context.Background(), "corr-1")
	a := NewWebhookAnnouncer(srv.URL, time.Second)
	require.NoError(t, a.Announce(ctx, sampleNotice()))

	assert.Equal(t, rotationdomain.AwardAssignedV1, got.Topic)
	assert.Equal(t, "Alice received the MVP for Week 4 (total 2)", got.Content)
	assert.Equal(t, int64(7), got.Notice.AssignmentID)
	assert.Equal(t, "corr-1", correlation)
}

func TestWebhookAnnouncer_Errors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer srv.Close()

		err := NewWebhookAnnouncer(srv.URL, time.Second).Announce(context.Background(), sampleNotice())
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "502"), err.Error())
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		err := NewWebhookAnnouncer(srv.URL, 50*time.Millisecond).Announce(context.Background(), sampleNotice())
		require.Error(t, err)
	})
}
