package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectOf(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"site payload", SiteEventPayload{SiteID: "site-1"}, "site-1"},
		{"site payload pointer", &SiteEventPayload{SiteID: "site-2"}, "site-2"},
		{"cron payload", CronEventPayload{JobID: "job-1"}, "job-1"},
		{"cron payload pointer", &CronEventPayload{JobID: "job-2"}, "job-2"},
		{"nil pointer", (*SiteEventPayload)(nil), ""},
		{"unknown payload", "site-3", ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubjectOf(tt.payload))
		})
	}
}

func TestEventType_IsKnown(t *testing.T) {
	assert.True(t, EventSiteFailed.IsKnown())
	assert.True(t, EventType("cron.fired").IsKnown())
	assert.False(t, EventType("site.exploded").IsKnown())
	assert.False(t, EventType("").IsKnown())
}
