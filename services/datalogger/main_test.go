package datalogger

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/barnybug/castbridge/pubsub"
	"github.com/barnybug/castbridge/services"
)

func testService(t *testing.T) *Service {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(schema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Service{db: db}
}

func TestLoggable(t *testing.T) {
	assert.True(t, loggable("cast"))
	assert.True(t, loggable("announce"))
	assert.False(t, loggable("query"))
	assert.False(t, loggable("_rpc.1234"))
}

func TestRecordAndHistory(t *testing.T) {
	service := testService(t)

	ev := pubsub.NewEvent("cast", pubsub.Fields{
		"device":    "cast.kitchen_speaker",
		"command":   "on",
		"timestamp": "2014-01-02 03:04:05.000",
	})
	require.NoError(t, service.record(ev))

	answer := service.queryHistory(services.Question{Verb: "history", Args: "cast.kitchen_speaker"})
	assert.Contains(t, answer, "2014-01-02 03:04:05.000")
	assert.Contains(t, answer, `"command":"on"`)

	answer = service.queryHistory(services.Question{Verb: "history", Args: "cast.other"})
	assert.Equal(t, "no events for 'cast.other'", answer)
}

func TestHistoryLimit(t *testing.T) {
	service := testService(t)
	for i := 0; i < 5; i++ {
		ev := pubsub.NewEvent("cast", pubsub.Fields{"device": "cast.kitchen_speaker"})
		require.NoError(t, service.record(ev))
	}
	answer := service.queryHistory(services.Question{Verb: "history", Args: "cast.kitchen_speaker 2"})
	lines := strings.Split(strings.TrimSpace(answer), "\n")
	assert.Len(t, lines, 2)
}
