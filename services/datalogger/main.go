// Package datalogger is a service for recording events to a sqlite database.
//
// The history of a device can be queried back over the bus.
package datalogger

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/barnybug/castbridge/config"
	"github.com/barnybug/castbridge/pubsub"
	"github.com/barnybug/castbridge/services"
	"github.com/barnybug/castbridge/util"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	timestamp TEXT NOT NULL,
	topic TEXT NOT NULL,
	device TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS events_device ON events (device, timestamp);
`

// Service datalogger
type Service struct {
	db *sql.DB
}

// ID of the service
func (service *Service) ID() string {
	return "datalogger"
}

func (service *Service) open() error {
	path := util.ExpandUser(services.Config.Datalogger.Path)
	if path == "" {
		path = config.ConfigPath("datalogger.db")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return err
	}
	service.db = db
	return nil
}

func loggable(topic string) bool {
	return !strings.HasPrefix(topic, "_") && topic != "query" && topic != "log"
}

func (service *Service) record(ev *pubsub.Event) error {
	if !loggable(ev.Topic) {
		return nil
	}
	_, err := service.db.Exec(
		"INSERT INTO events (timestamp, topic, device, payload) VALUES (?, ?, ?, ?)",
		ev.Timestamp.Format(pubsub.TimeFormat), ev.Topic, ev.Device(), ev.String())
	return err
}

// QueryHandlers implements this service's queries
func (service *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"history": services.TextHandler(service.queryHistory),
		"help":    services.StaticHandler("history device [count]: recent events for a device\n"),
	}
}

func (service *Service) queryHistory(q services.Question) string {
	args := strings.Fields(q.Args)
	if len(args) == 0 {
		return "history which device?"
	}
	device := args[0]
	limit := 10
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			limit = n
		}
	}

	rows, err := service.db.Query(
		"SELECT timestamp, payload FROM events WHERE device = ? ORDER BY timestamp DESC LIMIT ?",
		device, limit)
	if err != nil {
		return fmt.Sprintf("query failed: %s", err)
	}
	defer rows.Close()

	var out strings.Builder
	for rows.Next() {
		var timestamp, payload string
		if err := rows.Scan(&timestamp, &payload); err != nil {
			return fmt.Sprintf("query failed: %s", err)
		}
		fmt.Fprintf(&out, "%s %s\n", timestamp, payload)
	}
	if out.Len() == 0 {
		return fmt.Sprintf("no events for '%s'", device)
	}
	return out.String()
}

// Stop the service
func (service *Service) Stop() {
	if service.db != nil {
		service.db.Close()
	}
}

// Run the service
func (service *Service) Run() error {
	if err := service.open(); err != nil {
		return err
	}
	for ev := range services.Subscriber.Subscribe(pubsub.All()) {
		if err := service.record(ev); err != nil {
			log.Println("Failed to record event:", err)
		}
	}
	return nil
}
