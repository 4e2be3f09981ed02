package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const auditLogFile = "reservations.log"

// StartAuditConsumer connects to the broker, declares the durable events
// queue, and appends one human-readable line per event to
// logs/reservations.log.  The append-only file is the system's audit trail
// of credit movements.  The function runs a reconnect loop with capped
// backoff and keeps going across broker restarts; malformed messages are
// rejected without requeue so a poison message cannot wedge the queue.
func StartAuditConsumer() error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("audit-consumer: dial failed: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("audit-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(EventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		line, err := auditLine(d.Body)
		if err == nil {
			err = appendAuditLine(line)
		}
		if err != nil {
			log.Printf("audit-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, no requeue
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// auditLine renders one event as a single log line.
func auditLine(body []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Type {
	case TypeReservationBooked:
		var ev ReservationBookedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return fmt.Sprintf("[%s] booked | reservation=%s | user=%s | facility=%q | %s -> %s | cost=%d credits | remaining=%d",
			ev.BookedAt, ev.ReservationID, ev.UserID, ev.FacilityName, ev.StartTime, ev.EndTime, ev.CreditsUsed, ev.RemainingCredits), nil
	case TypeReservationCancelled:
		var ev ReservationCancelledEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return fmt.Sprintf("[%s] cancelled | reservation=%s | user=%s | by=%s | refunded=%d credits (%d to bonus)",
			ev.CancelledAt, ev.ReservationID, ev.UserID, ev.CancelledBy, ev.RefundedCredits, ev.RefundedToBonus), nil
	case TypeCreditsReset:
		var ev CreditsResetEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return fmt.Sprintf("[%s] weekly reset | reset=%d | errors=%d | due=%d",
			ev.RanAt, ev.ResetCount, ev.ErrorCount, ev.TotalUsers), nil
	}
	return "", fmt.Errorf("unknown event type %q", env.Type)
}

func appendAuditLine(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", auditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
