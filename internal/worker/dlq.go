package worker

// dlq.go — cola de mensajes muertos for notification delivery.
// A webhook or email that still fails after the retry schedule must not block
// the pedido transition that triggered it: the job parks in a Redis list
// (dlq:{queue}) carrying the pedido and evento so an operator can replay it
// once the receiver recovers.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry is a parked job plus the context needed to replay it by hand.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	PedidoID      string          `json:"pedido_id"`
	Evento        string          `json:"evento"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // RFC 3339 UTC
	Attempts      int             `json:"attempts"`
}

func newDLQEntry(queue, pedidoID, evento string, payload json.RawMessage, reason string, attempts int) DLQEntry {
	return DLQEntry{
		OriginalQueue: queue,
		PedidoID:      pedidoID,
		Evento:        evento,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
		Attempts:      attempts,
	}
}

// SendToDLQ parks an exhausted job. Best effort: a DLQ write failure is
// logged and dropped, never propagated to the caller.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, pedidoID, evento string, payload json.RawMessage, reason string, attempts int) {
	entry := newDLQEntry(queue, pedidoID, evento, payload, reason, attempts)

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Str("pedido_id", pedidoID).Msg("dlq: no se pudo serializar la entrada")
		return
	}

	dlqKey := DLQPrefix + queue
	if err := rdb.LPush(ctx, dlqKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Str("pedido_id", pedidoID).Msg("dlq: no se pudo encolar la entrada")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("pedido_id", pedidoID).
		Str("evento", evento).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: notificación agotó los reintentos")
}

// DLQLength reports the backlog of one DLQ.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
