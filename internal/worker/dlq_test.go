package worker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDLQEntry_ContextoDeReproceso(t *testing.T) {
	payload, err := json.Marshal(NotificacionJobPayload{PedidoID: "p-1", Evento: EventoPedidoDespachado})
	require.NoError(t, err)

	entry := newDLQEntry(QueueNotificaciones, "p-1", EventoPedidoDespachado, payload,
		"webhook failed after 3 retries: 503", 3)

	// la entrada debe alcanzar para reprocesar a mano: cola, pedido y evento
	assert.Equal(t, QueueNotificaciones, entry.OriginalQueue)
	assert.Equal(t, "p-1", entry.PedidoID)
	assert.Equal(t, EventoPedidoDespachado, entry.Evento)
	assert.Equal(t, 3, entry.Attempts)

	ts, err := time.Parse(time.RFC3339, entry.FailedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}
