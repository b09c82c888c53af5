package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/servicebay/internal/domain"
)

func TestRecorder_ObserveOperation(t *testing.T) {
	recorder := NewRecorder()

	recorder.ObserveOperation("soft_delete", domain.ResultOK, 5*time.Millisecond)
	recorder.ObserveOperation("soft_delete", domain.ResultAlreadyDeleted, time.Millisecond)
	recorder.ObserveOperation("soft_delete", domain.ResultAlreadyDeleted, time.Millisecond)

	srv := httptest.NewServer(recorder.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(body)

	assert.Contains(t, out, `servicebay_lifecycle_operations_total{operation="soft_delete",outcome="OK"} 1`)
	assert.Contains(t, out, `servicebay_lifecycle_operations_total{operation="soft_delete",outcome="ALREADY_DELETED"} 2`)
	assert.Contains(t, out, `servicebay_lifecycle_operation_duration_seconds_count{operation="soft_delete"} 3`)
	assert.Contains(t, out, "go_goroutines")
}
