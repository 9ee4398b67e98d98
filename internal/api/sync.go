package api

import (
	"net/http"
	"time"

	"verbindung/mitgliederamt/internal/common"
)

// SyncMembersHandler handles POST /api/v1/mitglieder/sync
//
// The run is best-effort: per-member failures are part of the summary, so
// a completed run always answers 200 even when individual members were
// skipped.
func SyncMembersHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		deps.Metrics.SyncRunsTotal.Inc()
		start := time.Now()

		summary, err := deps.Services.Engine.SyncAll(r.Context())

		deps.Metrics.SyncJobDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			common.RespondError(w, initTime, err, "Abgleich konnte nicht gestartet werden", statusForError(err))
			return
		}

		deps.Metrics.MembersSyncedTotal.Add(float64(summary.Attempted))

		common.RespondSuccess(w, initTime, "Abgleich abgeschlossen", summary)
	}
}
