package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/utils"
)

func setupHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}

// writeEvent writes one named SSE frame with v encoded as JSON.
func writeEvent(w io.Writer, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// ServeCheckIns streams check-ins for eventID until the client goes away.
func ServeCheckIns(w http.ResponseWriter, r *http.Request, hub *CheckInHub, eventID string, log *logger.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}

	// streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	setupHeaders(w)
	ctx := r.Context()
	checkIns := hub.Subscribe(ctx, eventID)

	if err := writeEvent(w, "connected", map[string]string{"status": "connected", "eventId": eventID}); err != nil {
		log.Error("SSE", fmt.Sprintf("Failed to open check-in stream for %s: %v", eventID, err))
		return
	}
	flusher.Flush()
	log.Info("SSE", fmt.Sprintf("Client connected to check-in stream for event: %s", eventID))

	for {
		select {
		case checkIn, ok := <-checkIns:
			if !ok {
				return
			}
			if err := writeEvent(w, "checkin", checkIn); err != nil {
				log.Error("SSE", fmt.Sprintf("Failed to write check-in: %v", err))
				continue
			}
			flusher.Flush()

		case <-ctx.Done():
			log.Debug("SSE", fmt.Sprintf("Client disconnected from check-in stream for: %s", eventID))
			return
		}
	}
}
