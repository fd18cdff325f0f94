package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"fleet-telemetry-backend/internal/store"
)

// AlertDispatcher accepts maintenance alerts for asynchronous delivery.
// Satisfied by notification.WorkerPool; nil disables alerting.
type AlertDispatcher interface {
	Dispatch(machineID int64, message string)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	webpush *webpush.Options
	alerts  AlertDispatcher
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, alerts AlertDispatcher) *Handler {
	return &Handler{
		store:   s,
		webpush: webpushOptions,
		alerts:  alerts,
	}
}

func nowUnix() int64 {
	return time.Now().Unix()
}
