package ports

// Topics publiés sur le bus (consommés par /events et le relais de notifications).
const (
	TopicTrackingCreated = "tracking.created"
	TopicTrackingUpdated = "tracking.updated"
	TopicTrackingDeleted = "tracking.deleted"
	TopicTrackingStarted = "tracking.started"
	TopicTrackingStopped = "tracking.stopped"
	TopicPageRefreshed   = "page.refreshed"
	TopicSnapshotSaved   = "snapshot.saved"
	TopicChangeDetected  = "CHANGE_DETECTED"
	TopicNotification    = "notification"
)

type EventBus interface {
	Publish(topic string, payload []byte)
	Subscribe() (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}
