package engine

func (e *Engine) wireEventHandlers() {
	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(NodeJoinedEvent)
		if ev.Accepted {
			e.logger.Info("node joined cluster", "server", ev.ServerName, "cluster_id", ev.ClusterID)
		}
	}, EventNodeJoined)

	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(ConnectorFailedEvent)
		e.logger.Warn("connector not running, it will not be retried", "kind", ev.Kind, "id", ev.ID, "detail", ev.Detail)
	}, EventConnectorFailed)

	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(WorkerConfigBuiltEvent)
		if ev.Replaced {
			e.logger.Info("worker config replaced", "routes", ev.Routes, "built_at", ev.BuiltAt)
		}
	}, EventWorkerConfigBuilt)

	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(SingletonElectedEvent)
		if ev.Leader {
			e.logger.Info("this node runs the cluster singleton")
		}
	}, EventSingletonElected)
}
