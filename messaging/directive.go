package messaging

type Action string

// Close actions, one per connector family.
const (
	ActionAMQPConnectorClose Action = "AMQP_CONNECTOR_CLOSE"
	ActionJMSConnectorClose  Action = "JMS_WMQ_CONNECTOR_CLOSE"
	ActionZMQConnectorClose  Action = "ZMQ_CONNECTOR_CLOSE"

	// ActionSchedulerJobExecute is pushed by the singleton when a job is due.
	ActionSchedulerJobExecute Action = "SCHEDULER_JOB_EXECUTE"
	// ActionServiceInvoke hands an inbound channel request to the service layer.
	ActionServiceInvoke Action = "SERVICE_INVOKE"
	// ActionWorkerConfigReload asks a node to rebuild its worker config.
	ActionWorkerConfigReload Action = "WORKER_CONFIG_RELOAD"
)

// Sub-topics each connector family subscribes to.
const (
	TopicAMQPConnector = "busnode.to-amqp-connector-sub"
	TopicJMSConnector  = "busnode.to-jms-wmq-connector-sub"
	TopicZMQConnector  = "busnode.to-zmq-connector-sub"
	TopicScheduler     = "busnode.scheduler"
	TopicBroadcast     = "busnode.broadcast"
	TopicServiceInvoke = "busnode.service.invoke"
)

// Directive is the control message broadcast to connector subprocesses.
// ODBToken lets a connector ignore directives issued against another store.
type Directive struct {
	Action   Action `json:"action"`
	ODBToken string `json:"odb_token"`
}

// Family groups a connector family's close action with its sub-topic.
type Family struct {
	Name  string
	Close Action
	Topic string
}

// ConnectorFamilies returns the families in shutdown broadcast order.
func ConnectorFamilies() []Family {
	return []Family{
		{Name: "amqp", Close: ActionAMQPConnectorClose, Topic: TopicAMQPConnector},
		{Name: "jms-wmq", Close: ActionJMSConnectorClose, Topic: TopicJMSConnector},
		{Name: "zmq", Close: ActionZMQConnectorClose, Topic: TopicZMQConnector},
	}
}

// CommandTopic is the pull topic on which a named client receives commands.
func CommandTopic(clientName string) string {
	return "busnode.cmd." + clientName
}
