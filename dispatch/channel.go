package dispatch

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"

	"busnode/messaging"
)

// Security types a channel URL can be guarded by.
const (
	SecBasicAuth   = "basic_auth"
	SecTechAccount = "tech_account"
	SecWSS         = "wss"
)

// ChannelHandler checks a request against its channel's security binding
// and passes it on to the service invoker.
type ChannelHandler struct {
	invoker Handler
}

func NewChannelHandler(invoker Handler) *ChannelHandler {
	return &ChannelHandler{invoker: invoker}
}

func (h *ChannelHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	if req.Route == nil || !req.Route.IsActive {
		return textResponse(http.StatusNotFound, "no channel for "+req.HTTP.URL.Path), nil
	}
	if !authorized(req) {
		resp := textResponse(http.StatusUnauthorized, "unauthorized")
		resp.Header = http.Header{"Www-Authenticate": {`Basic realm="busnode"`}}
		return resp, nil
	}
	return h.invoker.Handle(ctx, req)
}

func authorized(req *Request) bool {
	sec, ok := req.Snapshot.URLSecurity(req.HTTP.URL.Path)
	if !ok || sec.SecType == "" {
		return true
	}
	user, pass, hasAuth := req.HTTP.BasicAuth()
	switch sec.SecType {
	case SecBasicAuth:
		return hasAuth && req.Snapshot.CheckBasicAuth(sec.SecName, user, pass)
	case SecTechAccount:
		return hasAuth && user == sec.SecName && req.Snapshot.CheckTechAccount(sec.SecName, pass)
	case SecWSS:
		// WS-Security lives in the SOAP envelope and is verified by the
		// service, which gets the definition name with the request.
		_, known := req.Snapshot.WSS(sec.SecName)
		return known
	default:
		return false
	}
}

func textResponse(status int, msg string) *Response {
	return &Response{Status: status, ContentType: "text/plain; charset=utf-8", Body: []byte(msg)}
}

// Sender pushes a message onto the broker fabric. *messaging.Client is one.
type Sender interface {
	Send(ctx context.Context, msgType, topic string, payload any) error
}

// Invocation is the service request published to the broker.
type Invocation struct {
	Action        messaging.Action    `json:"action"`
	CorrelationID string              `json:"cid"`
	Channel       string              `json:"channel"`
	Service       string              `json:"service"`
	Method        string              `json:"method"`
	Path          string              `json:"path"`
	SOAPAction    string              `json:"soap_action,omitempty"`
	SecName       string              `json:"sec_name,omitempty"`
	Headers       map[string][]string `json:"headers,omitempty"`
	Body          []byte              `json:"body,omitempty"`
}

// BrokerInvoker hands the request to the service layer over the broker and
// answers 202 with the correlation id the result will be tagged with.
type BrokerInvoker struct {
	sender Sender
}

func NewBrokerInvoker(sender Sender) *BrokerInvoker {
	return &BrokerInvoker{sender: sender}
}

func (b *BrokerInvoker) Handle(ctx context.Context, req *Request) (*Response, error) {
	if b.sender == nil {
		return nil, messaging.ErrNotInitialized
	}
	inv := Invocation{
		Action:        messaging.ActionServiceInvoke,
		CorrelationID: req.CorrelationID,
		Channel:       req.Route.Name,
		Service:       req.Route.ServiceName,
		Method:        req.HTTP.Method,
		Path:          req.HTTP.URL.Path,
		SOAPAction:    req.Route.SOAPAction,
		SecName:       req.Route.SecName,
		Headers:       req.HTTP.Header,
		Body:          req.Body,
	}
	if err := b.sender.Send(ctx, "service", messaging.TopicServiceInvoke, inv); err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]string{"cid": req.CorrelationID, "status": "accepted"})
	if err != nil {
		return nil, err
	}
	return &Response{Status: http.StatusAccepted, ContentType: "application/json", Body: body}, nil
}
