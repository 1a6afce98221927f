package workerconfig

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"busnode/store"
	"busnode/topology"
)

// RouteInfo is what a worker needs to hand a request on a URL path to the
// right service.
type RouteInfo struct {
	ChannelID   int64
	Name        string
	IsActive    bool
	IsInternal  bool
	Transport   string
	Method      string
	SOAPAction  string
	SOAPVersion string
	ServiceID   int64
	ServiceName string
	ImplName    string
	SecName     string
	SecType     string
}

// BrokerConfig is the broker side of the snapshot: the derived endpoint table
// and the token every envelope carries.
type BrokerConfig struct {
	Endpoints topology.Endpoints
	Token     string
}

// Counts summarizes a snapshot for logging.
type Counts struct {
	BasicAuth    int
	TechAccounts int
	WSS          int
	URLSecurity  int
	RoutePaths   int
	Routes       int
	OutFTP       int
}

// Snapshot is the immutable set of security and routing tables consulted by
// request workers. Nothing mutates it after Build returns; every getter
// returns a copy.
type Snapshot struct {
	basicAuth    map[string]store.BasicAuth
	techAccounts map[string]store.TechAccount
	wss          map[string]store.WSSDefinition
	urlSecurity  map[string]store.URLSecurity
	routes       map[string][]RouteInfo
	outFTP       map[string]store.OutFTP

	broker       BrokerConfig
	repoLocation string
	builtAt      time.Time
}

func (s *Snapshot) BasicAuth(name string) (store.BasicAuth, bool) {
	v, ok := s.basicAuth[name]
	return v, ok
}

func (s *Snapshot) TechAccount(name string) (store.TechAccount, bool) {
	v, ok := s.techAccounts[name]
	return v, ok
}

func (s *Snapshot) WSS(name string) (store.WSSDefinition, bool) {
	v, ok := s.wss[name]
	return v, ok
}

func (s *Snapshot) URLSecurity(path string) (store.URLSecurity, bool) {
	v, ok := s.urlSecurity[path]
	return v, ok
}

func (s *Snapshot) OutFTP(name string) (store.OutFTP, bool) {
	v, ok := s.outFTP[name]
	return v, ok
}

// Routes returns every route bound to path, in definition order.
func (s *Snapshot) Routes(path string) []RouteInfo {
	rs := s.routes[path]
	if len(rs) == 0 {
		return nil
	}
	out := make([]RouteInfo, len(rs))
	copy(out, rs)
	return out
}

// Route picks the route for path and SOAP action. An empty action matches
// the first route defined for the path.
func (s *Snapshot) Route(path, soapAction string) (RouteInfo, bool) {
	for _, r := range s.routes[path] {
		if soapAction == "" || r.SOAPAction == soapAction {
			return r, true
		}
	}
	return RouteInfo{}, false
}

func (s *Snapshot) Broker() BrokerConfig { return s.broker }

func (s *Snapshot) RepoLocation() string { return s.repoLocation }

func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

func (s *Snapshot) Counts() Counts {
	c := Counts{
		BasicAuth:    len(s.basicAuth),
		TechAccounts: len(s.techAccounts),
		WSS:          len(s.wss),
		URLSecurity:  len(s.urlSecurity),
		RoutePaths:   len(s.routes),
		OutFTP:       len(s.outFTP),
	}
	for _, rs := range s.routes {
		c.Routes += len(rs)
	}
	return c
}

// CheckBasicAuth verifies HTTP basic credentials against the named
// definition. Inactive definitions never authenticate.
func (s *Snapshot) CheckBasicAuth(name, username, password string) bool {
	def, ok := s.basicAuth[name]
	if !ok || !def.IsActive || def.Username != username {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(def.Password), []byte(password)) == nil
}

// CheckTechAccount verifies a technical account's password. The stored hash
// covers the password followed by the account salt.
func (s *Snapshot) CheckTechAccount(name, password string) bool {
	acct, ok := s.techAccounts[name]
	if !ok || !acct.IsActive {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(acct.Password), []byte(password+acct.Salt)) == nil
}
