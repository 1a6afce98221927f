// Package workerconfig builds the snapshot of security and routing tables
// that request workers read, and publishes it atomically.
package workerconfig

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"busnode/join"
	"busnode/store"
)

// Reader is the slice of the store the builder reads from.
type Reader interface {
	GetBasicAuthList(ctx context.Context, clusterID int64) ([]store.BasicAuth, error)
	GetTechAccountList(ctx context.Context, clusterID int64) ([]store.TechAccount, error)
	GetWSSList(ctx context.Context, clusterID int64) ([]store.WSSDefinition, error)
	GetURLSecurity(ctx context.Context, clusterID int64) ([]store.URLSecurity, error)
	GetHTTPSoapList(ctx context.Context, clusterID int64, connection string) ([]store.HTTPSoap, error)
	GetOutFTPList(ctx context.Context, clusterID int64) ([]store.OutFTP, error)
}

// BuildError names the table whose read failed. No snapshot is produced.
type BuildError struct {
	Table string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build worker config: read %s: %v", e.Table, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

type Builder struct {
	reader       Reader
	repoLocation string
	logger       hclog.Logger
	now          func() time.Time
}

func NewBuilder(reader Reader, repoLocation string, logger hclog.Logger) *Builder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Builder{
		reader:       reader,
		repoLocation: repoLocation,
		logger:       logger.Named("workerconfig"),
		now:          time.Now,
	}
}

// Build reads every table and folds it into a new snapshot. Any failed read
// aborts the build.
func (b *Builder) Build(ctx context.Context, id join.NodeIdentity) (*Snapshot, error) {
	cid := id.ClusterID

	auths, err := b.reader.GetBasicAuthList(ctx, cid)
	if err != nil {
		return nil, &BuildError{Table: "basic_auth", Err: err}
	}
	accts, err := b.reader.GetTechAccountList(ctx, cid)
	if err != nil {
		return nil, &BuildError{Table: "tech_account", Err: err}
	}
	wss, err := b.reader.GetWSSList(ctx, cid)
	if err != nil {
		return nil, &BuildError{Table: "wss", Err: err}
	}
	urlSec, err := b.reader.GetURLSecurity(ctx, cid)
	if err != nil {
		return nil, &BuildError{Table: "url_security", Err: err}
	}
	channels, err := b.reader.GetHTTPSoapList(ctx, cid, "channel")
	if err != nil {
		return nil, &BuildError{Table: "http_soap", Err: err}
	}
	ftps, err := b.reader.GetOutFTPList(ctx, cid)
	if err != nil {
		return nil, &BuildError{Table: "out_ftp", Err: err}
	}

	eps, err := id.Endpoints()
	if err != nil {
		return nil, &BuildError{Table: "cluster", Err: err}
	}

	snap := &Snapshot{
		basicAuth:    make(map[string]store.BasicAuth, len(auths)),
		techAccounts: make(map[string]store.TechAccount, len(accts)),
		wss:          make(map[string]store.WSSDefinition, len(wss)),
		urlSecurity:  make(map[string]store.URLSecurity, len(urlSec)),
		routes:       make(map[string][]RouteInfo),
		outFTP:       make(map[string]store.OutFTP, len(ftps)),
		broker:       BrokerConfig{Endpoints: eps, Token: id.BrokerToken},
		repoLocation: b.repoLocation,
		builtAt:      b.now(),
	}
	for _, a := range auths {
		snap.basicAuth[a.Name] = a
	}
	for _, a := range accts {
		snap.techAccounts[a.Name] = a
	}
	for _, w := range wss {
		snap.wss[w.Name] = w
	}
	for _, u := range urlSec {
		snap.urlSecurity[u.URLPath] = u
	}
	for _, h := range channels {
		snap.routes[h.URLPath] = append(snap.routes[h.URLPath], routeFromChannel(h))
	}
	for _, f := range ftps {
		snap.outFTP[f.Name] = f
	}

	c := snap.Counts()
	b.logger.Info("worker config built",
		"basic_auth", c.BasicAuth, "tech_accounts", c.TechAccounts, "wss", c.WSS,
		"url_security", c.URLSecurity, "routes", c.Routes, "out_ftp", c.OutFTP)
	return snap, nil
}

func routeFromChannel(h store.HTTPSoap) RouteInfo {
	return RouteInfo{
		ChannelID:   h.ID,
		Name:        h.Name,
		IsActive:    h.IsActive,
		IsInternal:  h.IsInternal,
		Transport:   h.Transport,
		Method:      h.Method,
		SOAPAction:  h.SOAPAction,
		SOAPVersion: h.SOAPVersion,
		ServiceID:   h.ServiceID,
		ServiceName: h.ServiceName,
		ImplName:    h.ImplName,
		SecName:     h.SecName,
		SecType:     h.SecType,
	}
}

// Holder publishes the current snapshot to request workers. Replacing it
// swaps the pointer; snapshots themselves are never modified.
type Holder struct {
	p atomic.Pointer[Snapshot]
}

func NewHolder(s *Snapshot) *Holder {
	h := &Holder{}
	if s != nil {
		h.p.Store(s)
	}
	return h
}

// Load returns the current snapshot, or nil before the first Store.
func (h *Holder) Load() *Snapshot { return h.p.Load() }

func (h *Holder) Store(s *Snapshot) { h.p.Store(s) }

// Swap publishes s and returns the snapshot it replaced.
func (h *Holder) Swap(s *Snapshot) *Snapshot { return h.p.Swap(s) }
