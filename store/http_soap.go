package store

import (
	"context"
	"fmt"
)

// HTTPSoap is one HTTP/SOAP channel or outgoing connection definition.
type HTTPSoap struct {
	ID          int64
	Name        string
	IsActive    bool
	IsInternal  bool
	Connection  string // channel or outgoing
	Transport   string // plain_http or soap
	URLPath     string
	Method      string
	SOAPAction  string
	SOAPVersion string
	ServiceID   int64
	ServiceName string
	ImplName    string
	SecName     string
	SecType     string
}

// URLSecurity binds a channel's URL path to the security definition that
// guards it. An empty SecType means the path is unsecured.
type URLSecurity struct {
	URLPath  string
	SecName  string
	SecType  string
	IsActive bool
}

const httpSoapSelectCols = `id, name, is_active, is_internal, connection, transport, url_path, method,
	soap_action, soap_version, service_id, service_name, impl_name, sec_name, sec_type`

// GetHTTPSoapList returns definitions of the given connection kind in id order,
// so rows sharing a URL path come back in the order they were defined.
func (db *DB) GetHTTPSoapList(ctx context.Context, clusterID int64, connection string) ([]HTTPSoap, error) {
	rows, err := db.QueryContext(ctx, db.Q(`SELECT `+httpSoapSelectCols+`
		FROM http_soap WHERE cluster_id = ? AND connection = ? ORDER BY id`), clusterID, connection)
	if err != nil {
		return nil, fmt.Errorf("list http/soap: %w", err)
	}
	defer rows.Close()

	var items []HTTPSoap
	for rows.Next() {
		var h HTTPSoap
		if err := rows.Scan(&h.ID, &h.Name, &h.IsActive, &h.IsInternal, &h.Connection, &h.Transport, &h.URLPath, &h.Method,
			&h.SOAPAction, &h.SOAPVersion, &h.ServiceID, &h.ServiceName, &h.ImplName, &h.SecName, &h.SecType); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

func (db *DB) CreateHTTPSoap(ctx context.Context, clusterID int64, h *HTTPSoap) error {
	if h.Connection == "" {
		h.Connection = "channel"
	}
	if h.Transport == "" {
		h.Transport = "plain_http"
	}
	id, err := db.insertReturningID(ctx, `
		INSERT INTO http_soap (cluster_id, name, is_active, is_internal, connection, transport, url_path, method,
		    soap_action, soap_version, service_id, service_name, impl_name, sec_name, sec_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clusterID, h.Name, h.IsActive, h.IsInternal, h.Connection, h.Transport, h.URLPath, h.Method,
		h.SOAPAction, h.SOAPVersion, h.ServiceID, h.ServiceName, h.ImplName, h.SecName, h.SecType)
	if err != nil {
		return fmt.Errorf("create http/soap: %w", err)
	}
	h.ID = id
	return nil
}

// GetURLSecurity returns the security binding of every channel URL path in
// the cluster. When several channels share a path, the first defined wins.
func (db *DB) GetURLSecurity(ctx context.Context, clusterID int64) ([]URLSecurity, error) {
	rows, err := db.QueryContext(ctx, db.Q(`
		SELECT url_path, sec_name, sec_type, is_active
		FROM http_soap WHERE cluster_id = ? AND connection = 'channel' ORDER BY id`), clusterID)
	if err != nil {
		return nil, fmt.Errorf("list url security: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	var items []URLSecurity
	for rows.Next() {
		var u URLSecurity
		if err := rows.Scan(&u.URLPath, &u.SecName, &u.SecType, &u.IsActive); err != nil {
			return nil, err
		}
		if _, ok := seen[u.URLPath]; ok {
			continue
		}
		seen[u.URLPath] = struct{}{}
		items = append(items, u)
	}
	return items, rows.Err()
}
