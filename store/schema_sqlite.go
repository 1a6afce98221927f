package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS cluster (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    name              TEXT NOT NULL UNIQUE,
    broker_host       TEXT NOT NULL,
    broker_start_port INTEGER NOT NULL,
    broker_token      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS server (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    name             TEXT NOT NULL,
    cluster_id       INTEGER NOT NULL REFERENCES cluster(id),
    host             TEXT NOT NULL DEFAULT '',
    port             INTEGER NOT NULL DEFAULT 0,
    odb_token        TEXT NOT NULL UNIQUE,
    last_join_status TEXT NOT NULL DEFAULT 'not-accepted',
    last_join_mod_date TEXT,
    UNIQUE (cluster_id, name)
);

CREATE TABLE IF NOT EXISTS sec_basic_auth (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    cluster_id INTEGER NOT NULL REFERENCES cluster(id),
    name       TEXT NOT NULL,
    is_active  INTEGER NOT NULL DEFAULT 1,
    username   TEXT NOT NULL DEFAULT '',
    realm      TEXT NOT NULL DEFAULT '',
    password   TEXT NOT NULL DEFAULT '',
    UNIQUE (cluster_id, name)
);

CREATE TABLE IF NOT EXISTS sec_tech_account (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    cluster_id INTEGER NOT NULL REFERENCES cluster(id),
    name       TEXT NOT NULL,
    is_active  INTEGER NOT NULL DEFAULT 1,
    password   TEXT NOT NULL DEFAULT '',
    salt       TEXT NOT NULL DEFAULT '',
    UNIQUE (cluster_id, name)
);

CREATE TABLE IF NOT EXISTS sec_wss (
    id                       INTEGER PRIMARY KEY AUTOINCREMENT,
    cluster_id               INTEGER NOT NULL REFERENCES cluster(id),
    name                     TEXT NOT NULL,
    is_active                INTEGER NOT NULL DEFAULT 1,
    username                 TEXT NOT NULL DEFAULT '',
    password                 TEXT NOT NULL DEFAULT '',
    password_type            TEXT NOT NULL DEFAULT 'clear_text',
    reject_empty_nonce_creat INTEGER NOT NULL DEFAULT 1,
    reject_stale_tokens      INTEGER NOT NULL DEFAULT 1,
    reject_expiry_limit      INTEGER NOT NULL DEFAULT 0,
    nonce_freshness_time     INTEGER NOT NULL DEFAULT 0,
    UNIQUE (cluster_id, name)
);

CREATE TABLE IF NOT EXISTS http_soap (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    cluster_id   INTEGER NOT NULL REFERENCES cluster(id),
    name         TEXT NOT NULL,
    is_active    INTEGER NOT NULL DEFAULT 1,
    is_internal  INTEGER NOT NULL DEFAULT 0,
    connection   TEXT NOT NULL DEFAULT 'channel',
    transport    TEXT NOT NULL DEFAULT 'plain_http',
    url_path     TEXT NOT NULL,
    method       TEXT NOT NULL DEFAULT '',
    soap_action  TEXT NOT NULL DEFAULT '',
    soap_version TEXT NOT NULL DEFAULT '',
    service_id   INTEGER NOT NULL DEFAULT 0,
    service_name TEXT NOT NULL DEFAULT '',
    impl_name    TEXT NOT NULL DEFAULT '',
    sec_name     TEXT NOT NULL DEFAULT '',
    sec_type     TEXT NOT NULL DEFAULT '',
    UNIQUE (cluster_id, name, connection)
);
CREATE INDEX IF NOT EXISTS idx_http_soap_path ON http_soap(cluster_id, connection, url_path);

CREATE TABLE IF NOT EXISTS out_ftp (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    cluster_id INTEGER NOT NULL REFERENCES cluster(id),
    name       TEXT NOT NULL,
    is_active  INTEGER NOT NULL DEFAULT 1,
    host       TEXT NOT NULL DEFAULT '',
    port       INTEGER NOT NULL DEFAULT 21,
    user_      TEXT NOT NULL DEFAULT '',
    password   TEXT NOT NULL DEFAULT '',
    acct       TEXT NOT NULL DEFAULT '',
    timeout    INTEGER NOT NULL DEFAULT 0,
    dircache   INTEGER NOT NULL DEFAULT 0,
    UNIQUE (cluster_id, name)
);

CREATE TABLE IF NOT EXISTS connector (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    cluster_id INTEGER NOT NULL REFERENCES cluster(id),
    name       TEXT NOT NULL,
    kind       TEXT NOT NULL,
    is_active  INTEGER NOT NULL DEFAULT 1,
    def_id     INTEGER,
    UNIQUE (cluster_id, kind, name)
);
CREATE INDEX IF NOT EXISTS idx_connector_kind ON connector(cluster_id, kind);

CREATE TABLE IF NOT EXISTS job (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    cluster_id      INTEGER NOT NULL REFERENCES cluster(id),
    name            TEXT NOT NULL,
    is_active       INTEGER NOT NULL DEFAULT 1,
    job_type        TEXT NOT NULL,
    start_date      TEXT NOT NULL,
    extra           TEXT NOT NULL DEFAULT '',
    service         TEXT NOT NULL,
    weeks           INTEGER NOT NULL DEFAULT 0,
    days            INTEGER NOT NULL DEFAULT 0,
    hours           INTEGER NOT NULL DEFAULT 0,
    minutes         INTEGER NOT NULL DEFAULT 0,
    seconds         INTEGER NOT NULL DEFAULT 0,
    repeats         INTEGER NOT NULL DEFAULT 0,
    cron_definition TEXT NOT NULL DEFAULT '',
    UNIQUE (cluster_id, name)
);
`
