package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS cluster (
    id                BIGSERIAL PRIMARY KEY,
    name              TEXT NOT NULL UNIQUE,
    broker_host       TEXT NOT NULL,
    broker_start_port INTEGER NOT NULL,
    broker_token      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS server (
    id               BIGSERIAL PRIMARY KEY,
    name             TEXT NOT NULL,
    cluster_id       BIGINT NOT NULL REFERENCES cluster(id),
    host             TEXT NOT NULL DEFAULT '',
    port             INTEGER NOT NULL DEFAULT 0,
    odb_token        TEXT NOT NULL UNIQUE,
    last_join_status TEXT NOT NULL DEFAULT 'not-accepted',
    last_join_mod_date TIMESTAMPTZ,
    UNIQUE (cluster_id, name)
);

CREATE TABLE IF NOT EXISTS sec_basic_auth (
    id         BIGSERIAL PRIMARY KEY,
    cluster_id BIGINT NOT NULL REFERENCES cluster(id),
    name       TEXT NOT NULL,
    is_active  BOOLEAN NOT NULL DEFAULT TRUE,
    username   TEXT NOT NULL DEFAULT '',
    realm      TEXT NOT NULL DEFAULT '',
    password   TEXT NOT NULL DEFAULT '',
    UNIQUE (cluster_id, name)
);

CREATE TABLE IF NOT EXISTS sec_tech_account (
    id         BIGSERIAL PRIMARY KEY,
    cluster_id BIGINT NOT NULL REFERENCES cluster(id),
    name       TEXT NOT NULL,
    is_active  BOOLEAN NOT NULL DEFAULT TRUE,
    password   TEXT NOT NULL DEFAULT '',
    salt       TEXT NOT NULL DEFAULT '',
    UNIQUE (cluster_id, name)
);

CREATE TABLE IF NOT EXISTS sec_wss (
    id                       BIGSERIAL PRIMARY KEY,
    cluster_id               BIGINT NOT NULL REFERENCES cluster(id),
    name                     TEXT NOT NULL,
    is_active                BOOLEAN NOT NULL DEFAULT TRUE,
    username                 TEXT NOT NULL DEFAULT '',
    password                 TEXT NOT NULL DEFAULT '',
    password_type            TEXT NOT NULL DEFAULT 'clear_text',
    reject_empty_nonce_creat BOOLEAN NOT NULL DEFAULT TRUE,
    reject_stale_tokens      BOOLEAN NOT NULL DEFAULT TRUE,
    reject_expiry_limit      INTEGER NOT NULL DEFAULT 0,
    nonce_freshness_time     INTEGER NOT NULL DEFAULT 0,
    UNIQUE (cluster_id, name)
);

CREATE TABLE IF NOT EXISTS http_soap (
    id           BIGSERIAL PRIMARY KEY,
    cluster_id   BIGINT NOT NULL REFERENCES cluster(id),
    name         TEXT NOT NULL,
    is_active    BOOLEAN NOT NULL DEFAULT TRUE,
    is_internal  BOOLEAN NOT NULL DEFAULT FALSE,
    connection   TEXT NOT NULL DEFAULT 'channel',
    transport    TEXT NOT NULL DEFAULT 'plain_http',
    url_path     TEXT NOT NULL,
    method       TEXT NOT NULL DEFAULT '',
    soap_action  TEXT NOT NULL DEFAULT '',
    soap_version TEXT NOT NULL DEFAULT '',
    service_id   BIGINT NOT NULL DEFAULT 0,
    service_name TEXT NOT NULL DEFAULT '',
    impl_name    TEXT NOT NULL DEFAULT '',
    sec_name     TEXT NOT NULL DEFAULT '',
    sec_type     TEXT NOT NULL DEFAULT '',
    UNIQUE (cluster_id, name, connection)
);
CREATE INDEX IF NOT EXISTS idx_http_soap_path ON http_soap(cluster_id, connection, url_path);

CREATE TABLE IF NOT EXISTS out_ftp (
    id         BIGSERIAL PRIMARY KEY,
    cluster_id BIGINT NOT NULL REFERENCES cluster(id),
    name       TEXT NOT NULL,
    is_active  BOOLEAN NOT NULL DEFAULT TRUE,
    host       TEXT NOT NULL DEFAULT '',
    port       INTEGER NOT NULL DEFAULT 21,
    user_      TEXT NOT NULL DEFAULT '',
    password   TEXT NOT NULL DEFAULT '',
    acct       TEXT NOT NULL DEFAULT '',
    timeout    INTEGER NOT NULL DEFAULT 0,
    dircache   BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (cluster_id, name)
);

CREATE TABLE IF NOT EXISTS connector (
    id         BIGSERIAL PRIMARY KEY,
    cluster_id BIGINT NOT NULL REFERENCES cluster(id),
    name       TEXT NOT NULL,
    kind       TEXT NOT NULL,
    is_active  BOOLEAN NOT NULL DEFAULT TRUE,
    def_id     BIGINT,
    UNIQUE (cluster_id, kind, name)
);
CREATE INDEX IF NOT EXISTS idx_connector_kind ON connector(cluster_id, kind);

CREATE TABLE IF NOT EXISTS job (
    id              BIGSERIAL PRIMARY KEY,
    cluster_id      BIGINT NOT NULL REFERENCES cluster(id),
    name            TEXT NOT NULL,
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    job_type        TEXT NOT NULL,
    start_date      TIMESTAMPTZ NOT NULL,
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
