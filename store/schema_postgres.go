package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS map_snapshots (
    id            BIGSERIAL PRIMARY KEY,
    robot_id      TEXT NOT NULL,
    nonce         TEXT NOT NULL DEFAULT '',
    map_version   INTEGER NOT NULL DEFAULT 0,
    size_x        INTEGER NOT NULL DEFAULT 0,
    size_y        INTEGER NOT NULL DEFAULT 0,
    pixel_size_mm DOUBLE PRECISION NOT NULL DEFAULT 0,
    segment_count INTEGER NOT NULL DEFAULT 0,
    raw           BYTEA NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_snapshots_robot ON map_snapshots(robot_id);

CREATE TABLE IF NOT EXISTS segments (
    id            BIGSERIAL PRIMARY KEY,
    robot_id      TEXT NOT NULL,
    segment_id    TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    pixel_count   INTEGER NOT NULL DEFAULT 0,
    cleaned_count INTEGER NOT NULL DEFAULT 0,
    first_seen    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_seen     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(robot_id, segment_id)
);
CREATE INDEX IF NOT EXISTS idx_segments_robot ON segments(robot_id);

CREATE TABLE IF NOT EXISTS jobs (
    id           BIGSERIAL PRIMARY KEY,
    job_uuid     TEXT NOT NULL,
    robot_id     TEXT NOT NULL,
    kind         TEXT NOT NULL,
    args         JSONB NOT NULL DEFAULT '{}',
    source       TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'pending',
    error_detail TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_jobs_uuid ON jobs(job_uuid);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_robot ON jobs(robot_id);

CREATE TABLE IF NOT EXISTS job_history (
    id         BIGSERIAL PRIMARY KEY,
    job_id     BIGINT NOT NULL REFERENCES jobs(id),
    status     TEXT NOT NULL,
    detail     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_job_history_job ON job_history(job_id);

CREATE TABLE IF NOT EXISTS outbox (
    id         BIGSERIAL PRIMARY KEY,
    topic      TEXT NOT NULL,
    payload    BYTEA NOT NULL,
    msg_type   TEXT NOT NULL DEFAULT '',
    robot_id   TEXT NOT NULL DEFAULT '',
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS admin_users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
