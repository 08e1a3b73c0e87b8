package sqlite

import "database/sql"

// schema sets up the ledger tables. It runs on startup to ensure tables exist.
// idx_rounds_one_active is the storage-level guard for "at most one ACTIVE round per group".
const schema = `
CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    equb_amount TEXT NOT NULL DEFAULT '0',
    selection_method TEXT NOT NULL DEFAULT '',
    grace_period_days INTEGER NOT NULL DEFAULT 0,
    payment_deadline_days INTEGER NOT NULL DEFAULT 0,
    penalty_amount TEXT NOT NULL DEFAULT '0',
    current_round_number INTEGER NOT NULL DEFAULT 0,
    current_winner_id TEXT NOT NULL DEFAULT '',
    last_draw_at INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    role TEXT NOT NULL,
    status TEXT NOT NULL,
    joined_at INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    PRIMARY KEY (group_id, member_id),
    UNIQUE (group_id, seq),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS rounds (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    round_number INTEGER NOT NULL,
    status TEXT NOT NULL,
    expected_amount TEXT NOT NULL,
    total_amount TEXT NOT NULL DEFAULT '0',
    winner_id TEXT NOT NULL DEFAULT '',
    member_count INTEGER NOT NULL,
    start_date INTEGER NOT NULL,
    payment_deadline INTEGER NOT NULL,
    grace_period_days INTEGER NOT NULL,
    penalty_amount TEXT NOT NULL DEFAULT '0',
    winner_selected_at INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (group_id, round_number),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE RESTRICT
);

CREATE TABLE IF NOT EXISTS contributions (
    id TEXT PRIMARY KEY,
    round_id TEXT NOT NULL,
    group_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    amount TEXT NOT NULL,
    status TEXT NOT NULL,
    transaction_id TEXT NOT NULL DEFAULT '',
    paid_at INTEGER NOT NULL DEFAULT 0,
    late INTEGER NOT NULL DEFAULT 0,
    penalty_amount TEXT NOT NULL DEFAULT '0',
    penalized_at INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    UNIQUE (round_id, member_id),
    FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE RESTRICT
);

CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    member_id TEXT NOT NULL,
    group_id TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_rounds_one_active ON rounds(group_id) WHERE status = 'ACTIVE';
CREATE INDEX IF NOT EXISTS idx_rounds_status ON rounds(status);
CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id);
CREATE INDEX IF NOT EXISTS idx_contributions_round_id ON contributions(round_id);
CREATE INDEX IF NOT EXISTS idx_notifications_member_id ON notifications(member_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
