package pgwallet

// schemaDDL creates the four tables a wallet database holds (spec §4.4).
// Applied once, by CreateStorage, against the freshly created database.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata (
	id    SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	value BYTEA UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	id    BIGSERIAL PRIMARY KEY,
	type  BYTEA NOT NULL,
	name  BYTEA NOT NULL,
	value BYTEA,
	key   BYTEA,
	UNIQUE (type, name)
);

CREATE TABLE IF NOT EXISTS tags_encrypted (
	name    BYTEA NOT NULL,
	value   BYTEA NOT NULL,
	item_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	PRIMARY KEY (name, item_id)
);
CREATE INDEX IF NOT EXISTS tags_encrypted_name_idx ON tags_encrypted (name);
CREATE INDEX IF NOT EXISTS tags_encrypted_value_idx ON tags_encrypted (value);
CREATE INDEX IF NOT EXISTS tags_encrypted_item_id_idx ON tags_encrypted (item_id);

CREATE TABLE IF NOT EXISTS tags_plaintext (
	name    BYTEA NOT NULL,
	value   TEXT NOT NULL,
	item_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	PRIMARY KEY (name, item_id)
);
CREATE INDEX IF NOT EXISTS tags_plaintext_name_idx ON tags_plaintext (name);
CREATE INDEX IF NOT EXISTS tags_plaintext_value_idx ON tags_plaintext (value);
CREATE INDEX IF NOT EXISTS tags_plaintext_item_id_idx ON tags_plaintext (item_id);
`
