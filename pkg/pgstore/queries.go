package pgstore

const schemaSQL = `
CREATE TABLE IF NOT EXISTS prov_nodes (
	label      TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	properties JSONB       NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (label, id)
);

CREATE TABLE IF NOT EXISTS prov_edges (
	id         TEXT        PRIMARY KEY,
	type       TEXT        NOT NULL,
	from_label TEXT        NOT NULL,
	from_id    TEXT        NOT NULL,
	to_label   TEXT        NOT NULL,
	to_id      TEXT        NOT NULL,
	properties JSONB       NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	FOREIGN KEY (from_label, from_id) REFERENCES prov_nodes (label, id),
	FOREIGN KEY (to_label, to_id) REFERENCES prov_nodes (label, id)
);

CREATE INDEX IF NOT EXISTS idx_prov_edges_from ON prov_edges (from_label, from_id);
CREATE INDEX IF NOT EXISTS idx_prov_edges_to ON prov_edges (to_label, to_id);
CREATE INDEX IF NOT EXISTS idx_prov_edges_type ON prov_edges (type);
`

// xmax is zero only for a freshly inserted row.
const mergeNodeSQL = `
INSERT INTO prov_nodes (label, id, properties)
VALUES ($1, $2, $3)
ON CONFLICT (label, id) DO UPDATE SET
	properties = prov_nodes.properties || $4::jsonb,
	updated_at = NOW()
RETURNING (xmax = 0) AS created`

const removeFieldsSQL = `
UPDATE prov_nodes SET properties = properties - $3::text[], updated_at = NOW()
WHERE label = $1 AND id = $2`

const nodeColumns = `label, id, properties, created_at, updated_at`

const getNodeSQL = `SELECT ` + nodeColumns + ` FROM prov_nodes WHERE label = $1 AND id = $2`

const matchAllSQL = `SELECT ` + nodeColumns + ` FROM prov_nodes WHERE label = $1 ORDER BY created_at, id`

const deleteIncidentEdgesSQL = `
DELETE FROM prov_edges
WHERE (from_label = $1 AND from_id = $2) OR (to_label = $1 AND to_id = $2)`

const deleteNodeSQL = `DELETE FROM prov_nodes WHERE label = $1 AND id = $2`

const countNodesSQL = `SELECT label, COUNT(*) FROM prov_nodes GROUP BY label`

const countEdgesSQL = `SELECT COUNT(*) FROM prov_edges`

const insertEdgeSQL = `
INSERT INTO prov_edges (id, type, from_label, from_id, to_label, to_id, properties)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at`

const deleteEdgeSQL = `DELETE FROM prov_edges WHERE id = $1`

const edgeColumns = `id, type, from_label, from_id, to_label, to_id, properties, created_at`

const getEdgeSQL = `SELECT ` + edgeColumns + ` FROM prov_edges WHERE id = $1`

const outgoingEdgesSQL = `SELECT ` + edgeColumns + ` FROM prov_edges
WHERE from_label = $1 AND from_id = $2 ORDER BY created_at, id`

const incomingEdgesSQL = `SELECT ` + edgeColumns + ` FROM prov_edges
WHERE to_label = $1 AND to_id = $2 ORDER BY created_at, id`

const edgesByTypeSQL = `SELECT ` + edgeColumns + ` FROM prov_edges WHERE type = $1 ORDER BY created_at, id`
