package postgres

// Catalog queries. All take the schema as $1 and the table as $2 unless noted.

// indexesQuery returns one row per index column with the same column names as
// CockroachDB's SHOW INDEXES, plus is_primary.
const indexesQuery = `
SELECT i.relname                       AS index_name,
       NOT ix.indisunique              AS non_unique,
       ix.indisprimary                 AS is_primary,
       k.n                             AS seq_in_index,
       COALESCE(a.attname, pg_get_indexdef(ix.indexrelid, k.n::int, true)) AS column_name,
       CASE WHEN ix.indoption[(k.n - 1)::int] & 1 = 1 THEN 'DESC' ELSE 'ASC' END AS direction,
       k.n > ix.indnkeyatts            AS implicit
FROM pg_index ix
JOIN pg_class     t ON t.oid = ix.indrelid
JOIN pg_class     i ON i.oid = ix.indexrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, n) ON true
LEFT JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum AND k.attnum > 0
WHERE n.nspname = $1
  AND t.relname = $2
ORDER BY i.relname, k.n`

const triggersQuery = `
SELECT trigger_name,
       event_manipulation,
       action_timing,
       action_statement,
       COALESCE(action_condition, '') AS action_condition
FROM information_schema.triggers
WHERE event_object_schema = $1
  AND event_object_table  = $2
ORDER BY trigger_name, event_manipulation`

const partitionsQuery = `
SELECT child_ns.nspname AS schema,
       child.relname    AS name,
       COALESCE(pg_get_expr(child.relpartbound, child.oid), '') AS expression,
       row_number() OVER (ORDER BY child.relname) AS number
FROM pg_inherits inh
JOIN pg_class     parent    ON parent.oid = inh.inhparent
JOIN pg_class     child     ON child.oid = inh.inhrelid
JOIN pg_namespace parent_ns ON parent_ns.oid = parent.relnamespace
JOIN pg_namespace child_ns  ON child_ns.oid = child.relnamespace
WHERE parent_ns.nspname = $1
  AND parent.relname    = $2
ORDER BY child.relname`

const keysQuery = `
SELECT tc.constraint_name,
       kcu.table_schema  AS from_schema,
       kcu.table_name    AS from_table,
       kcu.column_name   AS from_column,
       ccu.table_schema  AS to_schema,
       ccu.table_name    AS to_table,
       ccu.column_name   AS to_column,
       rc.update_rule    AS on_update,
       rc.delete_rule    AS on_delete
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
     ON kcu.constraint_name = tc.constraint_name
    AND kcu.table_schema    = tc.table_schema
JOIN information_schema.constraint_column_usage ccu
     ON ccu.constraint_name   = tc.constraint_name
    AND ccu.constraint_schema = tc.constraint_schema
JOIN information_schema.referential_constraints rc
     ON rc.constraint_name   = tc.constraint_name
    AND rc.constraint_schema = tc.constraint_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema    = $1
  AND tc.table_name      = $2
ORDER BY tc.constraint_name, kcu.ordinal_position`

const ownerQuery = `
SELECT tableowner AS owner
FROM pg_catalog.pg_tables
WHERE schemaname = $1
  AND tablename  = $2`

const detailsQuery = `
SELECT obj_description(c.oid, 'pg_class') AS description,
       pg_indexes_size(c.oid)             AS index_size,
       pg_relation_size(c.oid)            AS table_size
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1
  AND c.relname = $2`

// TypesQuery selects the non-composite, non-array, user-visible types. It
// takes no arguments.
const TypesQuery = `
SELECT    n.nspname AS schema, t.typname AS typename, t.oid::int4 AS typeid
FROM      pg_type t
LEFT JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
WHERE     (t.typrelid = 0 OR (SELECT c.relkind = 'c' FROM pg_catalog.pg_class c WHERE c.oid = t.typrelid))
AND       NOT EXISTS(SELECT 1 FROM pg_catalog.pg_type el WHERE el.oid = t.typelem AND el.typarray = t.oid)
AND       n.nspname NOT IN ('pg_catalog', 'information_schema')`
