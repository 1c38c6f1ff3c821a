package version

// presets mirrors the reference authoring pipeline's canned DDL shapes, so a
// caller can produce an artifact without hand-writing SQL. These are fixed
// strings, not a model-diffing engine.
var presets = map[string]struct {
	upgrade   string
	downgrade string
}{
	"add_column": {
		upgrade:   `ALTER TABLE IF EXISTS users ADD COLUMN IF NOT EXISTS preferences JSONB;`,
		downgrade: `ALTER TABLE IF EXISTS users DROP COLUMN IF EXISTS preferences;`,
	},
	"add_table": {
		upgrade:   `CREATE TABLE IF NOT EXISTS user_settings (id SERIAL PRIMARY KEY, user_id INT, key VARCHAR(100), value TEXT);`,
		downgrade: `DROP TABLE IF EXISTS user_settings;`,
	},
	"add_index": {
		upgrade:   `CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_users_email ON users(email);`,
		downgrade: `DROP INDEX CONCURRENTLY IF EXISTS idx_users_email;`,
	},
	"complex": {
		upgrade: `ALTER TABLE IF EXISTS users ADD COLUMN IF NOT EXISTS metadata JSONB;
CREATE TABLE IF NOT EXISTS audit_log (id SERIAL PRIMARY KEY, action VARCHAR(50), ts TIMESTAMPTZ DEFAULT NOW());
CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts);`,
		downgrade: `DROP INDEX IF EXISTS idx_audit_ts;
DROP TABLE IF EXISTS audit_log;
ALTER TABLE IF EXISTS users DROP COLUMN IF EXISTS metadata;`,
	},
}

// Preset looks up a named canned DDL shape, returning its upgrade and
// downgrade SQL. ok is false for unknown names.
func Preset(name string) (upgrade, downgrade string, ok bool) {
	p, found := presets[name]
	if !found {
		return "", "", false
	}
	return p.upgrade, p.downgrade, true
}

// PresetNames returns the known preset names, for validation/help text.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
