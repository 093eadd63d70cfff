package db

import (
	"github.com/hpungsan/arkiv/internal/errors"
)

// _metadata keys for the archive README.
const (
	metaKeyReadmeFrontmatter = "readme_frontmatter"
	metaKeyReadmeBody        = "readme_body"
)

// SetMeta upserts one key in the archive metadata table.
func SetMeta(q Queryer, key, value string) error {
	_, err := q.Exec("INSERT OR REPLACE INTO _metadata (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// AllMeta loads the archive metadata table as a map. Databases that
// predate the table read as empty.
func AllMeta(q Queryer) (map[string]string, error) {
	rows, err := q.Query("SELECT key, value FROM _metadata")
	if err != nil {
		if isNoSuchTableError(err) {
			return map[string]string{}, nil
		}
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.NewInternal(err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return meta, nil
}

// StoreReadmeMeta persists the README split into its frontmatter YAML and
// body text. Empty parts are skipped rather than overwritten, so a
// re-import that drops one half leaves the stored half in place.
func StoreReadmeMeta(q Queryer, frontmatterYAML, body string) error {
	if frontmatterYAML != "" {
		if err := SetMeta(q, metaKeyReadmeFrontmatter, frontmatterYAML); err != nil {
			return err
		}
	}
	if body != "" {
		if err := SetMeta(q, metaKeyReadmeBody, body); err != nil {
			return err
		}
	}
	return nil
}

// LoadReadmeMeta loads the stored README parts. ok reports whether the
// store holds any metadata at all; either part may still be empty.
func LoadReadmeMeta(q Queryer) (frontmatterYAML, body string, ok bool, err error) {
	meta, err := AllMeta(q)
	if err != nil {
		return "", "", false, err
	}
	if len(meta) == 0 {
		return "", "", false, nil
	}
	return meta[metaKeyReadmeFrontmatter], meta[metaKeyReadmeBody], true, nil
}
