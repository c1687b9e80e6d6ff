package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE assets (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				fingerprint TEXT NOT NULL,
				mime_type TEXT NOT NULL,
				size_bytes INTEGER NOT NULL,
				local_path TEXT,
				remote_id TEXT,
				upload_status TEXT NOT NULL DEFAULT 'pending_upload'
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		// The dedup invariant: one asset per distinct byte payload.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_assets_fingerprint ON assets(fingerprint)`)
		if err != nil {
			return errors.WithStack(err)
		}

		// The upload queue is derived from this column, so it needs to be fast
		// to scan.
		_, err = db.Exec(`CREATE INDEX ix_assets_upload_status ON assets(upload_status)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE asset_links (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				asset_id TEXT NOT NULL REFERENCES assets(id),
				entity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				role TEXT NOT NULL,
				sort_order INTEGER NOT NULL DEFAULT 0,
				description TEXT,
				tags TEXT
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		// Linking the same (asset, entity, role) twice is a no-op.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_asset_links_triple ON asset_links(asset_id, entity_type, entity_id, role)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`CREATE INDEX ix_asset_links_entity ON asset_links(entity_type, entity_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE books (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				subtitle TEXT,
				author TEXT,
				genre TEXT,
				language TEXT,
				synopsis TEXT,
				rev_local TEXT,
				rev_cloud TEXT,
				sync_state TEXT NOT NULL DEFAULT 'idle',
				conflict_state TEXT NOT NULL DEFAULT 'none'
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE versions (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'active',
				word_count INTEGER NOT NULL DEFAULT 0,
				rev_local TEXT,
				rev_cloud TEXT,
				sync_state TEXT NOT NULL DEFAULT 'idle',
				conflict_state TEXT NOT NULL DEFAULT 'none'
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`CREATE INDEX ix_versions_book_id ON versions(book_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE chapters (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				version_id TEXT NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
				sort_order INTEGER NOT NULL DEFAULT 0,
				title TEXT NOT NULL,
				content TEXT,
				word_count INTEGER NOT NULL DEFAULT 0,
				rev_local TEXT,
				rev_cloud TEXT,
				sync_state TEXT NOT NULL DEFAULT 'idle',
				conflict_state TEXT NOT NULL DEFAULT 'none'
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`CREATE INDEX ix_chapters_version_id ON chapters(version_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE characters (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				version_id TEXT NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				summary TEXT,
				traits TEXT,
				rev_local TEXT,
				rev_cloud TEXT,
				sync_state TEXT NOT NULL DEFAULT 'idle',
				conflict_state TEXT NOT NULL DEFAULT 'none'
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`CREATE INDEX ix_characters_version_id ON characters(version_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		// Sync cycles scan for dirty records on every pass.
		for _, table := range []string{"books", "versions", "chapters", "characters"} {
			_, err = db.Exec(`CREATE INDEX ix_` + table + `_sync_state ON ` + table + `(sync_state)`)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		for _, table := range []string{"asset_links", "assets", "characters", "chapters", "versions", "books"} {
			_, err := db.Exec("DROP TABLE IF EXISTS " + table)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
