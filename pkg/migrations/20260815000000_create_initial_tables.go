package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		stmts := []string{
			`
			CREATE TABLE jobs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				type TEXT NOT NULL,
				status TEXT NOT NULL,
				data TEXT NOT NULL,
				progress INTEGER NOT NULL,
				process_id TEXT,
				library_id INTEGER
			)`,
			`
			CREATE TABLE libraries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				media_kind TEXT NOT NULL,
				audiobooks_only BOOLEAN NOT NULL DEFAULT FALSE,
				deleted_at TIMESTAMPTZ
			)`,
			`
			CREATE TABLE library_folders (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER REFERENCES libraries (id) NOT NULL,
				path TEXT NOT NULL
			)`,
			`CREATE INDEX ix_library_folders_library_id ON library_folders (library_id)`,
			`
			CREATE TABLE library_items (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER REFERENCES libraries (id) NOT NULL,
				library_folder_id INTEGER REFERENCES library_folders (id) NOT NULL,
				path TEXT NOT NULL,
				rel_path TEXT NOT NULL,
				ino INTEGER NOT NULL DEFAULT 0,
				device_id INTEGER NOT NULL DEFAULT 0,
				is_file BOOLEAN NOT NULL DEFAULT FALSE,
				media_kind TEXT NOT NULL,
				mtime TIMESTAMPTZ,
				ctime TIMESTAMPTZ,
				birth_time TIMESTAMPTZ,
				last_scan TIMESTAMPTZ,
				is_missing BOOLEAN NOT NULL DEFAULT FALSE,
				is_invalid BOOLEAN NOT NULL DEFAULT FALSE,
				size INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE UNIQUE INDEX ux_library_items_library_id_path ON library_items (library_id, path)`,
			`CREATE INDEX ix_library_items_library_id ON library_items (library_id)`,
			`
			CREATE TABLE library_files (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_item_id TEXT REFERENCES library_items (id) NOT NULL,
				ino INTEGER NOT NULL DEFAULT 0,
				device_id INTEGER NOT NULL DEFAULT 0,
				path TEXT NOT NULL,
				rel_path TEXT NOT NULL,
				filename TEXT NOT NULL,
				ext TEXT NOT NULL,
				size INTEGER NOT NULL DEFAULT 0,
				mtime_ms INTEGER NOT NULL DEFAULT 0,
				ctime_ms INTEGER NOT NULL DEFAULT 0,
				birth_time_ms INTEGER NOT NULL DEFAULT 0,
				is_supplementary BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE INDEX ix_library_files_library_item_id ON library_files (library_item_id)`,
			`
			CREATE TABLE authors (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER REFERENCES libraries (id) NOT NULL,
				name TEXT NOT NULL,
				sort_name TEXT NOT NULL,
				asin TEXT,
				description TEXT,
				image_path TEXT
			)`,
			`CREATE INDEX ix_authors_library_id_name ON authors (library_id, name)`,
			`
			CREATE TABLE series (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER REFERENCES libraries (id) NOT NULL,
				name TEXT NOT NULL,
				description TEXT,
				image_path TEXT
			)`,
			`CREATE INDEX ix_series_library_id_name ON series (library_id, name)`,
			`
			CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_item_id TEXT REFERENCES library_items (id) NOT NULL,
				title TEXT NOT NULL,
				sort_title TEXT NOT NULL,
				subtitle TEXT,
				description TEXT,
				publisher TEXT,
				published_year TEXT,
				isbn TEXT,
				asin TEXT,
				language TEXT,
				abridged BOOLEAN NOT NULL DEFAULT FALSE,
				narrators TEXT,
				genres TEXT,
				tags TEXT,
				cover_path TEXT
			)`,
			`CREATE UNIQUE INDEX ux_books_library_item_id ON books (library_item_id)`,
			`
			CREATE TABLE book_authors (
				book_id INTEGER REFERENCES books (id) NOT NULL,
				author_id INTEGER REFERENCES authors (id) NOT NULL,
				sort_order INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (book_id, author_id)
			)`,
			`
			CREATE TABLE book_series (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				book_id INTEGER REFERENCES books (id) NOT NULL,
				series_id INTEGER REFERENCES series (id) NOT NULL,
				sequence TEXT
			)`,
			`CREATE UNIQUE INDEX ux_book_series_book_id_series_id ON book_series (book_id, series_id)`,
			`
			CREATE TABLE book_chapters (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				book_id INTEGER REFERENCES books (id) NOT NULL,
				idx INTEGER NOT NULL,
				start REAL NOT NULL,
				"end" REAL NOT NULL,
				title TEXT NOT NULL
			)`,
			`CREATE INDEX ix_book_chapters_book_id ON book_chapters (book_id)`,
			`
			CREATE TABLE podcasts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_item_id TEXT REFERENCES library_items (id) NOT NULL,
				title TEXT NOT NULL,
				sort_title TEXT NOT NULL,
				author TEXT,
				description TEXT,
				feed_url TEXT,
				itunes_id TEXT,
				language TEXT,
				genres TEXT,
				tags TEXT,
				cover_path TEXT
			)`,
			`CREATE UNIQUE INDEX ux_podcasts_library_item_id ON podcasts (library_item_id)`,
			`
			CREATE TABLE podcast_episodes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				podcast_id INTEGER REFERENCES podcasts (id) NOT NULL,
				title TEXT NOT NULL,
				season TEXT,
				episode TEXT,
				description TEXT,
				published_at TEXT,
				audio_rel_path TEXT NOT NULL,
				audio_ino INTEGER NOT NULL DEFAULT 0,
				audio_device INTEGER NOT NULL DEFAULT 0,
				audio_size INTEGER NOT NULL DEFAULT 0,
				duration_sec REAL NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX ix_podcast_episodes_podcast_id ON podcast_episodes (podcast_id)`,
		}

		for _, stmt := range stmts {
			if _, err := db.Exec(stmt); err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		tables := []string{
			"podcast_episodes", "podcasts", "book_chapters", "book_series",
			"book_authors", "books", "series", "authors", "library_files",
			"library_items", "library_folders", "libraries", "jobs",
		}
		for _, table := range tables {
			if _, err := db.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
