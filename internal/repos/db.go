package repos

import (
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: serializes writers and keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if err := seedBooks(db); err != nil {
		return nil, err
	}
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Books
CREATE TABLE IF NOT EXISTS books(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  author TEXT NOT NULL DEFAULT '',
  genre TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price >= 0),
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  isbn TEXT NOT NULL DEFAULT '',
  language TEXT NOT NULL DEFAULT '',
  format TEXT NOT NULL DEFAULT '',
  publisher TEXT NOT NULL DEFAULT '',
  cover_image_url TEXT NOT NULL DEFAULT '',
  is_physical_library_access INTEGER NOT NULL DEFAULT 0,
  is_bestseller INTEGER NOT NULL DEFAULT 0,
  is_award_winner INTEGER NOT NULL DEFAULT 0,
  is_coming_soon INTEGER NOT NULL DEFAULT 0,
  publication_date TEXT NOT NULL,
  release_date TEXT,
  added_date TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_books_title     ON books(LOWER(title));
CREATE INDEX IF NOT EXISTS idx_books_author    ON books(LOWER(author));
CREATE INDEX IF NOT EXISTS idx_books_added     ON books(added_date);
CREATE INDEX IF NOT EXISTS idx_books_published ON books(publication_date);

-- Timed discounts (no uniqueness per book; overlap resolved by policy)
CREATE TABLE IF NOT EXISTS timed_discounts(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
  discount_percentage REAL NOT NULL CHECK (discount_percentage >= 0 AND discount_percentage <= 1),
  start_date TEXT NOT NULL,
  expires_at TEXT NOT NULL,
  on_sale_flag INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_discounts_book ON timed_discounts(book_id, start_date, expires_at);

-- Users, roles & sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  email_confirmed INTEGER NOT NULL DEFAULT 0,
  profile_image_url TEXT NOT NULL DEFAULT '',
  pending_deletion INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS user_roles(
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  role TEXT NOT NULL CHECK (role IN ('Admin','Staff','User')),
  PRIMARY KEY (user_id, role)
);

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Carts & wishlists
CREATE TABLE IF NOT EXISTS carts(
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  PRIMARY KEY (user_id, book_id)
);

CREATE TABLE IF NOT EXISTS wishlists(
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (user_id, book_id)
);

-- Orders: one row per (user, book, placement time)
CREATE TABLE IF NOT EXISTS orders(
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
  order_date TEXT NOT NULL,
  order_no INTEGER NOT NULL UNIQUE,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  total_price NUMERIC NOT NULL,
  claim_code TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'Placed' CHECK (status IN ('Placed','Cancelled','Received')),
  is_cancelled INTEGER NOT NULL DEFAULT 0,
  is_fulfilled INTEGER NOT NULL DEFAULT 0,
  cancelled_at TEXT,
  fulfilled_at TEXT,
  PRIMARY KEY (user_id, book_id, order_date)
);
CREATE INDEX IF NOT EXISTS idx_orders_book ON orders(book_id);

-- Reviews: one level of replies
CREATE TABLE IF NOT EXISTS reviews(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
  parent_review_id INTEGER NULL REFERENCES reviews(id) ON DELETE RESTRICT,
  rating INTEGER NOT NULL CHECK (rating BETWEEN 0 AND 5),
  comment TEXT NOT NULL,
  review_date TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviews_book ON reviews(book_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_reviews_one_top_level
  ON reviews(user_id, book_id) WHERE parent_review_id IS NULL;

-- Timed announcements
CREATE TABLE IF NOT EXISTS timed_announcements(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL DEFAULT '',
  message TEXT NOT NULL,
  created_at TEXT NOT NULL,
  start_date TEXT NOT NULL,
  expires_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_announcements_window ON timed_announcements(start_date, expires_at);
`
	_, err := db.Exec(schema)
	return err
}
