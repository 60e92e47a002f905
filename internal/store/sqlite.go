package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db  *sql.DB
	now Clock
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*MemoryStore)(nil)

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" databases whole.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL DEFAULT '',
        email TEXT NOT NULL DEFAULT '',
        full_name TEXT NOT NULL DEFAULT '',
        role TEXT NOT NULL DEFAULT 'user',
        onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
        business_type TEXT,
        referred_by INTEGER,
        created_date DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        conversation_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        created_by INTEGER NOT NULL DEFAULT 0,
        created_date DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, id);

    CREATE TABLE IF NOT EXISTS saved_conversations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        conversation_id TEXT NOT NULL,
        title TEXT NOT NULL DEFAULT '',
        created_date DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS chat_settings (
        id INTEGER PRIMARY KEY CHECK (id = 1), -- singleton row
        system_prompt TEXT NOT NULL,
        chat_title TEXT NOT NULL,
        welcome_message TEXT NOT NULL,
        created_date DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS businesses (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        business_name TEXT NOT NULL,
        industry TEXT NOT NULL DEFAULT '',
        description TEXT NOT NULL DEFAULT '',
        business_structure TEXT NOT NULL DEFAULT '',
        tax_election TEXT NOT NULL DEFAULT '',
        ownership_status TEXT NOT NULL DEFAULT '',
        ein TEXT NOT NULL DEFAULT '',
        location TEXT NOT NULL DEFAULT '',
        owner_age TEXT NOT NULL DEFAULT '',
        owner_gender TEXT NOT NULL DEFAULT '',
        owner_ethnicity TEXT NOT NULL DEFAULT '',
        is_primary BOOLEAN NOT NULL DEFAULT FALSE,
        created_date DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS api_keys (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        api_key TEXT NOT NULL UNIQUE,
        name TEXT NOT NULL DEFAULT '',
        description TEXT NOT NULL DEFAULT '',
        rate_limit INTEGER NOT NULL DEFAULT 0,
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        usage_count INTEGER NOT NULL DEFAULT 0,
        last_used DATETIME,
        created_date DATETIME NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func deleteByID(ctx context.Context, db *sql.DB, table, label string, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", label, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", label, id, ErrNotFound)
	}
	return nil
}

// User methods
const userColumns = "id, name, email, full_name, role, onboarding_completed, business_type, referred_by, created_date"

func scanUser(row rowScanner) (*User, error) {
	var u User
	var businessType sql.NullString
	var referredBy sql.NullInt64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.FullName, &u.Role, &u.OnboardingCompleted, &businessType, &referredBy, &u.CreatedDate); err != nil {
		return nil, err
	}
	if businessType.Valid {
		bt := BusinessType(businessType.String)
		u.BusinessType = &bt
	}
	if referredBy.Valid {
		ref := referredBy.Int64
		u.ReferredBy = &ref
	}
	return &u, nil
}

func nullableBusinessType(bt *BusinessType) sql.NullString {
	if bt == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*bt), Valid: true}
}

func nullableInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id int64) (*User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	u.CreatedDate = s.now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (name, email, full_name, role, onboarding_completed, business_type, referred_by, created_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		u.Name, u.Email, u.FullName, u.Role, u.OnboardingCompleted, nullableBusinessType(u.BusinessType), nullableInt(u.ReferredBy), u.CreatedDate)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	u.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	var updated *User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		u, err := getUser(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(u)
		_, err = tx.ExecContext(ctx,
			"UPDATE users SET name = ?, email = ?, full_name = ?, role = ?, onboarding_completed = ?, business_type = ?, referred_by = ? WHERE id = ?",
			u.Name, u.Email, u.FullName, u.Role, u.OnboardingCompleted, nullableBusinessType(u.BusinessType), nullableInt(u.ReferredBy), id)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		updated = u
		return nil
	})
	return updated, err
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	return deleteByID(ctx, s.db, "users", "user", id)
}

// Message methods
func (s *SQLiteStore) ListMessages(ctx context.Context, filter MessageFilter) ([]Message, error) {
	query := "SELECT id, conversation_id, role, content, created_by, created_date FROM messages"
	var args []any
	if filter.ConversationID != "" {
		query += " WHERE conversation_id = ?"
		args = append(args, filter.ConversationID)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedBy, &msg.CreatedDate); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) error {
	msg.CreatedDate = s.now()

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO messages (conversation_id, role, content, created_by, created_date) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, msg.ConversationID, msg.Role, msg.Content, msg.CreatedBy, msg.CreatedDate)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	msg.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) DeleteMessage(ctx context.Context, id int64) error {
	return deleteByID(ctx, s.db, "messages", "message", id)
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, conversationID string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", conversationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversation messages: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// Saved conversation methods
func (s *SQLiteStore) ListSavedConversations(ctx context.Context, conversationID string) ([]SavedConversation, error) {
	query := "SELECT id, conversation_id, title, created_date FROM saved_conversations"
	var args []any
	if conversationID != "" {
		query += " WHERE conversation_id = ?"
		args = append(args, conversationID)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved conversations: %w", err)
	}
	defer rows.Close()

	saved := make([]SavedConversation, 0)
	for rows.Next() {
		var sc SavedConversation
		if err := rows.Scan(&sc.ID, &sc.ConversationID, &sc.Title, &sc.CreatedDate); err != nil {
			return nil, fmt.Errorf("failed to scan saved conversation row: %w", err)
		}
		saved = append(saved, sc)
	}
	return saved, rows.Err()
}

func (s *SQLiteStore) CreateSavedConversation(ctx context.Context, sc *SavedConversation) error {
	sc.CreatedDate = s.now()
	res, err := s.db.ExecContext(ctx, "INSERT INTO saved_conversations (conversation_id, title, created_date) VALUES (?, ?, ?)",
		sc.ConversationID, sc.Title, sc.CreatedDate)
	if err != nil {
		return fmt.Errorf("failed to insert saved conversation: %w", err)
	}
	sc.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) DeleteSavedConversation(ctx context.Context, id int64) error {
	return deleteByID(ctx, s.db, "saved_conversations", "saved conversation", id)
}

// Chat settings methods
func (s *SQLiteStore) GetChatSettings(ctx context.Context) (*ChatSettings, error) {
	var cs ChatSettings
	err := s.db.QueryRowContext(ctx, "SELECT system_prompt, chat_title, welcome_message, created_date FROM chat_settings WHERE id = 1").
		Scan(&cs.SystemPrompt, &cs.ChatTitle, &cs.WelcomeMessage, &cs.CreatedDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query chat settings: %w", err)
	}
	return &cs, nil
}

func (s *SQLiteStore) CreateChatSettings(ctx context.Context, cs ChatSettings) (*ChatSettings, bool, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO chat_settings (id, system_prompt, chat_title, welcome_message, created_date) VALUES (1, ?, ?, ?, ?)",
		cs.SystemPrompt, cs.ChatTitle, cs.WelcomeMessage, s.now())
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert chat settings: %w", err)
	}
	affected, _ := res.RowsAffected()
	stored, err := s.GetChatSettings(ctx)
	if err != nil {
		return nil, false, err
	}
	return stored, affected == 1, nil
}

// Business methods
const businessColumns = "id, user_id, business_name, industry, description, business_structure, tax_election, ownership_status, ein, location, owner_age, owner_gender, owner_ethnicity, is_primary, created_date"

func scanBusiness(row rowScanner) (*Business, error) {
	var b Business
	err := row.Scan(&b.ID, &b.UserID, &b.BusinessName, &b.Industry, &b.Description, &b.BusinessStructure, &b.TaxElection,
		&b.OwnershipStatus, &b.EIN, &b.Location, &b.OwnerAge, &b.OwnerGender, &b.OwnerEthnicity, &b.IsPrimary, &b.CreatedDate)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLiteStore) ListBusinesses(ctx context.Context, userID int64) ([]Business, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+businessColumns+" FROM businesses WHERE user_id = ? ORDER BY id ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query businesses: %w", err)
	}
	defer rows.Close()

	businesses := make([]Business, 0)
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business row: %w", err)
		}
		businesses = append(businesses, *b)
	}
	return businesses, rows.Err()
}

func (s *SQLiteStore) GetBusiness(ctx context.Context, id int64) (*Business, error) {
	return getBusiness(ctx, s.db, id)
}

func getBusiness(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id int64) (*Business, error) {
	b, err := scanBusiness(q.QueryRowContext(ctx, "SELECT "+businessColumns+" FROM businesses WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("business %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query business: %w", err)
	}
	return b, nil
}

func clearPrimaryTx(ctx context.Context, tx *sql.Tx, userID, keep int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE businesses SET is_primary = FALSE WHERE user_id = ? AND id != ? AND is_primary", userID, keep)
	if err != nil {
		return fmt.Errorf("failed to clear primary business: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateBusiness(ctx context.Context, b *Business) error {
	b.CreatedDate = s.now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO businesses (user_id, business_name, industry, description, business_structure, tax_election, ownership_status, ein, location, owner_age, owner_gender, owner_ethnicity, is_primary, created_date)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.UserID, b.BusinessName, b.Industry, b.Description, b.BusinessStructure, b.TaxElection, b.OwnershipStatus,
			b.EIN, b.Location, b.OwnerAge, b.OwnerGender, b.OwnerEthnicity, b.IsPrimary, b.CreatedDate)
		if err != nil {
			return fmt.Errorf("failed to insert business: %w", err)
		}
		b.ID, _ = res.LastInsertId()
		if b.IsPrimary {
			return clearPrimaryTx(ctx, tx, b.UserID, b.ID)
		}
		return nil
	})
}

func (s *SQLiteStore) UpdateBusiness(ctx context.Context, id int64, patch BusinessPatch) (*Business, error) {
	var updated *Business
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		b, err := getBusiness(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(b)
		_, err = tx.ExecContext(ctx,
			`UPDATE businesses SET business_name = ?, industry = ?, description = ?, business_structure = ?, tax_election = ?,
             ownership_status = ?, ein = ?, location = ?, owner_age = ?, owner_gender = ?, owner_ethnicity = ?, is_primary = ? WHERE id = ?`,
			b.BusinessName, b.Industry, b.Description, b.BusinessStructure, b.TaxElection, b.OwnershipStatus,
			b.EIN, b.Location, b.OwnerAge, b.OwnerGender, b.OwnerEthnicity, b.IsPrimary, id)
		if err != nil {
			return fmt.Errorf("failed to update business: %w", err)
		}
		if b.IsPrimary {
			if err := clearPrimaryTx(ctx, tx, b.UserID, b.ID); err != nil {
				return err
			}
		}
		updated = b
		return nil
	})
	return updated, err
}

func (s *SQLiteStore) DeleteBusiness(ctx context.Context, id int64) error {
	return deleteByID(ctx, s.db, "businesses", "business", id)
}

func (s *SQLiteStore) SetPrimaryBusiness(ctx context.Context, id int64) (*Business, error) {
	primary := true
	return s.UpdateBusiness(ctx, id, BusinessPatch{IsPrimary: &primary})
}

// API key methods
const apiKeyColumns = "id, api_key, name, description, rate_limit, is_active, usage_count, last_used, created_date"

func scanAPIKey(row rowScanner) (*APIKey, error) {
	var k APIKey
	var lastUsed sql.NullTime
	if err := row.Scan(&k.ID, &k.Key, &k.Name, &k.Description, &k.RateLimit, &k.IsActive, &k.UsageCount, &lastUsed, &k.CreatedDate); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		k.LastUsed = &t
	}
	return &k, nil
}

func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+apiKeyColumns+" FROM api_keys ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]APIKey, 0)
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key row: %w", err)
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) CreateAPIKey(ctx context.Context, k *APIKey) error {
	k.CreatedDate = s.now()
	var lastUsed sql.NullTime
	if k.LastUsed != nil {
		lastUsed = sql.NullTime{Time: *k.LastUsed, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO api_keys (api_key, name, description, rate_limit, is_active, usage_count, last_used, created_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		k.Key, k.Name, k.Description, k.RateLimit, k.IsActive, k.UsageCount, lastUsed, k.CreatedDate)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}
	k.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) UpdateAPIKey(ctx context.Context, id int64, patch APIKeyPatch) (*APIKey, error) {
	var updated *APIKey
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		k, err := scanAPIKey(tx.QueryRowContext(ctx, "SELECT "+apiKeyColumns+" FROM api_keys WHERE id = ?", id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("api key %d: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to query api key: %w", err)
		}
		patch.Apply(k)
		_, err = tx.ExecContext(ctx, "UPDATE api_keys SET name = ?, description = ?, rate_limit = ?, is_active = ? WHERE id = ?",
			k.Name, k.Description, k.RateLimit, k.IsActive, id)
		if err != nil {
			return fmt.Errorf("failed to update api key: %w", err)
		}
		updated = k
		return nil
	})
	return updated, err
}

func (s *SQLiteStore) DeleteAPIKey(ctx context.Context, id int64) error {
	return deleteByID(ctx, s.db, "api_keys", "api key", id)
}
