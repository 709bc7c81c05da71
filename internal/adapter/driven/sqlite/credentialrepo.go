package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/ericfisherdev/scangate/internal/domain/model"
	"github.com/ericfisherdev/scangate/internal/domain/port/driven"
)

var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo keeps the API key pair and cached tokens in the credentials
// table, sealed with AES-256-GCM under SCANGATE_SECRET_KEY.
type CredentialRepo struct {
	db  *DB
	key []byte // nil when SCANGATE_SECRET_KEY is unset.
}

// NewCredentialRepo returns a repo sealing values with key (32 bytes). With a
// nil key, Set and Get fail with driven.ErrEncryptionKeyNotSet while List and
// Delete keep working so stale entries can still be inspected and removed.
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

func (r *CredentialRepo) Set(ctx context.Context, name, plaintext string) error {
	aead, err := r.aead()
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("seal credential %q: %w", name, err)
	}
	sealed := base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, []byte(plaintext), []byte(name)))

	const query = `
		INSERT INTO credentials (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.Writer.ExecContext(ctx, query, name, sealed, formatTime(now())); err != nil {
		return fmt.Errorf("store credential %q: %w", name, err)
	}
	return nil
}

func (r *CredentialRepo) Get(ctx context.Context, name string) (string, error) {
	aead, err := r.aead()
	if err != nil {
		return "", err
	}

	var sealed string
	err = r.db.Reader.QueryRowContext(ctx, `SELECT value FROM credentials WHERE name = ?`, name).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read credential %q: %w", name, err)
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("decrypt credential %q: malformed value", name)
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(name))
	if err != nil {
		return "", fmt.Errorf("decrypt credential %q: wrong SCANGATE_SECRET_KEY or corrupted value", name)
	}
	return string(plaintext), nil
}

func (r *CredentialRepo) List(ctx context.Context) ([]model.StoredCredential, error) {
	rows, err := r.db.Reader.QueryContext(ctx, `SELECT name, updated_at FROM credentials ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []model.StoredCredential
	for rows.Next() {
		var c model.StoredCredential
		var updatedAt string
		if err := rows.Scan(&c.Name, &updatedAt); err != nil {
			return nil, fmt.Errorf("list credentials: %w", err)
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("credential %q updated_at: %w", c.Name, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CredentialRepo) Delete(ctx context.Context, names ...string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete credentials: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	removed := 0
	for _, name := range names {
		res, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, name)
		if err != nil {
			return 0, fmt.Errorf("delete credential %q: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete credential %q: %w", name, err)
		}
		removed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete credentials: %w", err)
	}
	return removed, nil
}

// aead builds the GCM cipher for the configured key. The credential name is
// bound as additional data, so a value copied under another name fails to open.
func (r *CredentialRepo) aead() (cipher.AEAD, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("credential cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
