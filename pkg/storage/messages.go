package storage

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ZentaChain/zentalk-msgcore/pkg/message"
	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

// ===== MESSAGE OPERATIONS =====

const messageColumns = `
	m.id, m.version, m.relay_node_id, m.src_node_id, m.dst_node_id,
	m.body, m.password, m.checksum, m.sent_nodes, m.relay_count,
	m.forward_cycles, m.encryption_mode, m.status, m.ignore_flag,
	m.time_created, m.time_received, k.public_key`

// ListFilter narrows ListMessages. Empty fields match everything.
type ListFilter struct {
	Status    protocol.Status
	DstNodeID string
	Limit     int
}

// SaveMessage stores the persisted fields of msg, replacing any record with
// the same id. Transient fields are never written.
func (db *MessageDB) SaveMessage(msg *message.Message) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.saveLocked(msg)
}

func (db *MessageDB) saveLocked(msg *message.Message) error {
	rec := msg.Record()
	if err := rec.Validate(); err != nil {
		return err
	}

	sent, err := encodeSentNodes(rec.SentNodes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO messages (
			id, version, relay_node_id, src_node_id, dst_node_id,
			body, password, checksum, sent_nodes, relay_count,
			forward_cycles, encryption_mode, status, ignore_flag,
			time_created, time_received
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			relay_node_id = excluded.relay_node_id,
			src_node_id = excluded.src_node_id,
			dst_node_id = excluded.dst_node_id,
			body = excluded.body,
			password = excluded.password,
			checksum = excluded.checksum,
			sent_nodes = excluded.sent_nodes,
			relay_count = excluded.relay_count,
			forward_cycles = excluded.forward_cycles,
			encryption_mode = excluded.encryption_mode,
			status = excluded.status,
			ignore_flag = excluded.ignore_flag,
			time_created = excluded.time_created,
			time_received = excluded.time_received,
			updated_at = strftime('%s', 'now')
	`

	_, err = db.db.Exec(
		query,
		rec.ID,
		rec.Version,
		rec.RelayNodeID,
		rec.SrcNodeID,
		rec.DstNodeID,
		rec.Body,
		rec.Password,
		rec.Checksum,
		sent,
		rec.RelayCount,
		rec.ForwardCycles,
		string(rec.EncryptionMode),
		string(rec.Status),
		boolToInt(rec.Ignore),
		rec.TimeCreated,
		rec.TimeReceived,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

// GetMessage loads a message by id. The sender public key is attached when
// one was saved.
func (db *MessageDB) GetMessage(id string) (*message.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.getLocked(id)
}

func (db *MessageDB) getLocked(id string) (*message.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages m LEFT JOIN sender_keys k ON k.message_id = m.id
		WHERE m.id = ?`

	msg, err := scanMessage(db.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return msg, err
}

// ListMessages returns the messages matching filter, oldest first
func (db *MessageDB) ListMessages(filter ListFilter) ([]*message.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var (
		where []string
		args  []any
	)
	if filter.Status != protocol.StatusNone {
		where = append(where, "m.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.DstNodeID != "" {
		where = append(where, "m.dst_node_id = ?")
		args = append(args, filter.DstNodeID)
	}

	query := `SELECT ` + messageColumns + `
		FROM messages m LEFT JOIN sender_keys k ON k.message_id = m.id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY m.time_created ASC, m.id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []*message.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// UpdateStatus applies a status transition to a stored message and returns
// the status before and after it. A delivered message stays delivered; the
// record is only written when the status actually moves.
func (db *MessageDB) UpdateStatus(id string, status protocol.Status) (previous, current protocol.Status, err error) {
	if !status.Valid() {
		return protocol.StatusNone, protocol.StatusNone, fmt.Errorf("unknown status %q", status)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	msg, err := db.getLocked(id)
	if err != nil {
		return protocol.StatusNone, protocol.StatusNone, err
	}

	previous = msg.Status()
	msg.SetStatus(status)
	current = msg.Status()

	if current == previous {
		if current != status {
			db.logger.Debug("status change ignored",
				zap.String("id", id),
				zap.String("status", string(previous)),
				zap.String("requested", string(status)),
			)
		}
		return previous, current, nil
	}

	if err := db.saveLocked(msg); err != nil {
		return protocol.StatusNone, protocol.StatusNone, err
	}
	return previous, current, nil
}

// RecordRelay notes that a message was handed to nodeID: the node joins the
// relay log, and both relayCount and forwardCycles grow by one.
func (db *MessageDB) RecordRelay(id, nodeID string) (*message.Message, error) {
	if nodeID == "" {
		return nil, fmt.Errorf("relay node id is empty")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	msg, err := db.getLocked(id)
	if err != nil {
		return nil, err
	}

	msg.AddSentNode(nodeID)
	msg.SetRelayCount(msg.RelayCount() + 1)
	msg.IncForwardCycles()

	if err := db.saveLocked(msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// DeleteMessage removes a message and its sender key
func (db *MessageDB) DeleteMessage(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM sender_keys WHERE message_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete sender key: %w", err)
	}

	return tx.Commit()
}

// ===== SENDER KEYS =====

// SaveSenderKey stores the sender public key PEM of a stored message
func (db *MessageDB) SaveSenderKey(id string, pemData []byte) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	var exists int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to save sender key: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	query := `
		INSERT INTO sender_keys (message_id, public_key) VALUES (?, ?)
		ON CONFLICT(message_id) DO UPDATE SET public_key = excluded.public_key
	`
	if _, err := db.db.Exec(query, id, base64.StdEncoding.EncodeToString(pemData)); err != nil {
		return fmt.Errorf("failed to save sender key: %w", err)
	}

	return nil
}

// GetSenderKey returns the sender public key PEM of a message
func (db *MessageDB) GetSenderKey(id string) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var encoded string
	err := db.db.QueryRow(`SELECT public_key FROM sender_keys WHERE message_id = ?`, id).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sender key: %w", err)
	}

	pemData, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("stored sender key is corrupt: %w", err)
	}
	return pemData, nil
}

// ===== SCANNING =====

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*message.Message, error) {
	var (
		rec       message.Record
		sentNodes string
		mode      string
		status    string
		ignore    int
		senderKey sql.NullString
	)

	err := row.Scan(
		&rec.ID,
		&rec.Version,
		&rec.RelayNodeID,
		&rec.SrcNodeID,
		&rec.DstNodeID,
		&rec.Body,
		&rec.Password,
		&rec.Checksum,
		&sentNodes,
		&rec.RelayCount,
		&rec.ForwardCycles,
		&mode,
		&status,
		&ignore,
		&rec.TimeCreated,
		&rec.TimeReceived,
		&senderKey,
	)
	if err != nil {
		return nil, err
	}

	rec.SentNodes, err = decodeSentNodes(sentNodes)
	if err != nil {
		return nil, err
	}
	rec.EncryptionMode = protocol.EncryptionMode(mode)
	rec.Status = protocol.Status(status)
	rec.Ignore = intToBool(ignore)

	msg, err := message.FromRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("stored message %s: %w", rec.ID, err)
	}

	if senderKey.Valid {
		pemData, err := base64.StdEncoding.DecodeString(senderKey.String)
		if err != nil {
			return nil, fmt.Errorf("stored sender key is corrupt: %w", err)
		}
		msg.SetSrcSslKeyPub(pemData)
	}

	return msg, nil
}
