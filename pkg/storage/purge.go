package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

// PurgeMessages removes messages in status created before the unix time
// before, with their sender keys. It returns the number of messages removed.
func (db *MessageDB) PurgeMessages(status protocol.Status, before int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to purge messages: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM sender_keys WHERE message_id IN (
			SELECT id FROM messages WHERE status = ? AND time_created < ?
		)`, string(status), before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sender keys: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM messages WHERE status = ? AND time_created < ?`, string(status), before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to purge messages: %w", err)
	}

	count, _ := result.RowsAffected()
	return count, nil
}

// RunPurger removes finished messages older than maxAge every interval until
// ctx is done. Only delivered and abandoned messages are finished.
func (db *MessageDB) RunPurger(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			db.purgeFinished(time.Now().Add(-maxAge).Unix())
		}
	}
}

func (db *MessageDB) purgeFinished(before int64) {
	for _, status := range []protocol.Status{protocol.StatusDelivered, protocol.StatusAbandoned} {
		count, err := db.PurgeMessages(status, before)
		if err != nil {
			db.logger.Warn("failed to purge messages", zap.String("status", string(status)), zap.Error(err))
			continue
		}
		if count > 0 {
			db.logger.Info("purged messages", zap.String("status", string(status)), zap.Int64("count", count))
		}
	}
}

// Stats counts stored messages per status
func (db *MessageDB) Stats() (map[protocol.Status]int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.db.Query(`SELECT status, COUNT(*) FROM messages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	defer rows.Close()

	counts := make(map[protocol.Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[protocol.Status(status)] = count
	}

	return counts, rows.Err()
}
