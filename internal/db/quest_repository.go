package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/questd/internal/game/quest"
)

// QuestRepository manages character quest progress in the database.
// Implements quest.Repository.
type QuestRepository struct {
	db *pgxpool.Pool
}

// NewQuestRepository creates a new QuestRepository.
func NewQuestRepository(db *pgxpool.Pool) *QuestRepository {
	return &QuestRepository{db: db}
}

// LoadJournal loads the stored quest state of a character.
// A character without rows gets an empty snapshot.
func (r *QuestRepository) LoadJournal(ctx context.Context, charID int64) (quest.Snapshot, error) {
	var snap quest.Snapshot
	var err error

	if snap.Statuses, err = r.loadStatuses(ctx, charID); err != nil {
		return quest.Snapshot{}, err
	}
	if snap.Rewarded, err = r.loadRewarded(ctx, charID); err != nil {
		return quest.Snapshot{}, err
	}
	if snap.Periodic, err = r.loadPeriodic(ctx, charID); err != nil {
		return quest.Snapshot{}, err
	}
	if snap.Bits, err = r.loadBits(ctx, charID); err != nil {
		return quest.Snapshot{}, err
	}
	return snap, nil
}

func (r *QuestRepository) loadStatuses(ctx context.Context, charID int64) ([]quest.StatusSnapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT quest_id, status, timer_expires_at, objective_data
		 FROM character_queststatus
		 WHERE character_id = $1
		 ORDER BY quest_id`, charID)
	if err != nil {
		return nil, fmt.Errorf("querying quest statuses for character %d: %w", charID, err)
	}
	defer rows.Close()

	var out []quest.StatusSnapshot
	for rows.Next() {
		var (
			st      quest.StatusSnapshot
			status  int16
			expires *time.Time
		)
		if err := rows.Scan(&st.QuestID, &status, &expires, &st.ObjectiveData); err != nil {
			return nil, fmt.Errorf("scanning quest status row: %w", err)
		}
		st.Status = quest.Status(status)
		if expires != nil {
			st.ExpiresAt = *expires
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quest status rows: %w", err)
	}
	return out, nil
}

func (r *QuestRepository) loadRewarded(ctx context.Context, charID int64) ([]int32, error) {
	rows, err := r.db.Query(ctx,
		`SELECT quest_id FROM character_queststatus_rewarded
		 WHERE character_id = $1 ORDER BY quest_id`, charID)
	if err != nil {
		return nil, fmt.Errorf("querying rewarded quests for character %d: %w", charID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int32])
	if err != nil {
		return nil, fmt.Errorf("collecting rewarded quests for character %d: %w", charID, err)
	}
	return ids, nil
}

func (r *QuestRepository) loadPeriodic(ctx context.Context, charID int64) ([]quest.PeriodicEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT quest_id, bucket, event_id, completed_at
		 FROM character_queststatus_periodic
		 WHERE character_id = $1
		 ORDER BY bucket, event_id, quest_id`, charID)
	if err != nil {
		return nil, fmt.Errorf("querying periodic quests for character %d: %w", charID, err)
	}
	defer rows.Close()

	var out []quest.PeriodicEntry
	for rows.Next() {
		var (
			e      quest.PeriodicEntry
			bucket int16
		)
		if err := rows.Scan(&e.QuestID, &bucket, &e.EventID, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning periodic quest row: %w", err)
		}
		e.Bucket = quest.PeriodicBucket(bucket)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating periodic quest rows: %w", err)
	}
	return out, nil
}

func (r *QuestRepository) loadBits(ctx context.Context, charID int64) (quest.CompletedBits, error) {
	var words []int64
	err := r.db.QueryRow(ctx,
		`SELECT words FROM character_quest_bits WHERE character_id = $1`, charID,
	).Scan(&words)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying quest bits for character %d: %w", charID, err)
	}
	bits := make(quest.CompletedBits, len(words))
	for i, w := range words {
		bits[i] = uint64(w)
	}
	return bits, nil
}

// SaveJournal writes a change set in a single transaction.
func (r *QuestRepository) SaveJournal(ctx context.Context, pc quest.PendingChanges) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "characterID", pc.CharacterID, "error", err)
		}
	}()

	if err := r.SaveJournalTx(ctx, tx, pc); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SaveJournalTx applies the save tags of pc within an existing transaction.
// Default rows are upserted, Delete and ForceDelete rows are removed.
// Changed cooldown buckets are replaced wholesale.
func (r *QuestRepository) SaveJournalTx(ctx context.Context, tx pgx.Tx, pc quest.PendingChanges) error {
	charID := pc.CharacterID

	batch := &pgx.Batch{}
	for _, row := range pc.Statuses {
		if row.Save != quest.SaveDefault {
			batch.Queue(
				`DELETE FROM character_queststatus WHERE character_id = $1 AND quest_id = $2`,
				charID, row.QuestID)
			continue
		}
		var expires *time.Time
		if !row.ExpiresAt.IsZero() {
			expires = &row.ExpiresAt
		}
		od := row.ObjectiveData
		if od == nil {
			od = []int32{}
		}
		batch.Queue(
			`INSERT INTO character_queststatus
			 (character_id, quest_id, status, timer_expires_at, objective_data)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (character_id, quest_id) DO UPDATE SET
			  status = $3, timer_expires_at = $4, objective_data = $5`,
			charID, row.QuestID, int16(row.Status), expires, od)
	}

	for _, row := range pc.Rewarded {
		if row.Save != quest.SaveDefault {
			batch.Queue(
				`DELETE FROM character_queststatus_rewarded WHERE character_id = $1 AND quest_id = $2`,
				charID, row.QuestID)
			continue
		}
		batch.Queue(
			`INSERT INTO character_queststatus_rewarded (character_id, quest_id)
			 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			charID, row.QuestID)
	}

	for _, b := range pc.Buckets {
		batch.Queue(
			`DELETE FROM character_queststatus_periodic WHERE character_id = $1 AND bucket = $2`,
			charID, int16(b))
	}

	if pc.BitsChanged {
		words := make([]int64, len(pc.Bits))
		for i, w := range pc.Bits {
			words[i] = int64(w)
		}
		batch.Queue(
			`INSERT INTO character_quest_bits (character_id, words) VALUES ($1, $2)
			 ON CONFLICT (character_id) DO UPDATE SET words = $2`,
			charID, words)
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for range batch.Len() {
			if _, err := br.Exec(); err != nil {
				br.Close() //nolint:errcheck
				return fmt.Errorf("saving quests for character %d: %w", charID, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("closing quest batch for character %d: %w", charID, err)
		}
	}

	// Вставляем новое содержимое бакетов через COPY
	if len(pc.Periodic) > 0 {
		rows := make([][]any, 0, len(pc.Periodic))
		for _, e := range pc.Periodic {
			if !slices.Contains(pc.Buckets, e.Bucket) {
				continue
			}
			rows = append(rows, []any{charID, e.QuestID, int16(e.Bucket), e.EventID, e.CompletedAt})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"character_queststatus_periodic"},
			[]string{"character_id", "quest_id", "bucket", "event_id", "completed_at"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("inserting periodic quests for character %d: %w", charID, err)
		}
	}

	slog.Debug("saved character quests",
		"characterID", charID,
		"statuses", len(pc.Statuses),
		"rewarded", len(pc.Rewarded),
		"buckets", len(pc.Buckets))
	return nil
}

// ResetBucket clears a cooldown bucket for every stored character and unsets
// the given unique completion bits. Online journals are reset separately.
// Returns the number of removed cooldown rows.
func (r *QuestRepository) ResetBucket(ctx context.Context, bucket quest.PeriodicBucket, bits []int32) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`DELETE FROM character_queststatus_periodic WHERE bucket = $1`, int16(bucket))
	if err != nil {
		return 0, fmt.Errorf("resetting %s quests: %w", bucket, err)
	}

	if err := clearBits(ctx, tx, bits, nil); err != nil {
		return 0, fmt.Errorf("clearing %s quest bits: %w", bucket, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ResetSeasonal drops the seasonal cooldowns of holiday eventID earned before
// the given moment and unsets bits for the characters that lost a cooldown.
// Returns the number of removed cooldown rows.
func (r *QuestRepository) ResetSeasonal(ctx context.Context, eventID int32, before time.Time, bits []int32) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx,
		`DELETE FROM character_queststatus_periodic
		 WHERE bucket = $1 AND event_id = $2 AND completed_at < $3
		 RETURNING character_id`,
		int16(quest.BucketSeasonal), eventID, before)
	if err != nil {
		return 0, fmt.Errorf("resetting event %d quests: %w", eventID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("resetting event %d quests: %w", eventID, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	slices.Sort(ids)
	chars := slices.Compact(slices.Clone(ids))

	if err := clearBits(ctx, tx, bits, chars); err != nil {
		return 0, fmt.Errorf("clearing event %d quest bits: %w", eventID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return int64(len(ids)), nil
}

// clearBits unsets bits in the stored completion words. A nil chars touches
// every character.
func clearBits(ctx context.Context, tx pgx.Tx, bits []int32, chars []int64) error {
	// Маски по словам; индексы массивов в PostgreSQL с единицы.
	masks := make(map[int]uint64)
	for _, bit := range bits {
		if bit <= 0 {
			continue
		}
		masks[int(bit-1)/64+1] |= 1 << (uint(bit-1) % 64)
	}
	for word, mask := range masks {
		var err error
		if chars == nil {
			_, err = tx.Exec(ctx,
				`UPDATE character_quest_bits SET words[$1] = words[$1] & ~$2::bigint
				 WHERE cardinality(words) >= $1`,
				word, int64(mask))
		} else {
			_, err = tx.Exec(ctx,
				`UPDATE character_quest_bits SET words[$1] = words[$1] & ~$2::bigint
				 WHERE cardinality(words) >= $1 AND character_id = ANY($3)`,
				word, int64(mask), chars)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteCharacter removes every quest row of a character.
func (r *QuestRepository) DeleteCharacter(ctx context.Context, charID int64) error {
	batch := &pgx.Batch{}
	for _, table := range []string{
		"character_queststatus",
		"character_queststatus_rewarded",
		"character_queststatus_periodic",
		"character_quest_bits",
	} {
		batch.Queue(`DELETE FROM `+table+` WHERE character_id = $1`, charID)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("deleting quests for character %d: %w", charID, err)
	}
	return nil
}
