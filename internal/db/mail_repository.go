package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/mail"
)

// MailRepository stores character mail. Implements mail.Store.
type MailRepository struct {
	db *pgxpool.Pool
}

// NewMailRepository creates a new MailRepository.
func NewMailRepository(db *pgxpool.Pool) *MailRepository {
	return &MailRepository{db: db}
}

// InsertMail stores m. Inserting the same id twice is a no-op.
func (r *MailRepository) InsertMail(ctx context.Context, m mail.Mail) error {
	ids := make([]int32, len(m.Items))
	counts := make([]int32, len(m.Items))
	for i, it := range m.Items {
		ids[i], counts[i] = it.ID, it.Count
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO character_mail
		 (id, character_id, kind, quest_id, template_id, sender_entry, item_ids, item_counts, money, deliver_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		m.ID, m.CharacterID, int16(m.Kind), m.QuestID, m.TemplateID, m.SenderEntry,
		ids, counts, m.Money, m.DeliverAt,
	)
	if err != nil {
		return fmt.Errorf("inserting mail %s for character %d: %w", m.ID, m.CharacterID, err)
	}
	return nil
}

// LoadByCharacter returns the mail of a character ordered by delivery time.
func (r *MailRepository) LoadByCharacter(ctx context.Context, charID int64) ([]mail.Mail, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, kind, quest_id, template_id, sender_entry, item_ids, item_counts, money, deliver_at
		 FROM character_mail
		 WHERE character_id = $1
		 ORDER BY deliver_at, created_at`, charID)
	if err != nil {
		return nil, fmt.Errorf("querying mail for character %d: %w", charID, err)
	}
	defer rows.Close()

	var out []mail.Mail
	for rows.Next() {
		var (
			m           mail.Mail
			id          uuid.UUID
			kind        int16
			ids, counts []int32
		)
		if err := rows.Scan(&id, &kind, &m.QuestID, &m.TemplateID, &m.SenderEntry,
			&ids, &counts, &m.Money, &m.DeliverAt); err != nil {
			return nil, fmt.Errorf("scanning mail row: %w", err)
		}
		m.ID = id
		m.CharacterID = charID
		m.Kind = mail.Kind(kind)
		for i := range min(len(ids), len(counts)) {
			m.Items = append(m.Items, data.ItemCount{ID: ids[i], Count: counts[i]})
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mail rows: %w", err)
	}
	return out, nil
}
