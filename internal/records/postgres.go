package records

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"alertpipe/internal/dispatch"
	"alertpipe/internal/types"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
// The store accepts this so the same code works inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Compile-time assertion that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore is the production record store, backed by the checks,
// check_states, contacts, contact_media, check_contacts, and
// notification_rules tables.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a PostgresStore on the given connection
// (pool or transaction).
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// CheckByID implements Store.
func (s *PostgresStore) CheckByID(ctx context.Context, id string) (*types.Check, error) {
	var c types.Check
	err := s.db.QueryRow(ctx,
		`SELECT id, entity_name, name FROM checks WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.EntityName, &c.Name)
	if err == pgx.ErrNoRows {
		return nil, notFoundCheck(id)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load check", err)
	}
	return &c, nil
}

// StateByID implements Store.
func (s *PostgresStore) StateByID(ctx context.Context, id string) (*types.CheckState, error) {
	var cs types.CheckState
	err := s.db.QueryRow(ctx,
		`SELECT id, state, summary, details, count FROM check_states WHERE id = $1`,
		id,
	).Scan(&cs.ID, &cs.State, &cs.Summary, &cs.Details, &cs.Count)
	if err == pgx.ErrNoRows {
		return nil, notFoundState(id)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load check state", err)
	}
	return &cs, nil
}

// ContactsForCheck implements Store. Contacts are returned with media and
// rules fully hydrated; an unknown check simply yields no contacts.
func (s *PostgresStore) ContactsForCheck(ctx context.Context, checkID string) ([]*types.Contact, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.name, c.timezone
		 FROM contacts c
		 JOIN check_contacts cc ON cc.contact_id = c.id
		 WHERE cc.check_id = $1
		 ORDER BY c.id`,
		checkID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load contacts for check", err)
	}
	defer rows.Close()

	var contacts []*types.Contact
	for rows.Next() {
		var c types.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Timezone); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan contact row", err)
		}
		contacts = append(contacts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating contact rows", err)
	}

	for _, c := range contacts {
		if err := s.hydrateMedia(ctx, c); err != nil {
			return nil, err
		}
		if err := s.hydrateRules(ctx, c); err != nil {
			return nil, err
		}
	}
	return contacts, nil
}

func (s *PostgresStore) hydrateMedia(ctx context.Context, c *types.Contact) error {
	rows, err := s.db.Query(ctx,
		`SELECT type, address FROM contact_media WHERE contact_id = $1 ORDER BY type`,
		c.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to load contact media", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m types.Media
		var mediumType string
		if err := rows.Scan(&mediumType, &m.Address); err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to scan media row", err)
		}
		m.Type = types.MediumType(mediumType)
		c.Media = append(c.Media, m)
	}
	return rows.Err()
}

func (s *PostgresStore) hydrateRules(ctx context.Context, c *types.Contact) error {
	rows, err := s.db.Query(ctx,
		`SELECT id, entities, tags, time_restrictions, media_by_severity, blackhole_severities
		 FROM notification_rules WHERE contact_id = $1 ORDER BY id`,
		c.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to load notification rules", err)
	}
	defer rows.Close()

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to scan rule row", err)
		}
		c.Rules = append(c.Rules, rule)
	}
	return rows.Err()
}

// scanRule builds a StandardRule from a notification_rules row. The
// time_restrictions and media_by_severity columns are JSONB; entities and
// blackhole_severities are text arrays.
func scanRule(rows pgx.Rows) (*dispatch.StandardRule, error) {
	var (
		rule             dispatch.StandardRule
		entities         []string
		tags             []string
		restrictionsJSON []byte
		mediaJSON        []byte
		blackholes       []string
	)

	if err := rows.Scan(&rule.ID, &entities, &tags, &restrictionsJSON, &mediaJSON, &blackholes); err != nil {
		return nil, err
	}

	rule.Entities = entities
	rule.Tags = types.NewTagSet(tags...)

	if len(restrictionsJSON) > 0 {
		if err := json.Unmarshal(restrictionsJSON, &rule.TimeRestrictions); err != nil {
			return nil, err
		}
	}

	if len(mediaJSON) > 0 {
		var media map[string][]string
		if err := json.Unmarshal(mediaJSON, &media); err != nil {
			return nil, err
		}
		rule.MediaBySeverity = make(map[types.Severity][]types.MediumType, len(media))
		for sev, mediumTypes := range media {
			for _, mt := range mediumTypes {
				rule.MediaBySeverity[types.Severity(sev)] = append(
					rule.MediaBySeverity[types.Severity(sev)], types.MediumType(mt))
			}
		}
	}

	if len(blackholes) > 0 {
		rule.Blackholes = make(map[types.Severity]bool, len(blackholes))
		for _, sev := range blackholes {
			rule.Blackholes[types.Severity(sev)] = true
		}
	}

	return &rule, nil
}
