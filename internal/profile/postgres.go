package profile

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/mmcloughlin/geohash"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/privacy"
	"github.com/meetnearby/meetnearby/internal/storage"
	apperrors "github.com/meetnearby/meetnearby/pkg/errors"
)

const geohashPrecision = 7

// PostgresStore implements Store over the profiles schema.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(client *storage.PostgresClient) *PostgresStore {
	return &PostgresStore{db: client.DB()}
}

func (s *PostgresStore) GetSummaries(ctx context.Context, excludeID string, limit int) ([]Summary, error) {
	query := `
		SELECT id, name, COALESCE(location, ''), is_online, hide_exact_location, is_business
		FROM profiles
		WHERE id <> $1
		ORDER BY is_online DESC, last_seen DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Name, &sm.RawLocation, &sm.Online, &sm.HideExact, &sm.Business); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, sm)
	}

	return summaries, rows.Err()
}

func (s *PostgresStore) GetDetails(ctx context.Context, ids []string) ([]Detail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, bio, age, gender, interests, avatar_ref
		FROM profiles
		WHERE id = ANY($1)
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query details: %w", err)
	}
	defer rows.Close()

	var details []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.Bio, &d.Age, &d.Gender, pq.Array(&d.Interests), &d.AvatarRef); err != nil {
			return nil, fmt.Errorf("failed to scan detail: %w", err)
		}
		details = append(details, d)
	}

	return details, rows.Err()
}

func (s *PostgresStore) UpdateLocation(ctx context.Context, id string, coord geo.Coordinate) error {
	query := `
		UPDATE profiles
		SET location = $2, geohash = $3, last_seen = NOW()
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query, id,
		geo.FormatForStorage(coord),
		geohash.EncodeWithPrecision(coord.Lat, coord.Lng, geohashPrecision),
	)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}

	return checkAffected(res)
}

func (s *PostgresStore) UpdateOnlineStatus(ctx context.Context, id string, online bool) error {
	query := `
		UPDATE profiles
		SET is_online = $2, last_seen = NOW()
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query, id, online)
	if err != nil {
		return fmt.Errorf("failed to update online status: %w", err)
	}

	return checkAffected(res)
}

func (s *PostgresStore) GetPrivacy(ctx context.Context, id string) (privacy.Settings, error) {
	query := `
		SELECT manual_location, hide_exact_location
		FROM profiles
		WHERE id = $1
	`

	var settings privacy.Settings
	err := s.db.QueryRowContext(ctx, query, id).Scan(&settings.ManualLocation, &settings.HideExactLocation)
	if err == sql.ErrNoRows {
		return privacy.Settings{}, apperrors.ErrProfileNotFound
	}
	if err != nil {
		return privacy.Settings{}, fmt.Errorf("failed to get privacy settings: %w", err)
	}

	return settings, nil
}

func (s *PostgresStore) UpdatePrivacy(ctx context.Context, id string, settings privacy.Settings) error {
	query := `
		UPDATE profiles
		SET manual_location = $2, hide_exact_location = $3
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query, id, settings.ManualLocation, settings.Enabled())
	if err != nil {
		return fmt.Errorf("failed to update privacy settings: %w", err)
	}

	return checkAffected(res)
}

func (s *PostgresStore) FriendRequestsFor(ctx context.Context, id string) ([]FriendRequest, error) {
	query := `
		SELECT sender_id, receiver_id, status
		FROM friend_requests
		WHERE sender_id = $1 OR receiver_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query friend requests: %w", err)
	}
	defer rows.Close()

	var requests []FriendRequest
	for rows.Next() {
		var fr FriendRequest
		if err := rows.Scan(&fr.SenderID, &fr.ReceiverID, &fr.Status); err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		requests = append(requests, fr)
	}

	return requests, rows.Err()
}

func (s *PostgresStore) RecentChatPartners(ctx context.Context, id string, limit int) ([]ChatPartner, error) {
	query := `
		SELECT p.id, p.name, p.is_online, MAX(m.created_at) AS last_at
		FROM chat_messages m
		JOIN profiles p
		  ON p.id = CASE WHEN m.sender_id = $1 THEN m.receiver_id ELSE m.sender_id END
		WHERE m.sender_id = $1 OR m.receiver_id = $1
		GROUP BY p.id, p.name, p.is_online
		ORDER BY last_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat partners: %w", err)
	}
	defer rows.Close()

	var partners []ChatPartner
	for rows.Next() {
		var cp ChatPartner
		if err := rows.Scan(&cp.ID, &cp.Name, &cp.Online, &cp.LastMessageAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat partner: %w", err)
		}
		partners = append(partners, cp)
	}

	return partners, rows.Err()
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return apperrors.ErrProfileNotFound
	}
	return nil
}
