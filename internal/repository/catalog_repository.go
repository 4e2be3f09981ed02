package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hold-a-spot/internal/model"
)

// CatalogRepo serves the read-mostly reference data: sports and the
// facilities that belong to them.  List queries are cached in Redis with a
// short TTL since this data changes rarely and backs every calendar
// render; when no Redis client is configured the repo reads straight from
// MySQL.  Cache failures are swallowed, the database stays authoritative.
type CatalogRepo struct {
	DB    *sql.DB
	Cache *redis.Client // nil disables caching
	TTL   time.Duration
}

// NewCatalogRepo returns a CatalogRepo.  cache may be nil.
func NewCatalogRepo(db *sql.DB, cache *redis.Client, ttl time.Duration) *CatalogRepo {
	return &CatalogRepo{DB: db, Cache: cache, TTL: ttl}
}

// FacilityFilter narrows ListFacilities.  Zero values mean "no filter".
type FacilityFilter struct {
	Type    string // 'court' or 'bay'
	SportID string
	Search  string // substring match on facility name
}

func (f FacilityFilter) cacheKey() string {
	return fmt.Sprintf("catalog:facilities:%s:%s:%s", f.Type, f.SportID, strings.ToLower(f.Search))
}

// getCached unmarshals a cached JSON entry into dest, reporting whether a
// usable entry was found.
func (r *CatalogRepo) getCached(ctx context.Context, key string, dest any) bool {
	if r.Cache == nil {
		return false
	}
	raw, err := r.Cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// putCached stores val as JSON under key, best-effort.
func (r *CatalogRepo) putCached(ctx context.Context, key string, val any) {
	if r.Cache == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = r.Cache.Set(ctx, key, raw, r.TTL).Err()
}

// ListSports returns all sports ordered by name.
func (r *CatalogRepo) ListSports(ctx context.Context) ([]model.Sport, error) {
	const key = "catalog:sports"
	var cached []model.Sport
	if r.getCached(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, is_active, max_booking_hours, slot_duration_minutes, created_at
		 FROM sports ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sports := make([]model.Sport, 0)
	for rows.Next() {
		var s model.Sport
		if err := rows.Scan(&s.ID, &s.Name, &s.IsActive, &s.MaxBookingHours, &s.SlotDurationMinutes, &s.CreatedAt); err != nil {
			return nil, err
		}
		sports = append(sports, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.putCached(ctx, key, sports)
	return sports, nil
}

const facilityWithSportCols = `f.id, f.name, f.sport_id, f.type, f.is_active, f.created_at,
	   s.id, s.name, s.is_active, s.max_booking_hours, s.slot_duration_minutes, s.created_at`

func scanFacilityWithSport(scan func(...any) error) (model.FacilityWithSport, error) {
	var fw model.FacilityWithSport
	err := scan(
		&fw.ID, &fw.Name, &fw.SportID, &fw.Type, &fw.IsActive, &fw.CreatedAt,
		&fw.Sport.ID, &fw.Sport.Name, &fw.Sport.IsActive, &fw.Sport.MaxBookingHours,
		&fw.Sport.SlotDurationMinutes, &fw.Sport.CreatedAt,
	)
	return fw, err
}

// ListFacilities returns active facilities with their sport settings,
// optionally narrowed by type, sport and a name search.  Courts sort before
// bays, then by name, matching the calendar's display order.
func (r *CatalogRepo) ListFacilities(ctx context.Context, filter FacilityFilter) ([]model.FacilityWithSport, error) {
	key := filter.cacheKey()
	var cached []model.FacilityWithSport
	if r.getCached(ctx, key, &cached) {
		return cached, nil
	}

	q := `SELECT ` + facilityWithSportCols + `
		  FROM facilities f
		  JOIN sports s ON s.id = f.sport_id
		  WHERE f.is_active = TRUE`
	args := make([]any, 0, 3)
	if filter.Type != "" {
		q += ` AND f.type = ?`
		args = append(args, filter.Type)
	}
	if filter.SportID != "" {
		q += ` AND f.sport_id = ?`
		args = append(args, filter.SportID)
	}
	if filter.Search != "" {
		q += ` AND f.name LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}
	q += ` ORDER BY f.type, f.name`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	facilities := make([]model.FacilityWithSport, 0)
	for rows.Next() {
		fw, err := scanFacilityWithSport(rows.Scan)
		if err != nil {
			return nil, err
		}
		facilities = append(facilities, fw)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.putCached(ctx, key, facilities)
	return facilities, nil
}

// GetFacility fetches a single active facility with its sport settings.
// Uncached: it sits on the booking path, which must see fresh data.
func (r *CatalogRepo) GetFacility(ctx context.Context, id string) (model.FacilityWithSport, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+facilityWithSportCols+`
		 FROM facilities f
		 JOIN sports s ON s.id = f.sport_id
		 WHERE f.id = ? AND f.is_active = TRUE LIMIT 1`, id)
	fw, err := scanFacilityWithSport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return fw, ErrNotFound
	}
	return fw, err
}
