package properties

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"stayloft-backend/internal/application/notify"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/apperr"
	"stayloft-backend/internal/pkg/geo"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	defaultRadiusKm = 10.0
)

// SearchQuery filters the public listing search. Type is required.
type SearchQuery struct {
	Type      string
	Page      int
	Limit     int
	MinPrice  *float64
	MaxPrice  *float64
	City      string
	Amenities []string
}

type SearchResult struct {
	Properties  []domain.Property `json:"properties"`
	Total       int64             `json:"total"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
}

// likeEscaper makes LIKE wildcards in user input match literally under ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func activeRooms(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true).Order("position ASC").Order("created_at ASC")
}

func (q SearchQuery) normalize() (SearchQuery, domain.PropertyType, error) {
	pt, ok := domain.ParsePropertyType(q.Type)
	if !ok {
		return q, "", apperr.Validation("type", "must be one of FLAT, PG, HOSTEL")
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return q, "", apperr.Validation("minPrice", "must not exceed maxPrice")
	}
	amenities := make([]string, 0, len(q.Amenities))
	seen := make(map[string]bool, len(q.Amenities))
	for _, a := range q.Amenities {
		f, ok := domain.ParseFeature(a)
		if !ok {
			return q, "", apperr.Validation("amenities", "unknown amenity "+a)
		}
		if !seen[f] {
			seen[f] = true
			amenities = append(amenities, f)
		}
	}
	sort.Strings(amenities)
	q.Amenities = amenities
	q.City = strings.TrimSpace(q.City)
	return q, pt, nil
}

func (q SearchQuery) cacheParts(pt domain.PropertyType) []string {
	price := func(f *float64) string {
		if f == nil {
			return "-"
		}
		return strconv.FormatFloat(*f, 'f', -1, 64)
	}
	return []string{
		string(pt), strconv.Itoa(q.Page), strconv.Itoa(q.Limit), price(q.MinPrice), price(q.MaxPrice),
		strings.ToLower(q.City), strings.Join(q.Amenities, ","),
	}
}

// Search lists active properties of one type, newest first. Results are
// cached until the next inventory change.
func (s *Service) Search(ctx context.Context, query SearchQuery) (*SearchResult, error) {
	q, pt, err := query.normalize()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key, err := s.Cache.Key(ctx, notify.NamespaceSearch, q.cacheParts(pt)...)
	if err != nil {
		log.Warn().Err(err).Msg("search cache unavailable")
	}
	var cached SearchResult
	if raw, ok := s.Cache.Get(ctx, key); ok && json.Unmarshal(raw, &cached) == nil {
		return &cached, nil
	}

	db := s.DB.WithContext(ctx).Model(&domain.Property{}).Where("is_active = ? AND type = ?", true, pt)
	if q.MinPrice != nil || q.MaxPrice != nil {
		cond := "SELECT 1 FROM rooms WHERE rooms.property_id = properties.id AND rooms.is_active = ?"
		args := []interface{}{true}
		if q.MinPrice != nil {
			cond += " AND rooms.price >= ?"
			args = append(args, *q.MinPrice)
		}
		if q.MaxPrice != nil {
			cond += " AND rooms.price <= ?"
			args = append(args, *q.MaxPrice)
		}
		db = db.Where("EXISTS ("+cond+")", args...)
	}
	if q.City != "" {
		db = db.Where("LOWER(location) LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(strings.ToLower(q.City))+"%")
	}
	if len(q.Amenities) > 0 {
		db = db.Where("id IN (?)", s.DB.Model(&domain.PropertyFeature{}).
			Select("property_id").Where("feature IN ?", q.Amenities).
			Group("property_id").Having("COUNT(DISTINCT feature) = ?", len(q.Amenities)))
	}

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apperr.FromStore(ctx, "search properties", err)
	}
	result := &SearchResult{Properties: []domain.Property{}, Total: total, CurrentPage: q.Page}
	if total > 0 {
		result.TotalPages = int(math.Ceil(float64(total) / float64(q.Limit)))
	}
	// Pages past the end are empty; the offset is only computed for real pages.
	if q.Page <= result.TotalPages {
		err := db.Preload("Rooms", activeRooms).Preload("Features").
			Order("created_at DESC").Offset((q.Page - 1) * q.Limit).Limit(q.Limit).
			Find(&result.Properties).Error
		if err != nil {
			return nil, apperr.FromStore(ctx, "search properties", err)
		}
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := s.Cache.Set(ctx, key, raw); err != nil {
			log.Warn().Err(err).Msg("search cache write failed")
		}
	}
	return result, nil
}

// NearbyProperty is a search hit with its distance from the query point.
type NearbyProperty struct {
	domain.Property
	DistanceKm float64 `json:"distance"`
}

// Nearby returns active properties within radiusKm of (lat, lng), closest first.
func (s *Service) Nearby(ctx context.Context, lat, lng *float64, radiusKm float64) ([]NearbyProperty, error) {
	if lat == nil || lng == nil {
		return nil, apperr.Validation("", "Missing latitude or longitude")
	}
	if *lat < -90 || *lat > 90 {
		return nil, apperr.Validation("lat", "must be between -90 and 90")
	}
	if *lng < -180 || *lng > 180 {
		return nil, apperr.Validation("lng", "must be between -180 and 180")
	}
	if radiusKm <= 0 {
		radiusKm = defaultRadiusKm
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key, err := s.Cache.Key(ctx, notify.NamespaceNearby,
		fmt.Sprintf("%.6f", *lat), fmt.Sprintf("%.6f", *lng), fmt.Sprintf("%.3f", radiusKm))
	if err != nil {
		log.Warn().Err(err).Msg("nearby cache unavailable")
	}
	var cached []NearbyProperty
	if raw, ok := s.Cache.Get(ctx, key); ok && json.Unmarshal(raw, &cached) == nil {
		return cached, nil
	}

	box := geo.BoundingBox(*lat, *lng, radiusKm)
	lngConds := make([]string, 0, 2)
	lngArgs := make([]interface{}, 0, 4)
	for _, r := range box.LngRanges() {
		lngConds = append(lngConds, "longitude BETWEEN ? AND ?")
		lngArgs = append(lngArgs, r.Min, r.Max)
	}
	var candidates []domain.Property
	err = s.DB.WithContext(ctx).Preload("Rooms", activeRooms).Preload("Features").
		Where("is_active = ?", true).
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("("+strings.Join(lngConds, " OR ")+")", lngArgs...).
		Find(&candidates).Error
	if err != nil {
		return nil, apperr.FromStore(ctx, "nearby properties", err)
	}

	out := make([]NearbyProperty, 0, len(candidates))
	for _, p := range candidates {
		d := geo.DistanceKm(*lat, *lng, p.Latitude, p.Longitude)
		if d <= radiusKm {
			out = append(out, NearbyProperty{Property: p, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })

	if raw, err := json.Marshal(out); err == nil {
		if err := s.Cache.Set(ctx, key, raw); err != nil {
			log.Warn().Err(err).Msg("nearby cache write failed")
		}
	}
	return out, nil
}
