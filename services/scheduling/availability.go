package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bookingRepo "bookline/database/repository/booking"
	shopRepo "bookline/database/repository/shop"
	"bookline/models"
	"bookline/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AvailabilityEngine computes the open intervals a service can be booked
// into for a given date, per qualified specialist. It intersects shop hours,
// the service's weekday rule, and each specialist's working hours, then
// subtracts that specialist's live bookings.
type AvailabilityEngine struct {
	Shops    shopRepo.ShopRepository
	Bookings bookingRepo.BookingRepository

	// Cache is optional; when set, per service/date snapshots are held under
	// a short TTL and invalidated on every reservation.
	Cache    *redis.Client
	CacheTTL time.Duration
}

// AvailabilityFor returns the ordered, non-overlapping open intervals for the
// service on the given date, tagged by specialist. A closed shop or a fully
// booked day yields an empty result, not an error; a service no specialist is
// qualified for yields ErrNoQualifiedSpecialist.
func (e *AvailabilityEngine) AvailabilityFor(ctx context.Context, serviceID string, date time.Time) ([]models.SpecialistAvailability, error) {
	logger := utils.GetLogger()

	if cached, ok := e.cachedAvailability(ctx, serviceID, date); ok {
		return cached, nil
	}

	svc, err := e.Shops.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}
	shop, err := e.Shops.GetShop(ctx, svc.ShopID)
	if err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}

	// Closed day short-circuits before any further constraint is evaluated.
	window, open := shop.WindowFor(date.Weekday())
	if !open {
		return nil, nil
	}
	shopInterval, ok := window.Interval(date)
	if !ok {
		return nil, nil
	}

	specialists, err := e.Shops.GetSpecialistsForService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}
	if len(specialists) == 0 {
		return nil, ErrNoQualifiedSpecialist
	}

	// Service rule narrows the shop window; absence means identity.
	base := shopInterval
	rule, err := e.Shops.GetServiceRule(ctx, serviceID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}
	if rule != nil {
		ruleInterval, ok := rule.Interval(date)
		if !ok {
			return nil, nil
		}
		base, ok = Intersect(base, ruleInterval)
		if !ok {
			return nil, nil
		}
	}

	dateStr := date.Format("2006-01-02")
	var result []models.SpecialistAvailability
	for _, sp := range specialists {
		spWindow, working := sp.WindowFor(date.Weekday())
		if !working {
			continue
		}
		spInterval, ok := spWindow.Interval(date)
		if !ok {
			continue
		}
		// Specialists with no overlap are dropped entirely rather than
		// contributing empty interval sets.
		overlap, ok := Intersect(base, spInterval)
		if !ok {
			continue
		}

		bookings, err := e.Bookings.FindLiveBySpecialistDate(ctx, sp.ID, dateStr)
		if err != nil {
			logger.Error("availability: failed to load bookings",
				zap.String("specialistID", sp.ID), zap.String("date", dateStr), zap.Error(err))
			return nil, fmt.Errorf("availability: %w", err)
		}
		busy := make([]models.TimeInterval, 0, len(bookings))
		for _, b := range bookings {
			busy = append(busy, b.Interval)
		}

		open := SubtractAll([]models.TimeInterval{overlap}, busy)
		if len(open) == 0 {
			continue
		}
		result = append(result, models.SpecialistAvailability{
			SpecialistID: sp.ID,
			Open:         open,
		})
	}

	// Ascending specialist ID keeps downstream slot generation deterministic.
	sort.Slice(result, func(i, j int) bool {
		return result[i].SpecialistID < result[j].SpecialistID
	})

	e.storeAvailability(ctx, serviceID, date, result)
	return result, nil
}

func availabilityCacheKey(serviceID string, date time.Time) string {
	return fmt.Sprintf("availability:%s:%s", serviceID, date.Format("2006-01-02"))
}

func (e *AvailabilityEngine) cachedAvailability(ctx context.Context, serviceID string, date time.Time) ([]models.SpecialistAvailability, bool) {
	if e.Cache == nil {
		return nil, false
	}
	raw, err := e.Cache.Get(ctx, availabilityCacheKey(serviceID, date)).Result()
	if err != nil {
		return nil, false
	}
	var snapshot []models.SpecialistAvailability
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, false
	}
	return snapshot, true
}

func (e *AvailabilityEngine) storeAvailability(ctx context.Context, serviceID string, date time.Time, snapshot []models.SpecialistAvailability) {
	if e.Cache == nil || snapshot == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	ttl := e.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if err := e.Cache.Set(ctx, availabilityCacheKey(serviceID, date), raw, ttl).Err(); err != nil {
		utils.GetLogger().Warn("availability: cache store failed", zap.Error(err))
	}
}

// InvalidateAvailability drops the cached snapshot for a service/date. Called
// by the reservation gate after any successful claim or release.
func (e *AvailabilityEngine) InvalidateAvailability(ctx context.Context, serviceID string, date time.Time) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.Del(ctx, availabilityCacheKey(serviceID, date)).Err(); err != nil {
		utils.GetLogger().Warn("availability: cache invalidation failed", zap.Error(err))
	}
}
