package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"bookingclient/internal/models"
)

// ListFacilities returns facilities, optionally filtered by a search term.
func (c *Client) ListFacilities(ctx context.Context, search string) ([]models.Facility, error) {
	path := "/facilities"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	cacheKey := "facilities:" + search

	var out []models.Facility
	if c.readCache(ctx, cacheKey, &out) {
		return out, nil
	}
	if err := c.doGet(ctx, path, "list_facilities", &out); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, out)
	return out, nil
}

// GetFacility returns one facility with its images.
func (c *Client) GetFacility(ctx context.Context, id int64) (*models.Facility, error) {
	cacheKey := fmt.Sprintf("facility:%d", id)

	var out models.Facility
	if c.readCache(ctx, cacheKey, &out) {
		return &out, nil
	}
	if err := c.doGet(ctx, fmt.Sprintf("/facilities/%d", id), "get_facility", &out); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, out)
	return &out, nil
}

// GetDailyAvailability fetches the slot grid for a facility and date (YYYY-MM-DD).
// It is never cached.
func (c *Client) GetDailyAvailability(ctx context.Context, facilityID int64, date string) (*models.AvailabilityDay, error) {
	path := fmt.Sprintf("/facilities/%d/availability/daily?date=%s", facilityID, url.QueryEscape(date))
	var out models.AvailabilityDay
	if err := c.doGet(ctx, path, "daily_availability", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, "cache:"+key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, "cache:"+key, data, c.cacheTTL).Err()
}
