package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"bookingclient/internal/models"
)

// CreateBooking books one slot.
func (c *Client) CreateBooking(ctx context.Context, details models.BookingDetails) (*models.BookingRecord, error) {
	var out models.BookingRecord
	if err := c.doPost(ctx, "/facilities/bookings", "create_booking", details, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMyBookings returns one page of the current user's bookings.
func (c *Client) ListMyBookings(ctx context.Context, q models.BookingQuery) (*models.BookingPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.SortBy != "" {
		params.Set("sortBy", q.SortBy)
	}
	if q.SortDirection != "" {
		params.Set("sortDirection", string(q.SortDirection))
	}

	var out models.BookingPage
	if err := c.doGet(ctx, "/facilities/bookings/my?"+params.Encode(), "list_bookings", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelBooking cancels a booking by id.
func (c *Client) CancelBooking(ctx context.Context, id int64) error {
	return c.doDelete(ctx, fmt.Sprintf("/facilities/bookings/%d", id), "cancel_booking")
}
