// Package pagination implements keyset paging over (created_at, id), newest
// first. Cursors are opaque to clients and safe to place in a query string.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Params is what a list endpoint accepts from the caller.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the key of the last row a client has seen.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func EncodeCursor(cursor Cursor) string {
	raw := strconv.FormatInt(cursor.CreatedAt.UnixNano(), 36) + "." + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for an empty value.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	ts, id, ok := strings.Cut(string(decoded), ".")
	if !ok {
		return nil, ErrInvalidCursor
	}
	nanos, err := strconv.ParseInt(ts, 36, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidCursor, err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidCursor, err)
	}
	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: parsedID}, nil
}

// Query is a parsed Params ready for a repository.
type Query struct {
	After *Cursor
	Limit int
}

// Resolve parses p and normalises its limit.
func Resolve(p Params) (Query, error) {
	after, err := ParseCursor(p.Cursor)
	if err != nil {
		return Query{}, err
	}
	return Query{After: after, Limit: NormalizeLimit(p.Limit)}, nil
}

// Apply orders q newest first, skips past the cursor and fetches one row
// more than the page so Trim can tell whether another page exists.
func (pq Query) Apply(q *gorm.DB) *gorm.DB {
	if pq.After != nil {
		at := pq.After.CreatedAt
		q = q.Where("((created_at < ?) OR (created_at = ? AND id < ?))", at, at, pq.After.ID)
	}
	return q.Order("created_at DESC").Order("id DESC").Limit(pq.Limit + 1)
}

// Trim cuts rows to the page size and returns the cursor of the next page,
// or "" on the last page.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[limit-1]))
}
