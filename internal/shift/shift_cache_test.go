package shift_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/msdp-platform/msdp-flexstaff/internal/shift"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	ctx := context.Background()
	resp := shift.ShiftResponse{ID: "s-1", Reference: "SHF-000001", Status: shift.StatusOpen, FilledPositions: 1}
	data, _ := json.Marshal(resp)

	t.Run("hit", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet(shift.DetailKey("s-1")).SetVal(string(data))

		got, ok := shift.NewCache(rdb).Get(ctx, "s-1")
		assert.True(t, ok)
		assert.Equal(t, resp, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss and redis error both miss", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet(shift.DetailKey("s-1")).RedisNil()
		mock.ExpectGet(shift.DetailKey("s-2")).SetErr(errors.New("conn refused"))

		c := shift.NewCache(rdb)
		_, ok := c.Get(ctx, "s-1")
		assert.False(t, ok)
		_, ok = c.Get(ctx, "s-2")
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set and invalidate", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectSet(shift.DetailKey("s-1"), data, shift.DetailTTL).SetVal("OK")
		mock.ExpectDel(shift.DetailKey("s-1")).SetVal(1)

		c := shift.NewCache(rdb)
		c.Set(ctx, resp)
		c.Invalidate(ctx, "s-1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil cache is a no-op", func(t *testing.T) {
		var c *shift.Cache
		_, ok := c.Get(ctx, "s-1")
		assert.False(t, ok)
		c.Set(ctx, resp)
		c.Invalidate(ctx, "s-1")
	})
}
