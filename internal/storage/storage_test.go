package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"exchange-ledger/internal/models"
	"exchange-ledger/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSlots(t *testing.T) map[string]Slot {
	t.Helper()

	dir := t.TempDir()

	fileSlot, err := Open(KindFile, dir, "test.v1")
	require.NoError(t, err)

	sqliteSlot, err := Open(KindSQLite, filepath.Join(dir, "ledger.db"), "test.v1")
	require.NoError(t, err)
	t.Cleanup(func() { sqliteSlot.(*SQLiteSlot).Close() })

	return map[string]Slot{"file": fileSlot, "sqlite": sqliteSlot}
}

func TestSlot_ReadWrite(t *testing.T) {
	ctx := context.Background()

	for name, slot := range openSlots(t) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "test.v1", slot.Key())

			_, ok, err := slot.Read(ctx)
			require.NoError(t, err)
			assert.False(t, ok, "unwritten slot reads as absent")

			require.NoError(t, slot.Write(ctx, []byte(`[{"deal_id":"D1"}]`)))
			require.NoError(t, slot.Write(ctx, []byte(`[{"deal_id":"D2"}]`)))

			data, ok, err := slot.Read(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.JSONEq(t, `[{"deal_id":"D2"}]`, string(data), "write replaces the whole value")
		})
	}
}

func TestOpen_DefaultKeyAndUnknownKind(t *testing.T) {
	slot, err := Open(KindFile, t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultKey, slot.Key())

	_, err = Open(Kind("redis"), "", "")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestFileSlot_Path(t *testing.T) {
	dir := t.TempDir()
	slot, err := NewFileSlot(dir, "k.v2")
	require.NoError(t, err)

	require.NoError(t, slot.Write(context.Background(), []byte("[]")))

	_, err = os.Stat(filepath.Join(dir, "k.v2.json"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestDecodePartition(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantLen     int
		wantCorrupt bool
	}{
		{"empty", "", 0, false},
		{"whitespace", "  \n", 0, false},
		{"empty array", "[]", 0, false},
		{"records", `[{"deal_id":"D1","amount":10},{"deal_id":"D2"}]`, 2, false},
		{"non-object entries skipped", `[{"deal_id":"D1"}, 5, "x", null]`, 1, false},
		{"corrupt json", `[{"deal_id":`, 0, true},
		{"object payload", `{"transactions":[]}`, 0, true},
		{"scalar payload", `42`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodePartition("k", []byte(tt.data))

			assert.NotNil(t, records)
			assert.Len(t, records, tt.wantLen)
			if tt.wantCorrupt {
				require.Error(t, err)
				le, ok := errors.AsLedgerError(err)
				require.True(t, ok)
				assert.Equal(t, errors.CodeCorruptPartition, le.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodePartition_KeepsNumbersExact(t *testing.T) {
	records, err := DecodePartition("k", []byte(`[{"amount":1234.50}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, json.Number("1234.50"), records[0]["amount"])
}

func TestEncodePartition_RoundTrip(t *testing.T) {
	in := []models.RawRecord{
		{"deal_id": "D1", "amount": json.Number("10.5")},
		{"deal_id": "D2", "payable": nil},
	}

	data, err := EncodePartition(in)
	require.NoError(t, err)

	out, err := DecodePartition("k", data)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "D1", out[0]["deal_id"])
	assert.Equal(t, json.Number("10.5"), out[0]["amount"])
	assert.Nil(t, out[1]["payable"])

	empty, err := EncodePartition(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
