package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"exchange-ledger/internal/intake"
	"exchange-ledger/internal/ledger"
	"exchange-ledger/internal/models"
	"exchange-ledger/internal/storage"
	"exchange-ledger/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `date,customer,type,currency,target,amt,rate,deal_id
2025-12-05,Acme Corp,inflow,USD,,"1,000",,

2025-12-05,Acme Corp,conversion,RMB,USD,50,7,ACME-051225-001
2025-12-06,Beta LLC,outflow,,,abc,,
`

func newService(t *testing.T) (*intake.Service, *ledger.Store) {
	t.Helper()
	slot, err := storage.NewFileSlot(t.TempDir(), storage.DefaultKey)
	require.NoError(t, err)
	store := ledger.NewStore(nil, slot, nil)
	return intake.NewService(store, nil, nil), store
}

func TestReader_Next(t *testing.T) {
	reader, err := NewReader(strings.NewReader(sampleCSV), nil)
	require.NoError(t, err)

	ctx := context.Background()

	row, err := reader.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Line)
	assert.Equal(t, "1,000", row.Record["amt"])
	assert.NotContains(t, row.Record, "target", "blank cells are absent")

	row, err = reader.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, row.Line, "blank line is skipped")
	assert.Equal(t, "ACME-051225-001", row.Record["deal_id"])

	row, err = reader.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, row.Line)

	_, err = reader.Next(ctx)
	assert.Equal(t, io.EOF, err)

	assert.Equal(t, []string{"date", "customer", "type", "currency", "target", "amt", "rate", "deal_id"}, reader.Headers())
}

func TestReader_EmptyInput(t *testing.T) {
	reader, err := NewReader(strings.NewReader(""), nil)
	require.NoError(t, err)

	_, err = reader.Next(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestReader_InvalidEncoding(t *testing.T) {
	_, err := NewReader(strings.NewReader("date,customer\n2025-12-05,\xff\xfe\n"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInput))
}

func TestReader_Delimiter(t *testing.T) {
	config := DefaultReaderConfig()
	config.Delimiter = ';'

	reader, err := NewReader(strings.NewReader("\ufeffdate;amount\n2025-12-05;1.234,5\n"), config)
	require.NoError(t, err)

	row, err := reader.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-12-05", row.Record["date"], "byte order mark is stripped from the first header")
	assert.Equal(t, "1.234,5", row.Record["amount"])
}

func TestReader_Cancelled(t *testing.T) {
	reader, err := NewReader(strings.NewReader(sampleCSV), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = reader.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImporter_Import(t *testing.T) {
	svc, store := newService(t)

	reader, err := NewReader(strings.NewReader(sampleCSV), nil)
	require.NoError(t, err)

	result, err := New(svc).Import(context.Background(), reader)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Rows)
	require.Len(t, result.Imported, 2)
	require.Len(t, result.Rejected, 1)
	assert.True(t, result.HasRejections())
	assert.Equal(t, "Read 3 rows, 2 imported, 1 rejected", result.String())

	assert.Equal(t, "ACME-051225-001", result.Imported[0].DealID)
	assert.Equal(t, "1000", models.NullString(result.Imported[0].Amount))
	assert.Equal(t, "USD", result.Imported[1].TargetCurrency)
	assert.True(t, result.Imported[1].Payable.Valid, "payable is derived from the rate")

	assert.Equal(t, 5, result.Rejected[0].Line)
	assert.NotEmpty(t, result.Rejected[0].Messages)

	local := store.Local()
	require.Len(t, local, 2)
	for _, tx := range local {
		assert.Equal(t, models.SourceLocal, tx.Source)
		assert.NotEmpty(t, tx.RecordID)
	}
}

func TestImporter_DryRun(t *testing.T) {
	svc, store := newService(t)

	reader, err := NewReader(strings.NewReader(sampleCSV), nil)
	require.NoError(t, err)

	im := New(svc)
	im.DryRun = true

	result, err := im.Import(context.Background(), reader)
	require.NoError(t, err)
	assert.Len(t, result.Imported, 2)
	assert.Empty(t, store.Local(), "dry run saves nothing")
}

type failingSubmitter struct {
	calls int
}

func (f *failingSubmitter) Prepare(raw models.RawRecord) (models.Transaction, error) {
	return models.Transaction{}, nil
}

func (f *failingSubmitter) Submit(ctx context.Context, raw models.RawRecord) (models.Transaction, error) {
	f.calls++
	if f.calls > 1 {
		return models.Transaction{}, errors.DataSourceError(errors.CodeStorageWrite, "slot", fmt.Errorf("disk full"))
	}
	return models.Transaction{DealID: "X"}, nil
}

func TestImporter_StopsOnStorageFailure(t *testing.T) {
	reader, err := NewReader(strings.NewReader(sampleCSV), nil)
	require.NoError(t, err)

	submitter := &failingSubmitter{}
	result, err := New(submitter).Import(context.Background(), reader)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDataSource))
	assert.Len(t, result.Imported, 1)
	assert.Equal(t, 2, submitter.calls)
}
