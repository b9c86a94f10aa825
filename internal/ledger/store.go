// Package ledger owns the remote and local transaction partitions and the
// merged view built from them.
package ledger

import (
	"context"
	"sort"
	"sync"

	"exchange-ledger/internal/models"
	"exchange-ledger/internal/normalizer"
	"exchange-ledger/internal/remote"
	"exchange-ledger/internal/storage"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"

	"github.com/sourcegraph/conc"
)

// Store holds the remote snapshot and the locally added rows. Readers get
// copies; nothing outside the store mutates either partition.
type Store struct {
	mu     sync.RWMutex
	remote []models.Transaction
	local  []models.Transaction

	// writeMu serializes every slot read-modify-write and local reload.
	writeMu sync.Mutex

	fetcher    remote.Fetcher
	slot       storage.Slot
	normalizer *normalizer.Normalizer
	logger     logger.Logger
}

// NewStore creates an empty store. A nil fetcher leaves the remote
// partition empty; a nil normalizer uses the default alias table.
func NewStore(fetcher remote.Fetcher, slot storage.Slot, norm *normalizer.Normalizer) *Store {
	if norm == nil {
		norm = normalizer.New(nil)
	}
	return &Store{
		remote:     []models.Transaction{},
		local:      []models.Transaction{},
		fetcher:    fetcher,
		slot:       slot,
		normalizer: norm,
		logger:     logger.GetGlobalLogger().WithComponent("ledger"),
	}
}

// RefreshRemote replaces the remote partition with a fresh fetch. On
// failure the partition is emptied and the DataSourceError is returned for
// display; it is never fatal.
func (s *Store) RefreshRemote(ctx context.Context) error {
	if s.fetcher == nil {
		s.setRemote([]models.Transaction{})
		return nil
	}

	raws, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Remote dataset unavailable, continuing with an empty remote partition")
		s.setRemote([]models.Transaction{})
		return errors.WrapIfNeeded(err, errors.CategoryDataSource, errors.CodeFetchFailed, "failed to load remote dataset")
	}

	txs := s.normalizer.NormalizeAll(raws, models.SourceRemote)
	s.setRemote(txs)
	s.logger.WithField("transactions", len(txs)).Info("Remote partition loaded")
	return nil
}

// LoadLocal reloads the local partition from its slot. Unreadable or
// corrupt slots leave an empty partition and return the error for display.
func (s *Store) LoadLocal(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	raws, err := s.readSlot(ctx)
	txs := s.normalizer.NormalizeAll(raws, models.SourceLocal)
	s.setLocal(txs)

	if err != nil {
		s.logger.WithError(err).Warn("Local partition unreadable, continuing with an empty local partition")
		return err
	}
	s.logger.WithField("transactions", len(txs)).Debug("Local partition loaded")
	return nil
}

// Refresh reloads both partitions concurrently. It returns nil or an
// *errors.ErrorSummary with one diagnostic per partition that failed.
func (s *Store) Refresh(ctx context.Context) error {
	op := logger.NewOperationLogger("refresh", s.logger)

	var (
		wg   conc.WaitGroup
		mu   sync.Mutex
		errs []*errors.LedgerError
	)

	collect := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, errors.WrapIfNeeded(err, errors.CategoryDataSource, errors.CodeFetchFailed, "failed to load partition"))
	}

	wg.Go(func() { collect(s.RefreshRemote(ctx)) })
	wg.Go(func() { collect(s.LoadLocal(ctx)) })
	wg.Wait()

	op.WithField("remote", len(s.Remote())).WithField("local", len(s.Local()))
	if len(errs) == 0 {
		op.Success("Ledger refreshed")
		return nil
	}
	summary := errors.NewErrorSummary(errs)
	op.Failure(summary, "Ledger refreshed with diagnostics", true)
	return summary
}

// AppendLocal persists one record to the local partition. The slot is
// re-read in full, the record appended, and the whole array written back;
// the in-memory local partition is then replaced by what was written.
//
// A corrupt slot is treated as empty, so appending to it starts a fresh
// array. Read or write failures return a DataSourceError and leave the
// in-memory partition unchanged.
func (s *Store) AppendLocal(ctx context.Context, record models.RawRecord) (models.Transaction, error) {
	return s.Append(ctx, func() (models.RawRecord, error) {
		return record, nil
	})
}

// Append is AppendLocal with the record built by build while the store's
// write lock is held. Anything build reads from the store, such as the
// merged view for a deal id counter, cannot change until the record is
// saved. An error from build is returned as is and nothing is written.
func (s *Store) Append(ctx context.Context, build func() (models.RawRecord, error)) (models.Transaction, error) {
	if s.slot == nil {
		return models.Transaction{}, errors.ConfigurationError(errors.CodeMissingConfig, "store", nil, nil)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	record, err := build()
	if err != nil {
		return models.Transaction{}, err
	}

	raws, err := s.readSlot(ctx)
	if err != nil {
		if !isCorrupt(err) {
			return models.Transaction{}, err
		}
		s.logger.WithError(err).Warn("Local partition was corrupt, starting a new one")
	}

	raws = append(raws, record)

	data, err := storage.EncodePartition(raws)
	if err != nil {
		return models.Transaction{}, errors.DataSourceError(errors.CodeStorageWrite, s.slot.Key(), err)
	}
	if err := s.slot.Write(ctx, data); err != nil {
		return models.Transaction{}, errors.WrapIfNeeded(err, errors.CategoryDataSource, errors.CodeStorageWrite, "failed to save local partition")
	}

	txs := s.normalizer.NormalizeAll(raws, models.SourceLocal)
	s.setLocal(txs)

	saved := txs[len(txs)-1]
	s.logger.WithFields(logger.Fields{
		"deal_id":   saved.DealID,
		"record_id": saved.RecordID,
	}).Info("Transaction saved to local partition")

	return saved, nil
}

// Remote returns a copy of the remote partition.
func (s *Store) Remote() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Transaction(nil), s.remote...)
}

// Local returns a copy of the local partition.
func (s *Store) Local() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Transaction(nil), s.local...)
}

// Merged returns remote rows followed by local rows, stably sorted by
// calendar date and then deal id. Equal keys keep that concatenation order.
func (s *Store) Merged() []models.Transaction {
	s.mu.RLock()
	merged := make([]models.Transaction, 0, len(s.remote)+len(s.local))
	merged = append(merged, s.remote...)
	merged = append(merged, s.local...)
	s.mu.RUnlock()

	SortTransactions(merged)
	return merged
}

// SortTransactions stably orders txs by (date key, deal id).
func SortTransactions(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		di, dj := txs[i].DateKey(), txs[j].DateKey()
		if di != dj {
			return di < dj
		}
		return txs[i].DealID < txs[j].DealID
	})
}

func (s *Store) readSlot(ctx context.Context) ([]models.RawRecord, error) {
	if s.slot == nil {
		return []models.RawRecord{}, nil
	}

	data, ok, err := s.slot.Read(ctx)
	if err != nil {
		return []models.RawRecord{}, errors.WrapIfNeeded(err, errors.CategoryDataSource, errors.CodeStorageRead, "failed to read local partition")
	}
	if !ok {
		return []models.RawRecord{}, nil
	}

	return storage.DecodePartition(s.slot.Key(), data)
}

func (s *Store) setRemote(txs []models.Transaction) {
	s.mu.Lock()
	s.remote = txs
	s.mu.Unlock()
}

func (s *Store) setLocal(txs []models.Transaction) {
	s.mu.Lock()
	s.local = txs
	s.mu.Unlock()
}

func isCorrupt(err error) bool {
	le, ok := errors.AsLedgerError(err)
	return ok && le.Code == errors.CodeCorruptPartition
}
