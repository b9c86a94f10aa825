// Package storage persists the local ledger partition.
//
// A partition lives in a single named slot holding a JSON array of raw
// records. The slot key carries a version suffix; changing the record format
// means choosing a new key and abandoning the old slot, never migrating it.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"exchange-ledger/internal/models"
	"exchange-ledger/pkg/errors"
)

// DefaultKey is the slot key used when none is configured.
const DefaultKey = "exchange-ledger.local.v1"

// Slot is a single named durable value.
type Slot interface {
	// Key returns the slot name.
	Key() string
	// Read returns the stored bytes. ok is false when nothing was ever written.
	Read(ctx context.Context) (data []byte, ok bool, err error)
	// Write replaces the stored bytes.
	Write(ctx context.Context, data []byte) error
}

// Kind selects a Slot implementation.
type Kind string

const (
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
)

// IsValid reports whether k names a known slot implementation.
func (k Kind) IsValid() bool {
	return k == KindFile || k == KindSQLite
}

// Open creates a slot of the given kind. For KindFile path is a directory;
// for KindSQLite it is the database file.
func Open(kind Kind, path, key string) (Slot, error) {
	if key == "" {
		key = DefaultKey
	}

	switch kind {
	case KindFile:
		slot, err := NewFileSlot(path, key)
		if err != nil {
			return nil, err
		}
		return slot, nil
	case KindSQLite:
		slot, err := NewSQLiteSlot(path, key)
		if err != nil {
			return nil, err
		}
		return slot, nil
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "store", kind, nil)
	}
}

// DecodePartition parses slot bytes into raw records. Empty input is an
// empty partition. Corrupt JSON or a payload that is not an array yields an
// empty partition together with a CodeCorruptPartition error so the caller
// can surface it; callers must not treat the error as fatal.
func DecodePartition(key string, data []byte) ([]models.RawRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.RawRecord{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []interface{}
	if err := dec.Decode(&items); err != nil {
		return []models.RawRecord{}, errors.DataSourceError(errors.CodeCorruptPartition, key, err)
	}

	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		records = append(records, models.RawRecord(obj))
	}

	return records, nil
}

// EncodePartition renders raw records as the slot's JSON array.
func EncodePartition(records []models.RawRecord) ([]byte, error) {
	if records == nil {
		records = []models.RawRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode partition: %w", err)
	}
	return data, nil
}
