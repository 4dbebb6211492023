// Adapted for Tessera
// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package backend

import (
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/tesserachain/tessera/store"
)

var logger *log.Entry = log.WithFields(log.Fields{"prefix": "store"})

// OpenFileLimit caps the number of files LevelDB keeps open.
var OpenFileLimit = 64

// LDBDatabase is a persistent key/value store backed by LevelDB.
type LDBDatabase struct {
	fn string      // filename for reporting
	db *leveldb.DB // LevelDB instance

	getTimer   metrics.Timer // Timer for measuring the database get request counts and latencies
	putTimer   metrics.Timer // Timer for measuring the database put request counts and latencies
	delTimer   metrics.Timer // Timer for measuring the database delete request counts and latencies
	missMeter  metrics.Meter // Meter for measuring the missed database get requests
	readMeter  metrics.Meter // Meter for measuring the database get request data usage
	writeMeter metrics.Meter // Meter for measuring the database put request data usage

	quitLock sync.Mutex // Mutex protecting the quit channel access
	closed   bool
}

// NewLDBDatabase returns a LevelDB wrapped object.
func NewLDBDatabase(file string, cache int, handles int) (*LDBDatabase, error) {
	// Ensure we have some minimal caching and file guarantees
	if cache < 16 {
		cache = 16
	}
	if handles < 16 {
		handles = 16
	}
	logger.Infof("Allocated cache and file handles, cache: %v, handles: %v", cache, handles)

	// Open the db and recover any potential corruptions
	db, err := leveldb.OpenFile(file, &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
	})
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}

	ldb := &LDBDatabase{
		fn: file,
		db: db,

		getTimer:   metrics.GetOrRegisterTimer("db/gets", nil),
		putTimer:   metrics.GetOrRegisterTimer("db/puts", nil),
		delTimer:   metrics.GetOrRegisterTimer("db/dels", nil),
		missMeter:  metrics.GetOrRegisterMeter("db/misses", nil),
		readMeter:  metrics.GetOrRegisterMeter("db/reads", nil),
		writeMeter: metrics.GetOrRegisterMeter("db/writes", nil),
	}
	return ldb, nil
}

// Path returns the path to the database directory.
func (db *LDBDatabase) Path() string {
	return db.fn
}

// Put puts the given key / value to the database.
func (db *LDBDatabase) Put(key []byte, value []byte) error {
	start := time.Now()
	defer db.putTimer.UpdateSince(start)
	db.writeMeter.Mark(int64(len(value)))
	return db.db.Put(key, value, nil)
}

func (db *LDBDatabase) Has(key []byte) (bool, error) {
	return db.db.Has(key, nil)
}

// Get returns the given key if it's present.
func (db *LDBDatabase) Get(key []byte) ([]byte, error) {
	start := time.Now()
	defer db.getTimer.UpdateSince(start)
	dat, err := db.db.Get(key, nil)
	if err != nil {
		db.missMeter.Mark(1)
		if err == leveldb.ErrNotFound {
			return nil, store.ErrKeyNotFound
		}
		return nil, err
	}
	db.readMeter.Mark(int64(len(dat)))
	return dat, nil
}

// Delete deletes the key from the database.
func (db *LDBDatabase) Delete(key []byte) error {
	start := time.Now()
	defer db.delTimer.UpdateSince(start)
	err := db.db.Delete(key, nil)
	if err == leveldb.ErrNotFound {
		return store.ErrKeyNotFound
	}
	return err
}

// Close flushes and closes the underlying LevelDB instance.
func (db *LDBDatabase) Close() {
	db.quitLock.Lock()
	defer db.quitLock.Unlock()

	if db.closed {
		return
	}
	db.closed = true

	err := db.db.Close()
	if err == nil {
		logger.Info("Database closed")
	} else {
		logger.Errorf("Failed to close database: %v", err)
	}
}

// LDB returns the underlying LevelDB instance.
func (db *LDBDatabase) LDB() *leveldb.DB {
	return db.db
}
