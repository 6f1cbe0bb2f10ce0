package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/listsync/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketLists     = []byte("lists")
	bucketMetadata  = []byte("metadata")
	bucketSyncQueue = []byte("sync_queue")

	allBuckets = [][]byte{bucketLists, bucketMetadata, bucketSyncQueue}
)

// openTimeout - сколько ждать блокировку файла базы
const openTimeout = 2 * time.Second

var _ storage.LocalStore = (*Storage)(nil)

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	// Timeout: другой процесс (например, watch) может держать файл
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// put сериализует value в JSON и сохраняет по ключу.
// Если значение не изменилось, запись пропускается.
func (s *Storage) put(bucketName []byte, key string, value any) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", bucketName, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return fmt.Errorf("%s bucket not found", bucketName)
		}

		if existing := bucket.Get([]byte(key)); existing != nil && bytes.Equal(existing, data) {
			return nil
		}

		return bucket.Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save %s record: %w", bucketName, err)
	}

	return nil
}

// get читает запись и десериализует ее в value.
// Возвращает notFound, если ключа нет.
func (s *Storage) get(bucketName []byte, key string, value any, notFound error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return notFound
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return notFound
		}

		if err := json.Unmarshal(data, value); err != nil {
			return fmt.Errorf("failed to unmarshal %s record: %w", bucketName, err)
		}
		return nil
	})
}

// forEach вызывает fn для каждой записи bucket.
func (s *Storage) forEach(bucketName []byte, fn func(v []byte) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			return fn(v)
		})
	})
}

func (s *Storage) delete(bucketName []byte, key string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s record: %w", bucketName, err)
	}

	return nil
}

// clear удаляет и пересоздает bucket
func (s *Storage) clear(bucketName []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketName)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", bucketName, err)
	}

	return nil
}
