package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gpufanctl/gpufanctl/internal/ui"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketMeasurements = "measurements"

	// fixed-width timestamp format, unlike RFC3339Nano it never trims
	// trailing zeros, so lexicographic key order stays chronological
	measurementKeyFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// Measurement is one recorded control loop observation for a single GPU.
type Measurement struct {
	Time        time.Time `json:"time"`
	Temperature int       `json:"temperature"`
	FanSpeed    int       `json:"fanSpeed"`
	Output      int       `json:"output"`
}

// Persistence records measurement history for diagnostics. Controller state
// is deliberately not persisted, a restart re-seeds it from a fresh sensor read.
type Persistence interface {
	Init() error

	SaveMeasurement(gpuIndex int, measurement Measurement) error
	LoadMeasurements(gpuIndex int, limit int) ([]Measurement, error)
	DeleteMeasurements(gpuIndex int) error
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	p := &persistence{
		dbPath: dbPath,
	}
	return p
}

func (p persistence) Init() (err error) {
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (p persistence) SaveMeasurement(gpuIndex int, measurement Measurement) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(measurement)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(BucketMeasurements))
		if err != nil {
			return err
		}
		bucket, err := root.CreateBucketIfNotExists(gpuBucketKey(gpuIndex))
		if err != nil {
			return err
		}
		key := []byte(measurement.Time.UTC().Format(measurementKeyFormat))
		return bucket.Put(key, data)
	})
}

// LoadMeasurements returns up to limit of the most recent measurements of the
// given GPU, oldest first. A limit <= 0 returns everything.
func (p persistence) LoadMeasurements(gpuIndex int, limit int) (result []Measurement, err error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	err = db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(BucketMeasurements))
		if root == nil {
			return nil
		}
		bucket := root.Bucket(gpuBucketKey(gpuIndex))
		if bucket == nil {
			return nil
		}

		// fixed-width timestamp keys sort chronologically, so walking
		// backwards yields the most recent entries first
		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if limit > 0 && len(result) >= limit {
				break
			}
			var measurement Measurement
			if err := json.Unmarshal(v, &measurement); err != nil {
				return err
			}
			result = append(result, measurement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// oldest first
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

func (p persistence) DeleteMeasurements(gpuIndex int) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(BucketMeasurements))
		if root == nil {
			return nil
		}
		if root.Bucket(gpuBucketKey(gpuIndex)) == nil {
			return nil
		}
		return root.DeleteBucket(gpuBucketKey(gpuIndex))
	})
}

func gpuBucketKey(gpuIndex int) []byte {
	return []byte(fmt.Sprintf("gpu-%d", gpuIndex))
}
