// ABOUTME: Content-addressed local object store for metadata trees
// ABOUTME: bbolt-backed objects plus the two top-level version indexes

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	bboltdb "go.etcd.io/bbolt"

	"github.com/nainya/metatree/pkg/metapath"
	"github.com/nainya/metatree/pkg/model"
)

var (
	// ErrNoMetadataStore indicates that a location holds no metadata store
	ErrNoMetadataStore = errors.New("store: no metadata store found")

	// ErrObjectNotFound indicates a missing object reference
	ErrObjectNotFound = errors.New("store: object not found")
)

const (
	// storeDirName is the store directory below a dataset root.
	storeDirName = ".metatree"

	// storeDBName is the database file inside the store directory.
	storeDBName = "metadata.db"

	// objectsBucketName holds content-addressed object blobs.
	objectsBucketName = "objects"

	// treeVersionsBucketName holds the tree version list entries.
	treeVersionsBucketName = "treeversions"

	// uuidsBucketName holds per-dataset version lists keyed by UUID.
	uuidsBucketName = "uuids"
)

// IsRemote reports whether a store location names a remote store rather
// than a local directory. Remote locations affect path rendering only.
func IsRemote(location string) bool {
	return strings.Contains(location, "://")
}

// LocalStore is a bbolt-backed content-addressed object store rooted in a
// dataset directory.
type LocalStore struct {
	db       *bboltdb.DB
	location string
}

// Exists reports whether a metadata store is present at the location.
func Exists(location string) bool {
	_, err := os.Stat(filepath.Join(location, storeDirName, storeDBName))
	return err == nil
}

// Open opens the store at the location, creating it if necessary.
func Open(location string) (*LocalStore, error) {
	dir := filepath.Join(location, storeDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensuring store directory: %w", err)
	}

	db, err := bboltdb.Open(
		filepath.Join(dir, storeDBName), 0o644,
		&bboltdb.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening metadata db: %w", err)
	}

	err = db.Update(func(tx *bboltdb.Tx) error {
		for _, name := range []string{
			objectsBucketName, treeVersionsBucketName, uuidsBucketName,
		} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &LocalStore{db: db, location: location}, nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Location returns the dataset directory the store is rooted in.
func (s *LocalStore) Location() string {
	return s.location
}

// GetObject reads the blob stored under a content-address.
func (s *LocalStore) GetObject(ref model.Reference) ([]byte, error) {
	var blob []byte
	err := s.db.View(func(tx *bboltdb.Tx) error {
		value := tx.Bucket([]byte(objectsBucketName)).Get([]byte(ref))
		if value == nil {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, ref)
		}
		blob = append([]byte(nil), value...)
		return nil
	})
	return blob, err
}

// PutObject stores a blob and returns its content-address. Storing the
// same blob twice yields the same reference.
func (s *LocalStore) PutObject(blob []byte) (model.Reference, error) {
	digest := sha256.Sum256(blob)
	ref := model.Reference(hex.EncodeToString(digest[:]))
	err := s.db.Update(func(tx *bboltdb.Tx) error {
		return tx.Bucket([]byte(objectsBucketName)).Put([]byte(ref), blob)
	})
	if err != nil {
		return "", fmt.Errorf("storing object: %w", err)
	}
	return ref, nil
}

type treeVersionEntry struct {
	TimeStamp float64         `json:"time_stamp"`
	TreeRef   model.Reference `json:"tree_reference"`
}

type versionedElementEntry struct {
	TimeStamp   float64         `json:"time_stamp"`
	DatasetPath string          `json:"dataset_path"`
	RecordRef   model.Reference `json:"record_reference"`
}

type versionListEntry struct {
	Versions map[string]versionedElementEntry `json:"versions"`
}

// SaveTreeVersion records a persisted dataset tree in the tree version
// list index.
func (s *LocalStore) SaveTreeVersion(
	version string, timeStamp float64, treeRef model.Reference,
) error {
	return s.db.Update(func(tx *bboltdb.Tx) error {
		return putJSON(tx, treeVersionsBucketName, version,
			treeVersionEntry{TimeStamp: timeStamp, TreeRef: treeRef})
	})
}

// SaveUUIDEntry records a persisted root record in the UUID index.
func (s *LocalStore) SaveUUIDEntry(
	id uuid.UUID,
	version string,
	timeStamp float64,
	datasetPath metapath.Path,
	recordRef model.Reference,
) error {
	return s.db.Update(func(tx *bboltdb.Tx) error {
		bucket := tx.Bucket([]byte(uuidsBucketName))
		list := versionListEntry{Versions: map[string]versionedElementEntry{}}
		if existing := bucket.Get([]byte(id.String())); existing != nil {
			if err := json.Unmarshal(existing, &list); err != nil {
				return fmt.Errorf("decoding version list for %s: %w", id, err)
			}
		}
		list.Versions[version] = versionedElementEntry{
			TimeStamp:   timeStamp,
			DatasetPath: datasetPath.String(),
			RecordRef:   recordRef,
		}
		return putJSON(tx, uuidsBucketName, id.String(), list)
	})
}

// TreeVersionList loads the tree version index. Trees are returned as
// unmapped shells backed by this store.
func (s *LocalStore) TreeVersionList() (*model.TreeVersionList, error) {
	list := model.NewTreeVersionList()
	err := s.db.View(func(tx *bboltdb.Tx) error {
		return tx.Bucket([]byte(treeVersionsBucketName)).ForEach(
			func(key, value []byte) error {
				var entry treeVersionEntry
				if err := json.Unmarshal(value, &entry); err != nil {
					return fmt.Errorf(
						"decoding tree version %q: %w", string(key), err)
				}
				list.SetDatasetTree(
					string(key),
					entry.TimeStamp,
					model.MTreeNodeFromRef(s, entry.TreeRef))
				return nil
			})
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UUIDSet loads the UUID index. Root records are returned as unmapped
// shells backed by this store.
func (s *LocalStore) UUIDSet() (*model.UUIDSet, error) {
	set := model.NewUUIDSet()
	err := s.db.View(func(tx *bboltdb.Tx) error {
		return tx.Bucket([]byte(uuidsBucketName)).ForEach(
			func(key, value []byte) error {
				id, err := uuid.Parse(string(key))
				if err != nil {
					return fmt.Errorf(
						"decoding UUID index key %q: %w", string(key), err)
				}
				var entry versionListEntry
				if err := json.Unmarshal(value, &entry); err != nil {
					return fmt.Errorf(
						"decoding version list for %s: %w", id, err)
				}
				list := model.NewVersionList()
				for version, element := range entry.Versions {
					list.SetVersionedElement(
						version,
						element.TimeStamp,
						metapath.New(element.DatasetPath),
						model.RootRecordFromRef(s, element.RecordRef))
				}
				set.SetVersionList(id, list)
				return nil
			})
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// TopLevelObjects opens the store at a location and loads both top-level
// index objects. Returns ErrNoMetadataStore when the location holds no
// store; both indexes are required for valid metadata.
func TopLevelObjects(location string) (
	*model.TreeVersionList, *model.UUIDSet, *LocalStore, error,
) {
	if !Exists(location) {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrNoMetadataStore, location)
	}
	s, err := Open(location)
	if err != nil {
		return nil, nil, nil, err
	}
	treeVersionList, err := s.TreeVersionList()
	if err != nil {
		s.Close()
		return nil, nil, nil, err
	}
	uuidSet, err := s.UUIDSet()
	if err != nil {
		s.Close()
		return nil, nil, nil, err
	}
	return treeVersionList, uuidSet, s, nil
}

func putJSON(tx *bboltdb.Tx, bucketName, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s entry %q: %w", bucketName, key, err)
	}
	return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
}
