package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	testingpkg "github.com/aristath/donorsync/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr map[string]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, deleteErr: map[string]error{}}
}

func (m *memoryStore) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for key, data := range m.objects {
		out = append(out, ObjectInfo{Key: key, Size: int64(len(data))})
	}
	return out, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newTestBackupService(t *testing.T, store ObjectStore, retention int) *BackupService {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "donations")
	t.Cleanup(cleanup)
	_, err := db.Conn().Exec("INSERT INTO donors (email, persona_id, updated_at) VALUES ('a@b.c', '7', 0)")
	require.NoError(t, err)
	return NewBackupService(store, db, t.TempDir(), retention, zerolog.Nop())
}

func TestCreateAndUploadBackup(t *testing.T) {
	store := newMemoryStore()
	svc := newTestBackupService(t, store, 14)
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	key, err := svc.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "donorsync-backup-2026-03-04-050607.tar.gz", key)

	gz, err := gzip.NewReader(bytes.NewReader(store.objects[key]))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = data
	}

	require.Contains(t, files, "donations.db")
	require.Contains(t, files, metadataFile)

	var meta BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFile], &meta))
	assert.Equal(t, "donations", meta.Database)
	assert.Equal(t, int64(len(files["donations.db"])), meta.SizeBytes)
	assert.Contains(t, meta.Checksum, "sha256:")
}

func TestListBackups_SortsAndSkipsForeignKeys(t *testing.T) {
	store := newMemoryStore()
	store.objects["donorsync-backup-2026-01-01-030000.tar.gz"] = []byte("a")
	store.objects["donorsync-backup-2026-01-03-030000.tar.gz"] = []byte("bb")
	store.objects["donorsync-backup-garbage.tar.gz"] = []byte("c")
	store.objects["donorsync-backup-2026-01-02-030000.zip"] = []byte("d")

	svc := newTestBackupService(t, store, 14)
	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "donorsync-backup-2026-01-03-030000.tar.gz", backups[0].Key)
	assert.Equal(t, int64(2), backups[0].SizeBytes)
}

func TestRotateOldBackups_KeepsNewest(t *testing.T) {
	store := newMemoryStore()
	for day := 1; day <= 6; day++ {
		key := backupPrefix + time.Date(2026, 1, day, 3, 0, 0, 0, time.UTC).Format(backupTimestamp) + backupSuffix
		store.objects[key] = []byte("x")
	}

	svc := newTestBackupService(t, store, 4)
	require.NoError(t, svc.RotateOldBackups(context.Background()))

	assert.Equal(t, []string{
		"donorsync-backup-2026-01-03-030000.tar.gz",
		"donorsync-backup-2026-01-04-030000.tar.gz",
		"donorsync-backup-2026-01-05-030000.tar.gz",
		"donorsync-backup-2026-01-06-030000.tar.gz",
	}, store.keys())
}

func TestRotateOldBackups_MinimumRetentionAndDeleteFailure(t *testing.T) {
	store := newMemoryStore()
	for day := 1; day <= 5; day++ {
		key := backupPrefix + time.Date(2026, 1, day, 3, 0, 0, 0, time.UTC).Format(backupTimestamp) + backupSuffix
		store.objects[key] = []byte("x")
	}
	store.deleteErr["donorsync-backup-2026-01-01-030000.tar.gz"] = errors.New("denied")

	svc := newTestBackupService(t, store, 1) // raised to 3
	require.NoError(t, svc.RotateOldBackups(context.Background()))

	keys := store.keys()
	assert.Len(t, keys, 4)
	assert.Contains(t, keys, "donorsync-backup-2026-01-01-030000.tar.gz")
	assert.NotContains(t, keys, "donorsync-backup-2026-01-02-030000.tar.gz")
}
