package pipeline

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photovault/domain/models"
)

// fakeRecordRepo is an in-memory RecordRepository.
type fakeRecordRepo struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*models.PhotoRecord
	versions map[string]*models.Version
	entries  map[uuid.UUID][]models.SearchEntry
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{
		records:  map[uuid.UUID]*models.PhotoRecord{},
		versions: map[string]*models.Version{},
		entries:  map[uuid.UUID][]models.SearchEntry{},
	}
}

func (f *fakeRecordRepo) FindByFingerprint(_ context.Context, fp string) (*models.PhotoRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.MasterFingerprint == fp {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRecordRepo) ReserveFingerprint(_ context.Context, fp string) (*models.PhotoRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.MasterFingerprint == fp {
			return nil, false, nil
		}
	}
	record := &models.PhotoRecord{UUID: uuid.New(), MasterFingerprint: fp}
	f.records[record.UUID] = record
	copied := *record
	return &copied, true, nil
}

func (f *fakeRecordRepo) GetByID(_ context.Context, id uuid.UUID) (*models.PhotoRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeRecordRepo) List(_ context.Context, _, _ int) ([]models.PhotoRecord, int64, error) {
	return nil, 0, nil
}

func (f *fakeRecordRepo) ListPage(_ context.Context, _, _ int) ([]models.PhotoRecord, error) {
	return nil, nil
}

func (f *fakeRecordRepo) UpdateRecord(_ context.Context, record *models.PhotoRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.records[record.UUID] = &copied
	return nil
}

func (f *fakeRecordRepo) DeleteRecord(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	delete(f.entries, id)
	return nil
}

func (f *fakeRecordRepo) FindBySourceID(_ context.Context, source, nativeID string) (*models.PhotoRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.Sources != nil && r.Sources[source] == nativeID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRecordRepo) UpsertVersion(_ context.Context, version *models.Version) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *version
	f.versions[version.PhotoUUID.String()+"/"+string(version.Tag)] = &copied
	return nil
}

func (f *fakeRecordRepo) GetVersions(_ context.Context, photoUUID uuid.UUID) ([]models.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Version
	for _, v := range f.versions {
		if v.PhotoUUID == photoUUID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) ReplaceSearchEntries(_ context.Context, photoUUID uuid.UUID, entries []models.SearchEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[photoUUID] = append([]models.SearchEntry(nil), entries...)
	return nil
}

func (f *fakeRecordRepo) CountSearchEntries(_ context.Context, photoUUID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries[photoUUID])), nil
}

func (f *fakeRecordRepo) Search(_ context.Context, _ models.SearchQuery, _, _ int) ([]models.PhotoRecord, int64, error) {
	return nil, 0, nil
}

func (f *fakeRecordRepo) Stats(_ context.Context) (*models.VaultStats, error) {
	return &models.VaultStats{}, nil
}

// fakeBlobStore stores multipart uploads in memory and reports the
// digest it computed from the bytes it actually received.
type fakeBlobStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	digests      map[string]string
	parts        map[string][][]byte
	corruptHeads int
	deletes      int
	aborts       int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects: map[string][]byte{},
		digests: map[string]string{},
		parts:   map[string][][]byte{},
	}
}

func (s *fakeBlobStore) InitiateMultipart(_ context.Context, key, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uploadID := fmt.Sprintf("upload-%s-%d", key, len(s.parts))
	s.parts[uploadID] = nil
	return uploadID, nil
}

func (s *fakeBlobStore) UploadPart(_ context.Context, _, uploadID string, _ int, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts[uploadID] = append(s.parts[uploadID], append([]byte(nil), data...))
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

func (s *fakeBlobStore) CompleteMultipart(_ context.Context, key, uploadID string, _ []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outer := md5.New()
	var body []byte
	for _, part := range s.parts[uploadID] {
		sum := md5.Sum(part)
		outer.Write(sum[:])
		body = append(body, part...)
	}
	s.objects[key] = body
	s.digests[key] = fmt.Sprintf("%s-%d", hex.EncodeToString(outer.Sum(nil)), len(s.parts[uploadID]))
	delete(s.parts, uploadID)
	return nil
}

func (s *fakeBlobStore) AbortMultipart(_ context.Context, _, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.parts, uploadID)
	s.aborts++
	return nil
}

func (s *fakeBlobStore) Head(_ context.Context, key string) (*ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("not found: %s", key)
	}
	digest := s.digests[key]
	if s.corruptHeads > 0 {
		s.corruptHeads--
		digest = "deadbeef-1"
	}
	return &ObjectInfo{Size: int64(len(body)), Digest: digest}, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.digests, key)
	s.deletes++
	return nil
}

func bytesRendition(tag models.VersionTag, data []byte) Rendition {
	return Rendition{
		Tag:         tag,
		Ext:         ".jpg",
		ContentType: "image/jpeg",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestFingerprintStable(t *testing.T) {
	a, err := Fingerprint(bytes.NewReader([]byte("same content")))
	require.NoError(t, err)
	b, err := Fingerprint(bytes.NewReader([]byte("same content")))
	require.NoError(t, err)
	c, err := Fingerprint(bytes.NewReader([]byte("other content")))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestDeduperCreatesThenAttaches(t *testing.T) {
	repo := newFakeRecordRepo()
	deduper := NewDeduper(repo, nil)
	ctx := context.Background()

	first, res, err := deduper.Resolve(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, ResolutionCreated, res)

	second, res, err := deduper.Resolve(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, ResolutionAttached, res)
	assert.Equal(t, first.UUID, second.UUID)
}

// raceRepo simulates losing the reservation race: the lookup misses,
// the reservation reports the row already taken, and only then does
// the winner's row become visible.
type raceRepo struct {
	*fakeRecordRepo
	winner  *models.PhotoRecord
	lookups int
}

func (r *raceRepo) FindByFingerprint(ctx context.Context, fp string) (*models.PhotoRecord, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.winner, nil
}

func (r *raceRepo) ReserveFingerprint(_ context.Context, _ string) (*models.PhotoRecord, bool, error) {
	return nil, false, nil
}

func TestDeduperRaceLoserRetriesLookup(t *testing.T) {
	winner := &models.PhotoRecord{UUID: uuid.New(), MasterFingerprint: "fp-race"}
	repo := &raceRepo{fakeRecordRepo: newFakeRecordRepo(), winner: winner}
	deduper := NewDeduper(repo, nil)

	record, res, err := deduper.Resolve(context.Background(), "fp-race")
	require.NoError(t, err)
	assert.Equal(t, ResolutionAttached, res)
	assert.Equal(t, winner.UUID, record.UUID)
	assert.Equal(t, 2, repo.lookups)
}

func TestUploaderStoresAndVerifies(t *testing.T) {
	repo := newFakeRecordRepo()
	store := newFakeBlobStore()
	uploader := NewUploader(store, repo, 0, 3)
	record := &models.PhotoRecord{UUID: uuid.New()}

	content := []byte("jpeg bytes go here")
	version, err := uploader.Upload(context.Background(), record, bytesRendition(models.VersionOriginal, content))
	require.NoError(t, err)

	assert.Equal(t, models.VersionStatusStored, version.Status)
	assert.Equal(t, int64(len(content)), version.ByteSize)
	assert.Contains(t, version.StoragePath, record.UUID.String())
	assert.Equal(t, store.digests[version.StoragePath], version.Digest)
	assert.Equal(t, content, store.objects[version.StoragePath])
}

func TestUploaderRetriesOnDigestMismatch(t *testing.T) {
	repo := newFakeRecordRepo()
	store := newFakeBlobStore()
	store.corruptHeads = 1
	uploader := NewUploader(store, repo, 0, 3)
	record := &models.PhotoRecord{UUID: uuid.New()}

	version, err := uploader.Upload(context.Background(), record, bytesRendition(models.VersionOriginal, []byte("content")))
	require.NoError(t, err)

	assert.Equal(t, models.VersionStatusStored, version.Status)
	// the mismatched object was removed before the retry
	assert.Equal(t, 1, store.deletes)
}

func TestUploaderExhaustedAttemptsMarksVersionFailed(t *testing.T) {
	repo := newFakeRecordRepo()
	store := newFakeBlobStore()
	store.corruptHeads = 10
	uploader := NewUploader(store, repo, 0, 2)
	record := &models.PhotoRecord{UUID: uuid.New()}

	version, err := uploader.Upload(context.Background(), record, bytesRendition(models.VersionOriginal, []byte("content")))
	require.Error(t, err)

	require.NotNil(t, version)
	assert.Equal(t, models.VersionStatusFailed, version.Status)
	require.NotNil(t, version.UploadError)

	stored := repo.versions[record.UUID.String()+"/original"]
	require.NotNil(t, stored)
	assert.Equal(t, models.VersionStatusFailed, stored.Status)
}

func TestPredictMultipartDigestPartCount(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 100)
	digest, parts, size, err := PredictMultipartDigest(bytes.NewReader(content), 30)
	require.NoError(t, err)
	assert.Equal(t, 4, parts)
	assert.Equal(t, int64(100), size)
	assert.Regexp(t, `^[0-9a-f]{32}-4$`, digest)
}

func strp(s string) *string { return &s }

func TestBuildEntriesDedupesAndDecomposes(t *testing.T) {
	record := &models.PhotoRecord{
		UUID:           uuid.New(),
		Title:          strp("Eiffel at dusk"),
		PlaceName:      strp("Paris"),
		PlaceHierarchy: []string{"France", "Île-de-France", "Paris"},
		Labels:         []string{"tower", "night", "night"},
		Keywords:       []string{"travel"},
		Library:        strp("main"),
	}

	entries := BuildEntries(record)

	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Key+"="+e.Value]++
	}
	for key, n := range counts {
		assert.Equal(t, 1, n, "duplicate entry %s", key)
	}
	// "Paris" appears as place name and hierarchy leaf but projects once
	assert.Equal(t, 1, counts["place=Paris"])
	assert.Equal(t, 1, counts["place=France"])
	assert.Equal(t, 1, counts["label=night"])
	assert.Equal(t, 1, counts["library=main"])
	assert.Equal(t, 1, counts["title=Eiffel at dusk"])
}

// matchesQuery evaluates the documented search semantics over a
// projected entry set: OR within a category, AND across categories.
func matchesQuery(entries []models.SearchEntry, categories map[string][]string) bool {
	for key, values := range categories {
		found := false
		for _, e := range entries {
			if e.Key != key {
				continue
			}
			for _, v := range values {
				if e.Value == v {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestProjectionSupportsConjunctiveQueries(t *testing.T) {
	paris := BuildEntries(&models.PhotoRecord{
		UUID:      uuid.New(),
		PlaceName: strp("Paris"),
		Labels:    []string{"beach"},
	})
	london := BuildEntries(&models.PhotoRecord{
		UUID:      uuid.New(),
		PlaceName: strp("London"),
		Labels:    []string{"beach"},
	})

	q := map[string][]string{
		models.EntryKeyPlace: {"Paris"},
		models.EntryKeyLabel: {"beach"},
	}
	assert.True(t, matchesQuery(paris, q))
	assert.False(t, matchesQuery(london, q))

	orQuery := map[string][]string{
		models.EntryKeyPlace: {"Paris", "London"},
	}
	assert.True(t, matchesQuery(paris, orQuery))
	assert.True(t, matchesQuery(london, orQuery))
}

func newTestPipeline(repo *fakeRecordRepo, store *fakeBlobStore) *AssetPipeline {
	deduper := NewDeduper(repo, nil)
	uploader := NewUploader(store, repo, 0, 3)
	projector := NewProjector(repo)
	return NewAssetPipeline(repo, deduper, uploader, projector)
}

func TestProcessEndToEnd(t *testing.T) {
	repo := newFakeRecordRepo()
	store := newFakeBlobStore()
	p := newTestPipeline(repo, store)

	asset := Asset{
		Source:   "local",
		SourceID: "2023/beach.jpg",
		Name:     "beach.jpg",
		Metadata: map[string]interface{}{
			"asset": map[string]interface{}{
				"title":       "Beach day",
				"camera_make": "Apple",
				"width":       float64(4032),
				"height":      float64(3024),
			},
			"location": map[string]interface{}{
				"latitude": 43.2, "longitude": 5.3, "accuracy": 10.0, "place": "Marseille",
			},
		},
		Overlay:    map[string]interface{}{"albums": []interface{}{"Summer"}},
		Renditions: []Rendition{bytesRendition(models.VersionOriginal, []byte("original-bytes"))},
	}

	result := p.Process(context.Background(), asset)

	require.Equal(t, models.OutcomeOK, result.Status, result.Reason)
	assert.Equal(t, ResolutionCreated, result.Resolution)

	record := repo.records[result.RecordUUID]
	require.NotNil(t, record)
	require.NotNil(t, record.Title)
	assert.Equal(t, "Beach day", *record.Title)
	assert.Equal(t, []string{"Summer"}, []string(record.Albums))
	assert.Equal(t, "Apple", record.Extra["camera_make"])
	assert.Equal(t, "2023/beach.jpg", record.Sources["local"])

	version := repo.versions[result.RecordUUID.String()+"/original"]
	require.NotNil(t, version)
	assert.Equal(t, models.VersionStatusStored, version.Status)

	entryValues := map[string]bool{}
	for _, e := range repo.entries[result.RecordUUID] {
		entryValues[e.Key+"="+e.Value] = true
	}
	assert.True(t, entryValues["place=Marseille"])
	assert.True(t, entryValues["album=Summer"])
	assert.True(t, entryValues["title=Beach day"])
}

func TestProcessSecondSourceAttaches(t *testing.T) {
	repo := newFakeRecordRepo()
	store := newFakeBlobStore()
	p := newTestPipeline(repo, store)
	ctx := context.Background()

	content := []byte("identical pixels")
	first := p.Process(ctx, Asset{
		Source:     "local",
		SourceID:   "a.jpg",
		Metadata:   map[string]interface{}{"asset": map[string]interface{}{"title": "From disk"}},
		Renditions: []Rendition{bytesRendition(models.VersionOriginal, content)},
	})
	require.Equal(t, models.OutcomeOK, first.Status, first.Reason)

	second := p.Process(ctx, Asset{
		Source:     "clouddrive",
		SourceID:   "drive-123",
		Metadata:   map[string]interface{}{"imageMediaMetadata": map[string]interface{}{"cameraMake": "Canon"}},
		Renditions: []Rendition{bytesRendition(models.VersionOriginal, content)},
	})
	require.Equal(t, models.OutcomeOK, second.Status, second.Reason)
	assert.Equal(t, ResolutionAttached, second.Resolution)
	assert.Equal(t, first.RecordUUID, second.RecordUUID)

	record := repo.records[first.RecordUUID]
	require.NotNil(t, record.Title)
	assert.Equal(t, "From disk", *record.Title)
	assert.Equal(t, "a.jpg", record.Sources["local"])
	assert.Equal(t, "drive-123", record.Sources["clouddrive"])
	assert.Equal(t, "Canon", record.Extra["camera_make"])
}

func TestProcessSkipsAssetWithoutOriginal(t *testing.T) {
	p := newTestPipeline(newFakeRecordRepo(), newFakeBlobStore())

	result := p.Process(context.Background(), Asset{
		Source:     "local",
		SourceID:   "x",
		Renditions: []Rendition{bytesRendition(models.VersionThumbnail, []byte("thumb"))},
	})
	assert.Equal(t, models.OutcomeSkipped, result.Status)
}

func TestProcessIsIdempotent(t *testing.T) {
	repo := newFakeRecordRepo()
	store := newFakeBlobStore()
	p := newTestPipeline(repo, store)
	ctx := context.Background()

	asset := Asset{
		Source:     "local",
		SourceID:   "a.jpg",
		Metadata:   map[string]interface{}{"asset": map[string]interface{}{"title": "Once"}},
		Renditions: []Rendition{bytesRendition(models.VersionOriginal, []byte("bytes"))},
	}

	first := p.Process(ctx, asset)
	second := p.Process(ctx, asset)

	require.Equal(t, models.OutcomeOK, first.Status)
	require.Equal(t, models.OutcomeOK, second.Status)
	assert.Equal(t, first.RecordUUID, second.RecordUUID)
	assert.Len(t, repo.records, 1)

	var originals int
	for _, v := range repo.versions {
		if v.Tag == models.VersionOriginal {
			originals++
		}
	}
	assert.Equal(t, 1, originals)
}

func TestProcessKnownSourceReusesStoredFingerprint(t *testing.T) {
	repo := newFakeRecordRepo()
	store := newFakeBlobStore()
	p := newTestPipeline(repo, store)
	ctx := context.Background()

	opens := 0
	asset := Asset{
		Source:   "clouddrive",
		SourceID: "drive-9",
		Metadata: map[string]interface{}{"imageMediaMetadata": map[string]interface{}{"cameraMake": "Sony"}},
		Renditions: []Rendition{{
			Tag:         models.VersionOriginal,
			Ext:         ".jpg",
			ContentType: "image/jpeg",
			Open: func() (io.ReadCloser, error) {
				opens++
				return io.NopCloser(bytes.NewReader([]byte("stable bytes"))), nil
			},
		}},
	}

	first := p.Process(ctx, asset)
	require.Equal(t, models.OutcomeOK, first.Status, first.Reason)
	// one read to fingerprint, two for the upload (digest pass + parts)
	assert.Equal(t, 3, opens)

	second := p.Process(ctx, asset)
	require.Equal(t, models.OutcomeOK, second.Status, second.Reason)
	assert.Equal(t, ResolutionAttached, second.Resolution)
	assert.Equal(t, first.RecordUUID, second.RecordUUID)
	// the provenance hit supplies the stored fingerprint, so the re-sync
	// reads the bytes only to upload
	assert.Equal(t, 5, opens)
}
