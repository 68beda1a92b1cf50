package s3_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"io"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkeeper/core/certstore"
	s3store "github.com/dmitrymomot/certkeeper/integration/store/s3"
	"github.com/dmitrymomot/certkeeper/pkg/pembundle"
)

// mockS3 is an in-memory object store behind the S3 API surface.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	listErr error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3aws.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*params.Key] = data
	return &s3aws.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3aws.DeleteObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *params.Key)
	return &s3aws.DeleteObjectOutput{}, nil
}

func (m *mockS3) ListObjectsV2(ctx context.Context, params *s3aws.ListObjectsV2Input, optFns ...func(*s3aws.Options)) (*s3aws.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var keys []string
	for k := range m.objects {
		if params.Prefix == nil || bytes.HasPrefix([]byte(k), []byte(*params.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3aws.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (m *mockS3) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func newStore(t *testing.T, mock *mockS3) *s3store.Store {
	t.Helper()
	st, err := s3store.New(context.Background(), s3store.Config{Bucket: "certs", Prefix: "certkeeper"},
		s3store.WithClient(mock))
	require.NoError(t, err)
	return st
}

// selfSignedPEM returns a PEM certificate expiring at notAfter.
func selfSignedPEM(t *testing.T, notAfter time.Time) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "example.org"},
		NotBefore:    notAfter.Add(-24 * time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestGetCertificateMetadata(t *testing.T) {
	t.Parallel()

	t.Run("missing certificate maps to not found", func(t *testing.T) {
		t.Parallel()
		st := newStore(t, newMockS3())
		_, err := st.GetCertificateMetadata(context.Background(), "vault-1", "example-org")
		require.ErrorIs(t, err, certstore.ErrCertificateNotFound)
	})

	t.Run("reads stored metadata", func(t *testing.T) {
		t.Parallel()
		mock := newMockS3()
		expires := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
		meta, err := json.Marshal(certstore.Metadata{Enabled: true, ExpiresOn: expires})
		require.NoError(t, err)
		mock.objects["certkeeper/stores/vault-1/example-org/meta.json"] = meta

		st := newStore(t, mock)
		got, err := st.GetCertificateMetadata(context.Background(), "vault-1", "example-org")
		require.NoError(t, err)
		assert.True(t, got.Enabled)
		assert.True(t, got.ExpiresOn.Equal(expires))
	})
}

func TestImportCertificate(t *testing.T) {
	t.Parallel()

	notAfter := time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	bundle, err := pembundle.Bundle{PrivateKey: key, CertificatePEM: selfSignedPEM(t, notAfter)}.Encode()
	require.NoError(t, err)

	mock := newMockS3()
	st := newStore(t, mock)
	require.NoError(t, st.ImportCertificate(context.Background(), "vault-1", "example-org", bundle, true))

	assert.Equal(t, bundle, mock.objects["certkeeper/stores/vault-1/example-org/certificate.pem"])

	var meta certstore.Metadata
	require.NoError(t, json.Unmarshal(mock.objects["certkeeper/stores/vault-1/example-org/meta.json"], &meta))
	assert.True(t, meta.Enabled)
	assert.True(t, meta.ExpiresOn.Equal(notAfter), "expiry is derived from the leaf certificate")
}

func TestBeginAndMergeCertificate(t *testing.T) {
	t.Parallel()

	mock := newMockS3()
	st := newStore(t, mock)
	policy := certstore.Policy{
		Subject:  "example.org",
		DNSNames: []string{"example.org", "www.example.org"},
		KeySize:  2048,
	}

	csrDER, err := st.BeginCreateCertificate(context.Background(), "vault-1", "example-org", policy)
	require.NoError(t, err)

	// The CSR names the subject and identifiers and is signed by the staged key.
	csr, err := x509.ParseCertificateRequest(csrDER)
	require.NoError(t, err)
	assert.Equal(t, "example.org", csr.Subject.CommonName)
	assert.ElementsMatch(t, []string{"example.org", "www.example.org"}, csr.DNSNames)

	pendingKey := "certkeeper/stores/vault-1/example-org/pending.key"
	require.True(t, mock.has(pendingKey), "private key is staged, never returned")
	block, _ := pem.Decode(mock.objects[pendingKey])
	require.NotNil(t, block)
	staged, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, staged.(*rsa.PrivateKey).Public(), csr.PublicKey)

	// Merge pairs the signed chain with the staged key.
	notAfter := time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC)
	chain := selfSignedPEM(t, notAfter)
	require.NoError(t, st.MergeCertificate(context.Background(), "vault-1", "example-org", chain))

	stored, err := pembundle.Decode(mock.objects["certkeeper/stores/vault-1/example-org/certificate.pem"])
	require.NoError(t, err)
	assert.Equal(t, staged.(*rsa.PrivateKey).Public(), stored.PrivateKey.(*rsa.PrivateKey).Public())

	var meta certstore.Metadata
	require.NoError(t, json.Unmarshal(mock.objects["certkeeper/stores/vault-1/example-org/meta.json"], &meta))
	assert.True(t, meta.Enabled)
	assert.True(t, meta.ExpiresOn.Equal(notAfter))

	assert.False(t, mock.has(pendingKey), "staging object is removed after merge")
}

func TestMergeWithoutPendingRequest(t *testing.T) {
	t.Parallel()

	st := newStore(t, newMockS3())
	err := st.MergeCertificate(context.Background(), "vault-1", "example-org", selfSignedPEM(t, time.Now().AddDate(0, 3, 0)))
	require.ErrorIs(t, err, s3store.ErrNoPendingRequest)
}

func TestBeginRejectsUnsupportedKeySize(t *testing.T) {
	t.Parallel()

	st := newStore(t, newMockS3())
	_, err := st.BeginCreateCertificate(context.Background(), "vault-1", "example-org", certstore.Policy{
		Subject: "example.org", KeySize: 1024,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1024")
}

func TestNewRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := s3store.New(context.Background(), s3store.Config{})
	require.ErrorIs(t, err, s3store.ErrInvalidConfig)
}
