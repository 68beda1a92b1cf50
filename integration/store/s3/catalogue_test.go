package s3_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRequestDoc = `{
	"dnsProvider": {
		"providerAccountId": "acct",
		"dnsZoneId": "Z123",
		"zoneName": "example.org",
		"storeId": "vault-1",
		"certName": "example-org"
	},
	"acme": {
		"contactEmail": "ops@example.org",
		"directoryUrl": "https://ca.test/directory"
	},
	"certKey": {
		"commonName": "example.org",
		"alternativeNames": ["www.example.org"]
	}
}`

const legacyRequestDoc = `{
	"azure": {
		"subscriptionId": "sub-1",
		"dnsZoneResourceGroup": "rg-dns",
		"dnsZone": "legacy.test",
		"keyVaultName": "kv-legacy",
		"keyVaultCertName": "legacy-test"
	},
	"acme": {
		"contactEmail": "ops@legacy.test",
		"directoryUrl": "https://ca.test/directory"
	},
	"certKey": {
		"commonName": "legacy.test"
	}
}`

func TestListRequests(t *testing.T) {
	t.Parallel()

	mock := newMockS3()
	mock.objects["certkeeper/requests/example-org.json"] = []byte(validRequestDoc)
	mock.objects["certkeeper/requests/legacy-test.json"] = []byte(legacyRequestDoc)
	mock.objects["certkeeper/requests/broken.json"] = []byte(`{"certKey": {}}`)
	mock.objects["certkeeper/requests/README.txt"] = []byte("not a request")
	mock.objects["certkeeper/stores/vault-1/other/meta.json"] = []byte(`{}`)

	st := newStore(t, mock)
	reqs, err := st.ListRequests(context.Background())
	require.NoError(t, err)

	// The invalid document is skipped, not fatal; non-JSON objects and the
	// certificate tree are ignored.
	require.Len(t, reqs, 2)
	names := []string{reqs[0].CertName(), reqs[1].CertName()}
	assert.ElementsMatch(t, []string{"example-org", "legacy-test"}, names)

	for _, req := range reqs {
		if req.CertName() == "legacy-test" {
			assert.Equal(t, "sub-1", req.DNSProvider.ProviderAccountID)
			assert.Equal(t, "kv-legacy", req.DNSProvider.StoreID)
			assert.Equal(t, "legacy.test", req.DNSProvider.ZoneName)
		}
	}
}

func TestListRequestsFailureIsFatal(t *testing.T) {
	t.Parallel()

	mock := newMockS3()
	mock.listErr = errors.New("bucket unreachable")

	st := newStore(t, mock)
	_, err := st.ListRequests(context.Background())
	require.Error(t, err)
}

func TestListRequestsEmpty(t *testing.T) {
	t.Parallel()

	st := newStore(t, newMockS3())
	reqs, err := st.ListRequests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reqs)
}
