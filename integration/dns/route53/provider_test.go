package route53_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	r53 "github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkeeper/core/issuance"
	"github.com/dmitrymomot/certkeeper/integration/dns/route53"
)

// mockAPI records Route 53 calls and replays scripted responses.
type mockAPI struct {
	mu sync.Mutex

	changes   []*r53.ChangeResourceRecordSetsInput
	listOut   *r53.ListResourceRecordSetsOutput
	listErr   error
	changeErr error
	getCalls  int
	syncAfter int // GetChange calls before INSYNC
}

func (m *mockAPI) ChangeResourceRecordSets(ctx context.Context, params *r53.ChangeResourceRecordSetsInput, optFns ...func(*r53.Options)) (*r53.ChangeResourceRecordSetsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.changeErr != nil {
		return nil, m.changeErr
	}
	m.changes = append(m.changes, params)
	return &r53.ChangeResourceRecordSetsOutput{
		ChangeInfo: &types.ChangeInfo{Id: aws.String("/change/C123"), Status: types.ChangeStatusPending},
	}, nil
}

func (m *mockAPI) ListResourceRecordSets(ctx context.Context, params *r53.ListResourceRecordSetsInput, optFns ...func(*r53.Options)) (*r53.ListResourceRecordSetsOutput, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if m.listOut != nil {
		return m.listOut, nil
	}
	return &r53.ListResourceRecordSetsOutput{}, nil
}

func (m *mockAPI) GetChange(ctx context.Context, params *r53.GetChangeInput, optFns ...func(*r53.Options)) (*r53.GetChangeOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	status := types.ChangeStatusPending
	if m.getCalls > m.syncAfter {
		status = types.ChangeStatusInsync
	}
	return &r53.GetChangeOutput{ChangeInfo: &types.ChangeInfo{Status: status}}, nil
}

var zone = issuance.ZoneRef{AccountID: "acct", ZoneID: "Z123", Name: "example.org"}

func newProvider(t *testing.T, api *mockAPI, cfg route53.Config) *route53.Provider {
	t.Helper()
	p, err := route53.New(context.Background(), cfg,
		route53.WithClient(api),
		route53.WithSyncPollInterval(time.Millisecond))
	require.NoError(t, err)
	return p
}

func TestUpsertTXTRecord(t *testing.T) {
	t.Parallel()

	api := &mockAPI{}
	p := newProvider(t, api, route53.Config{})

	err := p.UpsertTXTRecord(context.Background(), zone, "_acme-challenge.www", "token-value", 30*time.Second)
	require.NoError(t, err)

	require.Len(t, api.changes, 1)
	batch := api.changes[0]
	assert.Equal(t, "Z123", *batch.HostedZoneId)

	require.Len(t, batch.ChangeBatch.Changes, 1)
	change := batch.ChangeBatch.Changes[0]
	assert.Equal(t, types.ChangeActionUpsert, change.Action)

	rrs := change.ResourceRecordSet
	assert.Equal(t, "_acme-challenge.www.example.org", *rrs.Name, "zone-relative names are qualified")
	assert.Equal(t, types.RRTypeTxt, rrs.Type)
	assert.EqualValues(t, 30, *rrs.TTL)
	require.Len(t, rrs.ResourceRecords, 1)
	assert.Equal(t, `"token-value"`, *rrs.ResourceRecords[0].Value, "txt values are quoted")
}

func TestUpsertTXTRecordApexName(t *testing.T) {
	t.Parallel()

	api := &mockAPI{}
	p := newProvider(t, api, route53.Config{})

	err := p.UpsertTXTRecord(context.Background(), zone, "_acme-challenge.example.org", "v", 30*time.Second)
	require.NoError(t, err)

	require.Len(t, api.changes, 1)
	name := *api.changes[0].ChangeBatch.Changes[0].ResourceRecordSet.Name
	assert.Equal(t, "_acme-challenge.example.org", name, "already-qualified names are not doubled")
}

func TestUpsertWaitsForSync(t *testing.T) {
	t.Parallel()

	api := &mockAPI{syncAfter: 2}
	p := newProvider(t, api, route53.Config{WaitForSync: true})

	err := p.UpsertTXTRecord(context.Background(), zone, "_acme-challenge.www", "v", 30*time.Second)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, api.getCalls, 3, "polls until INSYNC")
}

func TestDeleteTXTRecordAbsentIsNoOp(t *testing.T) {
	t.Parallel()

	api := &mockAPI{}
	p := newProvider(t, api, route53.Config{})

	err := p.DeleteTXTRecord(context.Background(), zone, "_acme-challenge.www")
	require.NoError(t, err)
	assert.Empty(t, api.changes, "no delete is issued for an absent record")
}

func TestDeleteTXTRecordRemovesExisting(t *testing.T) {
	t.Parallel()

	existing := types.ResourceRecordSet{
		Name: aws.String("_acme-challenge.www.example.org."),
		Type: types.RRTypeTxt,
		TTL:  aws.Int64(30),
		ResourceRecords: []types.ResourceRecord{
			{Value: aws.String(`"token-value"`)},
		},
	}
	api := &mockAPI{listOut: &r53.ListResourceRecordSetsOutput{
		ResourceRecordSets: []types.ResourceRecordSet{existing},
	}}
	p := newProvider(t, api, route53.Config{})

	err := p.DeleteTXTRecord(context.Background(), zone, "_acme-challenge.www")
	require.NoError(t, err)

	require.Len(t, api.changes, 1)
	change := api.changes[0].ChangeBatch.Changes[0]
	assert.Equal(t, types.ChangeActionDelete, change.Action)
	assert.Equal(t, *existing.Name, *change.ResourceRecordSet.Name)
	assert.Equal(t, existing.ResourceRecords, change.ResourceRecordSet.ResourceRecords)
}

func TestDeleteSkipsUnrelatedFollowingRecord(t *testing.T) {
	t.Parallel()

	// Route 53 list starts at the requested name but may return the next
	// record in the zone when the requested one is absent.
	api := &mockAPI{listOut: &r53.ListResourceRecordSetsOutput{
		ResourceRecordSets: []types.ResourceRecordSet{{
			Name: aws.String("_acme-challenge.zzz.example.org."),
			Type: types.RRTypeTxt,
		}},
	}}
	p := newProvider(t, api, route53.Config{})

	err := p.DeleteTXTRecord(context.Background(), zone, "_acme-challenge.www")
	require.NoError(t, err)
	assert.Empty(t, api.changes)
}

func TestNewRequiresRegionWithoutClient(t *testing.T) {
	t.Parallel()

	_, err := route53.New(context.Background(), route53.Config{})
	require.ErrorIs(t, err, route53.ErrInvalidConfig)
}
