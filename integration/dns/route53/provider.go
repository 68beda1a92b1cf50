package route53

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	r53 "github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/dmitrymomot/certkeeper/core/issuance"
	"github.com/dmitrymomot/certkeeper/core/logger"
)

// Compile-time check that Provider implements the DNS collaborator contract.
var _ issuance.DNSProvider = (*Provider)(nil)

// API defines the Route 53 operations used by Provider.
type API interface {
	ChangeResourceRecordSets(ctx context.Context, params *r53.ChangeResourceRecordSetsInput, optFns ...func(*r53.Options)) (*r53.ChangeResourceRecordSetsOutput, error)
	ListResourceRecordSets(ctx context.Context, params *r53.ListResourceRecordSetsInput, optFns ...func(*r53.Options)) (*r53.ListResourceRecordSetsOutput, error)
	GetChange(ctx context.Context, params *r53.GetChangeInput, optFns ...func(*r53.Options)) (*r53.GetChangeOutput, error)
}

// Config contains Route 53 provider configuration.
type Config struct {
	Region      string
	AccessKeyID string
	SecretKey   string

	// WaitForSync blocks record changes until Route 53 reports INSYNC,
	// meaning every authoritative name server answers with the new record.
	WaitForSync bool
}

// Option configures a Provider.
type Option func(*options)

type options struct {
	client       API
	configOpts   []func(*config.LoadOptions) error
	pollInterval time.Duration
	log          *slog.Logger
}

// WithClient sets a pre-configured Route 53 client, primarily for tests.
func WithClient(client API) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithConfigOption adds a custom AWS config option.
func WithConfigOption(opt func(*config.LoadOptions) error) Option {
	return func(o *options) {
		o.configOpts = append(o.configOpts, opt)
	}
}

// WithSyncPollInterval overrides how often the INSYNC wait polls.
func WithSyncPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithLogger sets the provider logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// Provider publishes and removes TXT records in Route 53 hosted zones.
type Provider struct {
	client       API
	waitForSync  bool
	pollInterval time.Duration
	log          *slog.Logger
}

// New creates a Route 53 provider. Credentials fall back to the default AWS
// chain when not set explicitly.
func New(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	options := &options{
		pollInterval: 5 * time.Second,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		if cfg.Region == "" {
			return nil, fmt.Errorf("%w: region is required", ErrInvalidConfig)
		}
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}
		awsOptions = append(awsOptions, options.configOpts...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %v", err)
		}
		client = r53.NewFromConfig(awsConfig)
	}

	return &Provider{
		client:       client,
		waitForSync:  cfg.WaitForSync,
		pollInterval: options.pollInterval,
		log:          options.log,
	}, nil
}

// UpsertTXTRecord creates or replaces the TXT record with value as its sole
// value. UPSERT makes a retried present converge instead of conflict.
func (p *Provider) UpsertTXTRecord(ctx context.Context, zone issuance.ZoneRef, recordName, value string, ttl time.Duration) error {
	fqdn := qualify(recordName, zone.Name)
	out, err := p.client.ChangeResourceRecordSets(ctx, &r53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zone.ZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action: types.ChangeActionUpsert,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name: aws.String(fqdn),
					Type: types.RRTypeTxt,
					TTL:  aws.Int64(int64(ttl / time.Second)),
					ResourceRecords: []types.ResourceRecord{
						{Value: aws.String(strconv.Quote(value))},
					},
				},
			}},
		},
	})
	if err != nil {
		return classifyError(err, "upsert record")
	}
	p.log.Debug("txt record upserted", logger.Record(fqdn), logger.Zone(zone.Name))

	if p.waitForSync && out.ChangeInfo != nil && out.ChangeInfo.Id != nil {
		if err := p.waitInSync(ctx, *out.ChangeInfo.Id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTXTRecord removes the record. The record set is looked up first; an
// absent record is not an error.
func (p *Provider) DeleteTXTRecord(ctx context.Context, zone issuance.ZoneRef, recordName string) error {
	fqdn := qualify(recordName, zone.Name)
	existing, err := p.lookupTXT(ctx, zone.ZoneID, fqdn)
	if err != nil {
		return err
	}
	if existing == nil {
		p.log.Debug("txt record already absent", logger.Record(fqdn), logger.Zone(zone.Name))
		return nil
	}

	// DELETE requires the full record set as currently stored.
	_, err = p.client.ChangeResourceRecordSets(ctx, &r53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zone.ZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action:            types.ChangeActionDelete,
				ResourceRecordSet: existing,
			}},
		},
	})
	if err != nil {
		return classifyError(err, "delete record")
	}
	p.log.Debug("txt record deleted", logger.Record(fqdn), logger.Zone(zone.Name))
	return nil
}

// lookupTXT returns the TXT record set with exactly the given name, or nil
// when no such record exists.
func (p *Provider) lookupTXT(ctx context.Context, zoneID, fqdn string) (*types.ResourceRecordSet, error) {
	out, err := p.client.ListResourceRecordSets(ctx, &r53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(fqdn),
		StartRecordType: types.RRTypeTxt,
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, classifyError(err, "list records")
	}
	for _, rrs := range out.ResourceRecordSets {
		if rrs.Type == types.RRTypeTxt && rrs.Name != nil && normalizeName(*rrs.Name) == normalizeName(fqdn) {
			return &rrs, nil
		}
	}
	return nil, nil
}

// waitInSync polls the change until Route 53 reports INSYNC.
func (p *Provider) waitInSync(ctx context.Context, changeID string) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		out, err := p.client.GetChange(ctx, &r53.GetChangeInput{Id: aws.String(changeID)})
		if err != nil {
			return classifyError(err, "get change")
		}
		if out.ChangeInfo != nil && out.ChangeInfo.Status == types.ChangeStatusInsync {
			return nil
		}
		select {
		case <-ctx.Done():
			return classifyError(ctx.Err(), "wait for sync")
		case <-ticker.C:
		}
	}
}

// qualify appends the zone name to a zone-relative record name. A name that
// already ends with the zone is left as is.
func qualify(recordName, zoneName string) string {
	name := strings.TrimSuffix(recordName, ".")
	zone := strings.TrimSuffix(zoneName, ".")
	if name == zone || strings.HasSuffix(name, "."+zone) {
		return name
	}
	return name + "." + zone
}

// normalizeName compares Route 53 record names regardless of the trailing dot.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
