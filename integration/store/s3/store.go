package s3

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-acme/lego/v4/certcrypto"

	"github.com/dmitrymomot/certkeeper/core/certstore"
	"github.com/dmitrymomot/certkeeper/core/logger"
	"github.com/dmitrymomot/certkeeper/pkg/pembundle"
)

// Compile-time check that Store implements the certstore collaborator.
var _ certstore.Client = (*Store)(nil)

const (
	metaObject    = "meta.json"
	certObject    = "certificate.pem"
	pendingObject = "pending.key"
)

// API defines the S3 operations used by Store and Catalogue.
type API interface {
	GetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3aws.DeleteObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3aws.ListObjectsV2Input, optFns ...func(*s3aws.Options)) (*s3aws.ListObjectsV2Output, error)
}

// Config contains S3 store configuration.
type Config struct {
	Bucket      string
	Region      string
	Prefix      string
	AccessKeyID string
	SecretKey   string
	Endpoint    string // For S3-compatible services like MinIO
}

// Option configures a Store.
type Option func(*options)

type options struct {
	client     API
	configOpts []func(*config.LoadOptions) error
	log        *slog.Logger
}

// WithClient sets a pre-configured S3 client, primarily for tests.
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

// WithLogger sets the store logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// Store keeps certificate material in an S3 bucket.
type Store struct {
	client API
	bucket string
	prefix string
	log    *slog.Logger
}

// New creates an S3-backed certificate store. Credentials fall back to the
// default AWS chain when not set explicitly.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	options := &options{log: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
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
		client = s3aws.NewFromConfig(awsConfig, func(o *s3aws.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    options.log,
	}, nil
}

func (s *Store) certKey(storeID, certName, object string) string {
	return path.Join(s.prefix, "stores", storeID, certName, object)
}

// GetCertificateMetadata reads the metadata object for a certificate.
func (s *Store) GetCertificateMetadata(ctx context.Context, storeID, certName string) (certstore.Metadata, error) {
	data, err := s.getObject(ctx, s.certKey(storeID, certName, metaObject))
	if err != nil {
		return certstore.Metadata{}, err
	}
	var meta certstore.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return certstore.Metadata{}, fmt.Errorf("decode metadata for %q: %w", certName, err)
	}
	return meta, nil
}

// ImportCertificate stores an encoded bundle as the certificate's current
// version and refreshes the metadata from the bundle's leaf certificate.
func (s *Store) ImportCertificate(ctx context.Context, storeID, certName string, bundle []byte, enabled bool) error {
	decoded, err := pembundle.Decode(bundle)
	if err != nil {
		return fmt.Errorf("decode bundle for %q: %w", certName, err)
	}
	expiresOn, err := pembundle.LeafExpiry(decoded.CertificatePEM)
	if err != nil {
		return fmt.Errorf("read expiry for %q: %w", certName, err)
	}

	if err := s.putObject(ctx, s.certKey(storeID, certName, certObject), bundle); err != nil {
		return err
	}
	if err := s.putMetadata(ctx, storeID, certName, certstore.Metadata{Enabled: enabled, ExpiresOn: expiresOn}); err != nil {
		return err
	}
	s.log.Info("certificate imported", logger.Cert(certName), logger.Expiry(expiresOn))
	return nil
}

// BeginCreateCertificate generates the key pair, stages the private key in
// the bucket, and returns a CSR for the policy. The key is never returned.
func (s *Store) BeginCreateCertificate(ctx context.Context, storeID, certName string, policy certstore.Policy) ([]byte, error) {
	keyType, err := keyTypeForSize(policy.KeySize)
	if err != nil {
		return nil, err
	}
	key, err := certcrypto.GeneratePrivateKey(keyType)
	if err != nil {
		return nil, fmt.Errorf("generate private key for %q: %w", certName, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("generated key for %q is not a signer", certName)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("encode private key for %q: %w", certName, err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	if err := s.putObject(ctx, s.certKey(storeID, certName, pendingObject), keyPEM); err != nil {
		return nil, err
	}

	tmpl := &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: policy.Subject},
		DNSNames: policy.DNSNames,
	}
	csrDER, err := x509.CreateCertificateRequest(rand.Reader, tmpl, signer)
	if err != nil {
		return nil, fmt.Errorf("create csr for %q: %w", certName, err)
	}
	s.log.Info("certificate request staged", logger.Cert(certName))
	return csrDER, nil
}

// MergeCertificate pairs the signed chain with the staged key, stores the
// result, and removes the staging object.
func (s *Store) MergeCertificate(ctx context.Context, storeID, certName string, chainPEM []byte) error {
	pendingKey := s.certKey(storeID, certName, pendingObject)
	keyPEM, err := s.getObject(ctx, pendingKey)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %q", ErrNoPendingRequest, certName)
		}
		return err
	}
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return fmt.Errorf("%w: staged key for %q is not PEM", ErrNoPendingRequest, certName)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parse staged key for %q: %w", certName, err)
	}

	bundle, err := pembundle.Bundle{PrivateKey: key, CertificatePEM: chainPEM}.Encode()
	if err != nil {
		return fmt.Errorf("encode bundle for %q: %w", certName, err)
	}
	expiresOn, err := pembundle.LeafExpiry(chainPEM)
	if err != nil {
		return fmt.Errorf("read expiry for %q: %w", certName, err)
	}

	if err := s.putObject(ctx, s.certKey(storeID, certName, certObject), bundle); err != nil {
		return err
	}
	if err := s.putMetadata(ctx, storeID, certName, certstore.Metadata{Enabled: true, ExpiresOn: expiresOn}); err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3aws.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(pendingKey),
	}); err != nil {
		// The merge itself succeeded; a leftover staging object is only noise.
		s.log.Error("staged key cleanup failed", logger.Cert(certName), logger.Error(err))
	}
	s.log.Info("certificate merged", logger.Cert(certName), logger.Expiry(expiresOn))
	return nil
}

func (s *Store) putMetadata(ctx context.Context, storeID, certName string, meta certstore.Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata for %q: %w", certName, err)
	}
	return s.putObject(ctx, s.certKey(storeID, certName, metaObject), data)
}

func (s *Store) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3aws.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyError(err, "get object")
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

func (s *Store) putObject(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3aws.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return classifyError(err, "put object")
}

func keyTypeForSize(bits int) (certcrypto.KeyType, error) {
	switch bits {
	case 2048:
		return certcrypto.RSA2048, nil
	case 3072:
		return certcrypto.RSA3072, nil
	case 4096:
		return certcrypto.RSA4096, nil
	case 8192:
		return certcrypto.RSA8192, nil
	default:
		return "", fmt.Errorf("unsupported key size %d", bits)
	}
}
