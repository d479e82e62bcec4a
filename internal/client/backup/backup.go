// Package backup exports encrypted snapshots of the notebook to
// S3-compatible object storage and fetches them back for a restore. Only
// ciphertext leaves the device.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/cryptox"
	"github.com/dmitrijs2005/workledger/internal/timex"
)

const (
	EnvelopeVersion = 1
	MetadataSHA256  = "sha256"

	tokenPrefixLen = 12
	stampLayout    = "20060102T150405Z"
)

var (
	ErrNotConfigured    = errors.New("backup storage is not configured")
	ErrNoBackup         = errors.New("no backup found")
	ErrInvalidBackup    = errors.New("invalid backup")
	ErrChecksumMismatch = errors.New("backup checksum mismatch")
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Envelope is the exported document.
type Envelope struct {
	Version    int                `json:"version"`
	ExportedAt int64              `json:"exportedAt"`
	EntryCount int                `json:"entryCount"`
	Entries    []models.SyncEntry `json:"entries"`
}

// Settings locate the bucket. Endpoint is optional for AWS proper and
// required for MinIO and friends.
type Settings struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// ObjectStore is the part of *s3.Client the exporter needs.
type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type S3Exporter struct {
	store  ObjectStore
	bucket string
	prefix string
	clock  timex.Clock
}

func New(store ObjectStore, bucket, prefix string, clock timex.Clock) *S3Exporter {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &S3Exporter{store: store, bucket: bucket, prefix: prefix, clock: clock}
}

// NewS3Exporter builds an S3 client with static credentials.
func NewS3Exporter(ctx context.Context, st Settings, clock timex.Clock) (*S3Exporter, error) {
	if st.Bucket == "" {
		return nil, ErrNotConfigured
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(st.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(st.AccessKey, st.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if st.Endpoint != "" {
			o.BaseEndpoint = aws.String(st.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, st.Bucket, st.Prefix, clock), nil
}

// ObjectKey is <prefix>/<token[:12]>/<utc stamp>.json.
func ObjectKey(prefix, token string, at int64) string {
	return path.Join(accountDir(prefix, token), timex.FromMillis(at).UTC().Format(stampLayout)+".json")
}

func accountDir(prefix, token string) string {
	if len(token) > tokenPrefixLen {
		token = token[:tokenPrefixLen]
	}
	return path.Join(prefix, token)
}

// Export uploads entries and returns the s3:// location of the object.
// The body's SHA-256 is stored in the object metadata.
func (e *S3Exporter) Export(ctx context.Context, token string, entries []models.SyncEntry) (string, error) {
	if entries == nil {
		entries = []models.SyncEntry{}
	}
	now := e.clock()
	body, err := json.Marshal(Envelope{
		Version:    EnvelopeVersion,
		ExportedAt: now,
		EntryCount: len(entries),
		Entries:    entries,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}

	key := ObjectKey(e.prefix, token, now)
	_, err = e.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{MetadataSHA256: cryptox.ComputePlaintextHash(string(body))},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload backup %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", e.bucket, key), nil
}

// Fetch downloads a snapshot and returns its entries. location is an
// s3:// URL in this bucket or a bare object key; empty selects the newest
// snapshot of token.
func (e *S3Exporter) Fetch(ctx context.Context, token, location string) ([]models.SyncEntry, error) {
	key, err := e.resolve(ctx, token, location)
	if err != nil {
		return nil, err
	}

	out, err := e.store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download backup %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup %s: %w", key, err)
	}
	if sum, ok := out.Metadata[MetadataSHA256]; ok && !cryptox.VerifyPlaintextHash(string(body), sum) {
		return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, key)
	}

	env, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return env.Entries, nil
}

// Decode parses an exported document.
func Decode(body []byte) (*Envelope, error) {
	var env struct {
		Envelope
		Entries *[]models.SyncEntry `json:"entries"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, env.Version)
	}
	if env.Entries == nil {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidBackup)
	}
	out := env.Envelope
	out.Entries = *env.Entries
	return &out, nil
}

func (e *S3Exporter) resolve(ctx context.Context, token, location string) (string, error) {
	if location == "" {
		return e.latest(ctx, token)
	}
	if rest, ok := strings.CutPrefix(location, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket != e.bucket || key == "" {
			return "", fmt.Errorf("%w: %s is not in bucket %s", ErrInvalidBackup, location, e.bucket)
		}
		return key, nil
	}
	return location, nil
}

// latest lists the account's snapshots; the stamp layout sorts by time.
func (e *S3Exporter) latest(ctx context.Context, token string) (string, error) {
	prefix := accountDir(e.prefix, token) + "/"

	var keys []string
	p := s3.NewListObjectsV2Paginator(e.store, &s3.ListObjectsV2Input{
		Bucket: aws.String(e.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list backups: %w", err)
		}
		for _, obj := range page.Contents {
			if k := aws.ToString(obj.Key); strings.HasSuffix(k, ".json") {
				keys = append(keys, k)
			}
		}
	}
	if len(keys) == 0 {
		return "", ErrNoBackup
	}
	sort.Strings(keys)
	return keys[len(keys)-1], nil
}
