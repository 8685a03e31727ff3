package ledgerarchive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/tipmasterapp/tipmaster/app/models"
)

// Client wraps the S3 client with ledger-archive functionality. Snapshots
// are the off-site audit copy of the purchase ledger; the database stays
// the source of truth.
type Client struct {
	s3Client *s3.Client
	config   *Config
}

// NewClient creates a new ledger archive client
func NewClient(cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("ledger archive is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// Backblaze B2 specific settings
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	client := &Client{
		s3Client: s3Client,
		config:   cfg,
	}

	if err := client.testConnection(); err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	log.Infof("[LedgerArchive] Successfully initialized S3 client for bucket: %s", cfg.GetBucketName())
	return client, nil
}

// testConnection tests the S3 connection by checking if the bucket exists
func (c *Client) testConnection() error {
	ctx := context.Background()
	bucketName := c.config.GetBucketName()

	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucketName),
	})

	if err != nil {
		// If bucket doesn't exist, try to create it (for development)
		if GetAppEnv() != "prod" {
			log.Warnf("[LedgerArchive] Bucket %s not found, attempting to create it", bucketName)
			return c.createBucket(bucketName)
		}
		return fmt.Errorf("bucket %s not accessible: %w", bucketName, err)
	}

	return nil
}

// createBucket creates a new S3 bucket (dev/staging only)
func (c *Client) createBucket(bucketName string) error {
	ctx := context.Background()

	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}

	// For AWS regions other than us-east-1 a location constraint is needed.
	// S3-compatible endpoints (Backblaze B2) reject it.
	if c.config.EndpointURL == "" && c.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.config.Region),
		}
	}

	_, err := c.s3Client.CreateBucket(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}

	log.Infof("[LedgerArchive] Successfully created bucket: %s", bucketName)
	return nil
}

// Snapshot is the JSON document written per archive run.
type Snapshot struct {
	TakenAt   time.Time               `json:"taken_at"`
	Cutoff    time.Time               `json:"cutoff"`
	RowCount  int                     `json:"row_count"`
	Purchases []models.PurchaseRecord `json:"purchases"`
}

// UploadResult contains the result of a successful snapshot upload
type UploadResult struct {
	BucketName string
	ObjectKey  string
	Size       int64
	RowCount   int
}

// UploadSnapshot serializes the given purchase rows and writes them as one
// JSON object to the archive bucket.
func (c *Client) UploadSnapshot(ctx context.Context, cutoff time.Time, purchases []models.PurchaseRecord) (*UploadResult, error) {
	bucketName := c.config.GetBucketName()
	now := time.Now()

	snapshot := Snapshot{
		TakenAt:   now,
		Cutoff:    cutoff,
		RowCount:  len(purchases),
		Purchases: purchases,
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger snapshot: %w", err)
	}

	objectKey := c.config.SnapshotKey(now)
	log.Infof("[LedgerArchive] Starting upload: %d rows -> s3://%s/%s (Size: %d bytes)",
		len(purchases), bucketName, objectKey, len(body))

	_, err = c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]string{
			"upload-source": "tipmaster-ledger-archive",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload snapshot to S3: %w", err)
	}

	result := &UploadResult{
		BucketName: bucketName,
		ObjectKey:  objectKey,
		Size:       int64(len(body)),
		RowCount:   len(purchases),
	}

	log.Infof("[LedgerArchive] Successfully uploaded: s3://%s/%s", bucketName, objectKey)
	return result, nil
}

// DownloadSnapshot fetches and decodes a previously written snapshot.
func (c *Client) DownloadSnapshot(ctx context.Context, objectKey string) (*Snapshot, error) {
	bucketName := c.config.GetBucketName()

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot body: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	log.Infof("[LedgerArchive] Successfully downloaded: s3://%s/%s (%d rows)",
		bucketName, objectKey, snapshot.RowCount)
	return &snapshot, nil
}

// SnapshotExists checks if a snapshot object exists in S3
func (c *Client) SnapshotExists(ctx context.Context, objectKey string) (bool, error) {
	bucketName := c.config.GetBucketName()

	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	})

	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check snapshot existence: %w", err)
	}

	return true, nil
}
